package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/roombooking/internal/apierr"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
	"github.com/Domenick1991/roombooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// UserIDHeader identifies the caller on mutating requests.
const UserIDHeader = "User-Id"

const userIDKey = "userID"

type BookingHandler struct {
	log     *slog.Logger
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ResourceName string    `json:"resource_name" binding:"required"`
	Start        time.Time `json:"start" binding:"required"`
	End          time.Time `json:"end" binding:"required"`
}

type errorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func NewBookingHandler(log *slog.Logger, service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{log: log, service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", RequireUser(), h.create)
	router.GET("", h.listActive)
	router.GET("/:id", h.get)
	router.GET("/user/:userId", h.listByUser)
	router.GET("/date", h.listByDate)
	router.DELETE("/:id", RequireUser(), h.cancel)
	router.DELETE("/:id/admin", RequireUser(), h.delete)
}

// RequireUser rejects requests without a positive numeric User-Id header.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
		if err != nil || id <= 0 {
			abortWithError(c, http.StatusUnauthorized, "Missing or invalid User-Id header")
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "resource_name, start and end are required")
		return
	}
	req.ResourceName = strings.TrimSpace(req.ResourceName)
	if req.ResourceName == "" {
		abortWithError(c, http.StatusBadRequest, "resource_name must not be blank")
		return
	}

	view, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ResourceName: req.ResourceName,
		Start:        req.Start,
		End:          req.End,
	}, c.GetInt64(userIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.GetBookingByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *BookingHandler) listActive(c *gin.Context) {
	views, err := h.service.GetAllActiveBookings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *BookingHandler) listByUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	views, err := h.service.GetUserBookings(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *BookingHandler) listByDate(c *gin.Context) {
	day, err := booking.ParseDay(c.Query("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
		return
	}

	views, err := h.service.GetBookingsByDate(c.Request.Context(), day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.CancelBooking(c.Request.Context(), id, c.GetInt64(userIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *BookingHandler) delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), id, c.GetInt64(userIDKey)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) fail(c *gin.Context, err error) {
	code := apierr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			sl.Err(err),
		)
	}
	abortWithError(c, code, apierr.Message(err))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorResponse{
		Status:    code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
