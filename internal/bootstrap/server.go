package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/roombooking/api"
	"github.com/Domenick1991/roombooking/config"
	bookingsapi "github.com/Domenick1991/roombooking/internal/api/bookings_service_api"
	"github.com/Domenick1991/roombooking/internal/lib/logger/sl"
	"github.com/Domenick1991/roombooking/internal/service/booking"
	grpclog "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const shutdownTimeout = 5 * time.Second

// HealthCheck is a named dependency check reported by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Servers struct {
	log        *slog.Logger
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP (REST + swagger) servers and blocks until ctx
// is canceled or a server fails.
func Run(ctx context.Context, log *slog.Logger, cfg *config.Config, bookingSvc booking.BookingUseCase, checks ...HealthCheck) error {
	const op = "bootstrap.Run"

	s := newServers(log, cfg, bookingSvc, checks)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("%s: listen gRPC %s: %w", op, cfg.GRPC.Address, err)
	}
	go func() {
		log.Info("grpc server is running", slog.String("addr", lis.Addr().String()))
		errCh <- s.grpcServer.Serve(lis)
	}()

	go func() {
		log.Info("http server is running", slog.String("addr", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		_ = s.httpServer.Close()
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
		log.Info("stopping servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: shutdown http server: %w", op, err)
		}
		return nil
	}
}

func newServers(log *slog.Logger, cfg *config.Config, bookingSvc booking.BookingUseCase, checks []HealthCheck) *Servers {
	grpcSrv := NewGRPCServer(log)
	bookingsapi.RegisterBookingsServiceServer(grpcSrv, bookingsapi.NewServer(bookingSvc))

	return &Servers{
		log:        log,
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewHTTPHandler(log, cfg.HTTP, bookingSvc, checks),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// NewGRPCServer returns a server with request logging and panic recovery.
func NewGRPCServer(log *slog.Logger) *grpc.Server {
	logOpts := []grpclog.Option{
		grpclog.WithLogOnEvents(grpclog.StartCall, grpclog.FinishCall),
	}
	recoveryOpts := []recovery.Option{
		recovery.WithRecoveryHandler(func(p any) error {
			log.Error("recovered from panic", slog.Any("panic", p))
			return status.Error(codes.Internal, "internal error")
		}),
	}

	return grpc.NewServer(grpc.ChainUnaryInterceptor(
		recovery.UnaryServerInterceptor(recoveryOpts...),
		grpclog.UnaryServerInterceptor(InterceptorLogger(log), logOpts...),
	))
}

// InterceptorLogger adapts slog to the go-grpc-middleware logging interface.
func InterceptorLogger(l *slog.Logger) grpclog.Logger {
	return grpclog.LoggerFunc(func(ctx context.Context, lvl grpclog.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

// NewHTTPHandler mounts the REST API, health endpoint and API docs.
func NewHTTPHandler(log *slog.Logger, cfg config.HTTPConfig, bookingSvc booking.BookingUseCase, checks []HealthCheck) http.Handler {
	router := api.NewRouter(log, api.NewBookingHandler(log, bookingSvc))

	handler := http.NewServeMux()
	handler.Handle("/api/", router)
	handler.HandleFunc("/healthz", healthz(log, checks))

	if cfg.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.SwaggerDir))
		handler.Handle("/openapi/", http.StripPrefix("/openapi/", fs))
		handler.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/openapi/bookings.swagger.json")))
	}

	return handler
}

func healthz(log *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		code := http.StatusOK
		report := map[string]string{}
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				log.Warn("health check failed", slog.String("dependency", check.Name), sl.Err(err))
				report[check.Name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			report[check.Name] = "up"
		}

		overall := "ok"
		if code != http.StatusOK {
			overall = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       overall,
			"dependencies": report,
		})
	}
}
