package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// exclusion_violation, raised by the bookings_no_overlap constraint.
const pgExclusionViolation = "23P01"

const bookingColumns = `b.id, b.room_name, b.start_time, b.end_time, b.status, b.created_at, b.cancelled_at,
	u.id, u.username, u.full_name, u.role`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGBookingRepository struct {
	pool *pgxpool.Pool
	db   querier
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{pool: db, db: db}
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b JOIN users u ON u.id = b.user_id WHERE b.id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.user_id=$1 ORDER BY b.start_time, b.id`, ownerID)
}

func (r *PGBookingRepository) ListActive(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.status=$1 ORDER BY b.start_time, b.id`, domain.BookingStatusActive)
}

func (r *PGBookingRepository) ListActiveOnDate(ctx context.Context, day time.Time) ([]domain.Booking, error) {
	from, to := DayRange(day)
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.status=$1 AND b.start_time >= $2 AND b.start_time < $3 ORDER BY b.start_time, b.id`,
		domain.BookingStatusActive, from, to)
}

func (r *PGBookingRepository) ExistsOverlap(ctx context.Context, resourceName string, interval domain.Interval) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE status=$1 AND room_name=$2 AND start_time < $4 AND end_time > $3)`,
		domain.BookingStatusActive, resourceName, interval.Start, interval.End).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (user_id, room_name, start_time, end_time, status, created_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		booking.Owner.ID, booking.ResourceName, booking.Interval.Start, booking.Interval.End,
		booking.Status, booking.CreatedAt, booking.CancelledAt).
		Scan(&booking.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrOverlap
		}
		return err
	}
	return nil
}

func (r *PGBookingRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `WITH b AS (
			UPDATE bookings SET status=$1, cancelled_at=$2
			WHERE id=$3 AND status=$4
			RETURNING *
		)
		SELECT `+bookingColumns+` FROM b JOIN users u ON u.id = b.user_id`,
		domain.BookingStatusCancelled, at, id, domain.BookingStatusActive)
	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	exists, err := r.ExistsByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrNotActive
	}
	return nil, ErrNotFound
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WithResourceLock serializes callers on a transaction-scoped advisory lock
// keyed by the resource name. The lock is released on commit or rollback.
func (r *PGBookingRepository) WithResourceLock(ctx context.Context, resourceName string, fn func(ctx context.Context, repo BookingRepository) error) error {
	if r.pool == nil {
		// already inside a transaction
		return fn(ctx, r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, resourceName); err != nil {
		return fmt.Errorf("lock resource %q: %w", resourceName, err)
	}

	if err := fn(ctx, &PGBookingRepository{db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) list(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.ID, &b.ResourceName, &b.Interval.Start, &b.Interval.End, &b.Status, &b.CreatedAt, &b.CancelledAt,
		&b.Owner.ID, &b.Owner.Username, &b.Owner.DisplayName, &b.Owner.Role,
	); err != nil {
		return nil, err
	}
	b.Interval.Start = b.Interval.Start.UTC()
	b.Interval.End = b.Interval.End.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	if b.CancelledAt != nil {
		cancelled := b.CancelledAt.UTC()
		b.CancelledAt = &cancelled
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
