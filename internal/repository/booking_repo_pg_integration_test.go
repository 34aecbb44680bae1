package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseEnv holds a postgres:// URL of a disposable database. The
// Postgres store tests are skipped when it is unset.
const testDatabaseEnv = "ROOMBOOKING_TEST_DATABASE_URL"

var pgDay = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDatabaseEnv)
	}

	migrationURL := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(dsn, "postgres://"), "postgresql://")
	m, err := migrate.New("file://../../migrations", migrationURL)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("apply migrations: %v", err)
	}
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE bookings RESTART IDENTITY`)
	require.NoError(t, err)
	return pool
}

func seededUser(t *testing.T, pool *pgxpool.Pool, username string) domain.User {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `SELECT id FROM users WHERE username=$1`, username).Scan(&id)
	require.NoError(t, err)

	u, err := NewUserRepository(pool).GetByID(context.Background(), id)
	require.NoError(t, err)
	return *u
}

func pgBooking(owner domain.User, room string, start time.Time, d time.Duration) *domain.Booking {
	return &domain.Booking{
		Owner:        owner,
		ResourceName: room,
		Interval:     domain.NewInterval(start, start.Add(d)),
		Status:       domain.BookingStatusActive,
		CreatedAt:    pgDay.Add(-24 * time.Hour),
	}
}

func TestPGBookingRepository_CreateAndOverlap(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBookingRepository(pool)
	owner := seededUser(t, pool, "user1")
	ctx := context.Background()
	ten := pgDay.Add(10 * time.Hour)

	first := pgBooking(owner, "Room A", ten, time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	assert.Positive(t, first.ID)

	testCases := []struct {
		name     string
		room     string
		interval domain.Interval
		overlaps bool
	}{
		{"same interval", "Room A", domain.NewInterval(ten, ten.Add(time.Hour)), true},
		{"starts inside", "Room A", domain.NewInterval(ten.Add(30*time.Minute), ten.Add(90*time.Minute)), true},
		{"ends inside", "Room A", domain.NewInterval(ten.Add(-30*time.Minute), ten.Add(30*time.Minute)), true},
		{"encloses", "Room A", domain.NewInterval(ten.Add(-time.Hour), ten.Add(2*time.Hour)), true},
		{"ends at start", "Room A", domain.NewInterval(ten.Add(-time.Hour), ten), false},
		{"starts at end", "Room A", domain.NewInterval(ten.Add(time.Hour), ten.Add(2*time.Hour)), false},
		{"other room", "Room B", domain.NewInterval(ten, ten.Add(time.Hour)), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exists, err := repo.ExistsOverlap(ctx, tc.room, tc.interval)
			require.NoError(t, err)
			assert.Equal(t, tc.overlaps, exists)
		})
	}

	err := repo.Create(ctx, pgBooking(owner, "Room A", ten.Add(30*time.Minute), time.Hour))
	assert.ErrorIs(t, err, ErrOverlap)

	require.NoError(t, repo.Create(ctx, pgBooking(owner, "Room A", ten.Add(time.Hour), time.Hour)))

	fetched, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Interval, fetched.Interval)
	assert.Equal(t, first.CreatedAt, fetched.CreatedAt)
	assert.Equal(t, owner, fetched.Owner)
	assert.Equal(t, domain.BookingStatusActive, fetched.Status)
	assert.Nil(t, fetched.CancelledAt)
}

func TestPGBookingRepository_MarkCancelled(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBookingRepository(pool)
	owner := seededUser(t, pool, "user1")
	ctx := context.Background()
	ten := pgDay.Add(10 * time.Hour)

	b := pgBooking(owner, "Room A", ten, time.Hour)
	require.NoError(t, repo.Create(ctx, b))

	at := pgDay.Add(-time.Hour)
	cancelled, err := repo.MarkCancelled(ctx, b.ID, at)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, at, *cancelled.CancelledAt)
	assert.Equal(t, owner.Username, cancelled.Owner.Username)

	_, err = repo.MarkCancelled(ctx, b.ID, at)
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = repo.MarkCancelled(ctx, b.ID+100, at)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.ExistsOverlap(ctx, "Room A", b.Interval)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, repo.Create(ctx, pgBooking(owner, "Room A", ten, time.Hour)))
}

func TestPGBookingRepository_ListingsAndDelete(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBookingRepository(pool)
	owner := seededUser(t, pool, "user1")
	admin := seededUser(t, pool, "admin")
	ctx := context.Background()

	late := pgBooking(owner, "Room A", pgDay.Add(15*time.Hour), time.Hour)
	early := pgBooking(owner, "Room B", pgDay.Add(9*time.Hour), time.Hour)
	nextDay := pgBooking(admin, "Room A", pgDay.Add(33*time.Hour), time.Hour)
	for _, b := range []*domain.Booking{late, early, nextDay} {
		require.NoError(t, repo.Create(ctx, b))
	}
	_, err := repo.MarkCancelled(ctx, late.ID, pgDay)
	require.NoError(t, err)

	mine, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, early.ID, mine[0].ID)
	assert.Equal(t, late.ID, mine[1].ID)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, early.ID, active[0].ID)
	assert.Equal(t, nextDay.ID, active[1].ID)

	onDay, err := repo.ListActiveOnDate(ctx, pgDay.Add(23*time.Hour))
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, early.ID, onDay[0].ID)

	require.NoError(t, repo.Delete(ctx, early.ID))
	assert.ErrorIs(t, repo.Delete(ctx, early.ID), ErrNotFound)

	exists, err := repo.ExistsByID(ctx, early.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetByID(ctx, early.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGBookingRepository_WithResourceLockRollsBack(t *testing.T) {
	pool := newTestPool(t)
	repo := NewBookingRepository(pool)
	owner := seededUser(t, pool, "user1")
	ctx := context.Background()
	ten := pgDay.Add(10 * time.Hour)
	boom := errors.New("rule failed")

	err := repo.WithResourceLock(ctx, "Room A", func(ctx context.Context, tx BookingRepository) error {
		require.NoError(t, tx.Create(ctx, pgBooking(owner, "Room A", ten, time.Hour)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	err = repo.WithResourceLock(ctx, "Room A", func(ctx context.Context, tx BookingRepository) error {
		return tx.Create(ctx, pgBooking(owner, "Room A", ten, time.Hour))
	})
	require.NoError(t, err)

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPGUserRepository_GetByIDNotFound(t *testing.T) {
	pool := newTestPool(t)

	_, err := NewUserRepository(pool).GetByID(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}
