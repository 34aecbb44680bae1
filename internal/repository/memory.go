package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/roombooking/internal/domain"
)

// MemoryBookingRepository keeps bookings in process memory. It backs the
// "memory" storage driver and the lifecycle tests.
type MemoryBookingRepository struct {
	mu     sync.RWMutex
	byID   map[int64]*domain.Booking
	nextID int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		byID:  make(map[int64]*domain.Booking),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *MemoryBookingRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok, nil
}

func (r *MemoryBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return r.filter(ctx, func(b *domain.Booking) bool {
		return b.Owner.ID == ownerID
	})
}

func (r *MemoryBookingRepository) ListActive(ctx context.Context) ([]domain.Booking, error) {
	return r.filter(ctx, func(b *domain.Booking) bool {
		return b.IsActive()
	})
}

func (r *MemoryBookingRepository) ListActiveOnDate(ctx context.Context, day time.Time) ([]domain.Booking, error) {
	from, to := DayRange(day)
	return r.filter(ctx, func(b *domain.Booking) bool {
		start := b.Interval.Start
		return b.IsActive() && !start.Before(from) && start.Before(to)
	})
}

func (r *MemoryBookingRepository) ExistsOverlap(ctx context.Context, resourceName string, interval domain.Interval) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.overlapsLocked(resourceName, interval), nil
}

func (r *MemoryBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// same guarantee the Postgres exclusion constraint gives
	if booking.IsActive() && r.overlapsLocked(booking.ResourceName, booking.Interval) {
		return ErrOverlap
	}

	r.nextID++
	booking.ID = r.nextID
	r.byID[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *MemoryBookingRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !b.Cancel(at) {
		return nil, ErrNotActive
	}
	return cloneBooking(b), nil
}

func (r *MemoryBookingRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryBookingRepository) WithResourceLock(ctx context.Context, resourceName string, fn func(ctx context.Context, repo BookingRepository) error) error {
	lock := r.resourceLock(resourceName)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, r)
}

func (r *MemoryBookingRepository) resourceLock(resourceName string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[resourceName]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[resourceName] = lock
	}
	return lock
}

func (r *MemoryBookingRepository) overlapsLocked(resourceName string, interval domain.Interval) bool {
	for _, b := range r.byID {
		if b.IsActive() && b.ResourceName == resourceName && b.Interval.Overlaps(interval) {
			return true
		}
	}
	return false
}

func (r *MemoryBookingRepository) filter(ctx context.Context, keep func(b *domain.Booking) bool) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.byID {
		if keep(b) {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interval.Start.Equal(out[j].Interval.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Interval.Start.Before(out[j].Interval.Start)
	})
	return out, nil
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]domain.User
}

func NewMemoryUserRepository(users ...domain.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[int64]domain.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// SeedUsers mirrors the rows inserted by the first migration.
func SeedUsers() []domain.User {
	return []domain.User{
		{ID: 1, Username: "admin", DisplayName: "Admin User", Role: domain.RoleAdmin},
		{ID: 2, Username: "user1", DisplayName: "Regular User", Role: domain.RoleUser},
	}
}
