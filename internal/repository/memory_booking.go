package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
)

// MemoryBookingStore is the degraded-mode implementation of
// domain.BookingStore, used when the primary store is unreachable and by the
// engine's own tests. It goes through the same coordinator as the Postgres
// store, so the one-active-booking-per-seat invariant is enforced uniformly:
// the lock table plays the role of row locks, acquired in the same canonical
// order.
type MemoryBookingStore struct {
	catalog  *MemoryCatalog
	locks    *lockTable
	lockWait time.Duration

	mu       sync.RWMutex
	bookings map[int]domain.Booking
	nextID   int
}

func NewMemoryBookingStore(catalog *MemoryCatalog, lockWait time.Duration) *MemoryBookingStore {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}

	return &MemoryBookingStore{
		catalog:  catalog,
		locks:    newLockTable(),
		lockWait: lockWait,
		bookings: make(map[int]domain.Booking),
		nextID:   1,
	}
}

func (m *MemoryBookingStore) WithSeatLocks(
	ctx context.Context,
	showID int,
	seatIDs []int,
	fn func(tx domain.BookingTxn, show domain.Show, seats []domain.Seat) error) error {

	sorted := slices.Clone(seatIDs)
	slices.Sort(sorted)

	keys := make([]string, 0, len(sorted)+1)
	keys = append(keys, showLockKey(showID))
	for _, seatID := range sorted {
		keys = append(keys, seatLockKey(seatID))
	}

	if err := m.locks.acquireAll(ctx, keys, m.lockWait); err != nil {
		return err
	}
	defer m.locks.releaseAll(keys)

	show, err := m.catalog.ResolveShow(ctx, showID)
	if err != nil {
		return err
	}

	seats, err := m.catalog.ResolveSeats(ctx, sorted)
	if err != nil {
		return err
	}

	txn := &memoryBookingTxn{store: m}

	if err := fn(txn, *show, seats); err != nil {
		txn.rollback()
		return err
	}

	return nil
}

func (m *MemoryBookingStore) WithBookingLock(
	ctx context.Context,
	bookingID int,
	fn func(tx domain.BookingTxn) error) error {

	key := bookingLockKey(bookingID)

	if err := m.locks.acquire(ctx, key, m.lockWait); err != nil {
		return err
	}
	defer m.locks.release(key)

	txn := &memoryBookingTxn{store: m}

	if err := fn(txn); err != nil {
		txn.rollback()
		return err
	}

	return nil
}

func (m *MemoryBookingStore) ActiveSeatIDsByShow(ctx context.Context, showID int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seatIDs := make([]int, 0)

	for _, booking := range m.bookings {
		if booking.ShowID == showID && booking.Status.Active() {
			seatIDs = append(seatIDs, booking.SeatIDs...)
		}
	}

	sort.Ints(seatIDs)

	return seatIDs, nil
}

func (m *MemoryBookingStore) GetBookingsByUser(ctx context.Context, userID int) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bookings := make([]domain.Booking, 0)

	for _, booking := range m.bookings {
		if booking.UserID == userID {
			bookings = append(bookings, cloneBooking(booking))
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}

		return bookings[i].ID > bookings[j].ID
	})

	return bookings, nil
}

// memoryBookingTxn stages mutations so a failed callback leaves no partial
// state behind, mirroring a transaction rollback.
type memoryBookingTxn struct {
	store          *MemoryBookingStore
	createdID      int
	previousStatus map[int]domain.BookingStatus
}

func (t *memoryBookingTxn) ActiveSeatConflicts(ctx context.Context, showID int, seatIDs []int) ([]int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	requested := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		requested[id] = true
	}

	conflicts := make([]int, 0)

	for _, booking := range t.store.bookings {
		if booking.ShowID != showID || !booking.Status.Active() {
			continue
		}

		for _, seatID := range booking.SeatIDs {
			if requested[seatID] {
				conflicts = append(conflicts, seatID)
				requested[seatID] = false
			}
		}
	}

	sort.Ints(conflicts)

	return conflicts, nil
}

func (t *memoryBookingTxn) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	booking.ID = t.store.nextID
	t.store.nextID++
	booking.CreatedAt = time.Now().UTC()

	t.store.bookings[booking.ID] = cloneBooking(*booking)
	t.createdID = booking.ID

	return nil
}

func (t *memoryBookingTxn) BookingForUpdate(ctx context.Context, bookingID int) (*domain.Booking, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	booking, ok := t.store.bookings[bookingID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	clone := cloneBooking(booking)

	return &clone, nil
}

func (t *memoryBookingTxn) UpdateBookingStatus(ctx context.Context, bookingID int, status domain.BookingStatus) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	booking, ok := t.store.bookings[bookingID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	if t.previousStatus == nil {
		t.previousStatus = make(map[int]domain.BookingStatus)
	}
	if _, recorded := t.previousStatus[bookingID]; !recorded {
		t.previousStatus[bookingID] = booking.Status
	}

	booking.Status = status
	t.store.bookings[bookingID] = booking

	return nil
}

func (t *memoryBookingTxn) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.createdID != 0 {
		delete(t.store.bookings, t.createdID)
	}

	for id, status := range t.previousStatus {
		if booking, ok := t.store.bookings[id]; ok {
			booking.Status = status
			t.store.bookings[id] = booking
		}
	}
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.SeatIDs = slices.Clone(b.SeatIDs)
	return b
}
