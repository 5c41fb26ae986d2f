package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Active reports whether a booking in this status holds its seats.
// Cancelled bookings release their seats implicitly by leaving the active set.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking is created only by the booking coordinator and never partially:
// either it exists with its full seat set committed, or it does not exist.
type Booking struct {
	ID          int
	Reference   string
	UserID      int
	ShowID      int
	SeatIDs     []int
	TotalAmount decimal.Decimal
	Status      BookingStatus
	CreatedAt   time.Time
}

// Catalog resolves show and seat records owned by the catalog collaborator.
// The engine only ever reads from it.
type Catalog interface {
	ResolveShow(ctx context.Context, showID int) (*Show, error)
	ResolveSeats(ctx context.Context, seatIDs []int) ([]Seat, error)
	GetScreen(ctx context.Context, screenID int) (*Screen, error)
	SeatsByScreen(ctx context.Context, screenID int) ([]Seat, error)
}

// BookingTxn is the transactional view handed to callbacks while the relevant
// row locks are held. Conflict checks are only meaningful through a BookingTxn;
// outside a locked section the answer is stale the instant it returns.
type BookingTxn interface {
	// ActiveSeatConflicts returns the subset of seatIDs already referenced by an
	// active booking for the show.
	ActiveSeatConflicts(ctx context.Context, showID int, seatIDs []int) ([]int, error)
	CreateBooking(ctx context.Context, booking *Booking) error
	BookingForUpdate(ctx context.Context, bookingID int) (*Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID int, status BookingStatus) error
}

// BookingStore owns booking persistence and the seat lock discipline.
//
// WithSeatLocks runs fn inside a single transaction holding exclusive locks on
// the show row and each seat row. Locks are always acquired in canonical order
// (show id first, then seat ids ascending) so overlapping requests cannot form
// a wait cycle. fn receives the locked show row, which carries the
// authoritative price snapshot, and the locked seat rows. Locks are released
// on commit or rollback, never earlier.
//
// WithBookingLock locks only the booking's own row; cancellations do not need
// seat locks because reservation attempts re-derive the active set from
// booking status.
type BookingStore interface {
	WithSeatLocks(ctx context.Context, showID int, seatIDs []int, fn func(tx BookingTxn, show Show, seats []Seat) error) error
	WithBookingLock(ctx context.Context, bookingID int, fn func(tx BookingTxn) error) error

	// ActiveSeatIDsByShow is a lock-free read for availability display. The
	// result may be stale; it must never feed a commit decision.
	ActiveSeatIDsByShow(ctx context.Context, showID int) ([]int, error)
	GetBookingsByUser(ctx context.Context, userID int) ([]Booking, error)
}
