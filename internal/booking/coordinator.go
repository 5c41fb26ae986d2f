package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinema-booking-engine/internal/domain"
)

const (
	DefaultMaxLockAttempts  = 3
	DefaultLockRetryBackoff = 50 * time.Millisecond
)

// Coordinator is the only component allowed to create or cancel bookings. It
// orchestrates catalog resolution, seat locking, conflict checking, pricing
// and the commit/abort decision as a single atomic unit per request.
type Coordinator struct {
	catalog domain.Catalog
	store   domain.BookingStore
	logger  *slog.Logger

	maxLockAttempts  int
	lockRetryBackoff time.Duration
}

func NewCoordinator(catalog domain.Catalog, store domain.BookingStore, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		catalog:          catalog,
		store:            store,
		logger:           logger,
		maxLockAttempts:  DefaultMaxLockAttempts,
		lockRetryBackoff: DefaultLockRetryBackoff,
	}
}

// CreateBooking reserves seatIDs for userID on showID, all-or-nothing. On
// success exactly one CONFIRMED booking holding the full seat set exists; on
// any failure no state changes at all.
//
// Returned errors: domain.ErrRecordNotFound, *domain.InvalidSeatError,
// *domain.SeatConflictError, domain.ErrLockTimeout (after internal retries),
// or an underlying storage error.
func (c *Coordinator) CreateBooking(ctx context.Context, showID, userID int, seatIDs []int) (*domain.Booking, error) {
	if err := validateSeatSet(seatIDs); err != nil {
		return nil, err
	}

	// Unlocked fast path: cheap rejection of requests that can never succeed.
	// Everything that matters for the commit decision is re-checked under lock.
	show, err := c.catalog.ResolveShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	if err := c.verifySeatsBelongToShow(ctx, show, seatIDs); err != nil {
		return nil, err
	}

	sorted := slices.Clone(seatIDs)
	slices.Sort(sorted)

	for attempt := 1; ; attempt++ {
		booking, err := c.tryCreateBooking(ctx, showID, userID, sorted)
		if err == nil {
			c.logger.Info("booking confirmed",
				"booking_id", booking.ID,
				"show_id", showID,
				"user_id", userID,
				"seat_count", len(sorted),
			)

			return booking, nil
		}

		if !errors.Is(err, domain.ErrLockTimeout) || attempt >= c.maxLockAttempts {
			return nil, err
		}

		backoff := c.lockRetryBackoff << (attempt - 1)
		c.logger.Warn("seat lock timed out, retrying",
			"show_id", showID,
			"attempt", attempt,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// tryCreateBooking runs one locked attempt. The store acquires the show and
// seat row locks in canonical order before invoking the callback, and the
// callback only ever runs with all of them held.
func (c *Coordinator) tryCreateBooking(ctx context.Context, showID, userID int, sortedSeatIDs []int) (*domain.Booking, error) {
	var booking *domain.Booking

	err := c.store.WithSeatLocks(ctx, showID, sortedSeatIDs, func(tx domain.BookingTxn, show domain.Show, seats []domain.Seat) error {
		// The catalog rows may have changed between the fast path and the lock
		// acquisition; the locked rows are the authoritative ones.
		if len(seats) != len(sortedSeatIDs) {
			return &domain.InvalidSeatError{Reason: "one or more seats no longer exist"}
		}

		for _, seat := range seats {
			if seat.ScreenID != show.ScreenID {
				return &domain.InvalidSeatError{
					Reason: fmt.Sprintf("seat %d does not belong to the show's screen", seat.ID),
				}
			}
		}

		conflicts, err := tx.ActiveSeatConflicts(ctx, showID, sortedSeatIDs)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return &domain.SeatConflictError{SeatIDs: conflicts}
		}

		b := domain.Booking{
			Reference:   uuid.New().String(),
			UserID:      userID,
			ShowID:      showID,
			SeatIDs:     sortedSeatIDs,
			TotalAmount: TotalAmount(show.Price, len(sortedSeatIDs)),
			Status:      domain.BookingConfirmed,
		}

		if err := tx.CreateBooking(ctx, &b); err != nil {
			return err
		}

		booking = &b

		return nil
	})

	if err != nil {
		return nil, err
	}

	return booking, nil
}

// CancelBooking transitions an active booking owned by userID to CANCELLED.
// Only the booking's own row is locked: new reservation attempts re-derive
// the active seat set from booking status, so no seat locks are needed for
// the cancellation to become visible to them.
func (c *Coordinator) CancelBooking(ctx context.Context, bookingID, userID int) error {
	return c.store.WithBookingLock(ctx, bookingID, func(tx domain.BookingTxn) error {
		booking, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if booking.UserID != userID {
			return domain.ErrNotOwner
		}

		if booking.Status == domain.BookingCancelled {
			return domain.ErrInvalidTransition
		}

		err = tx.UpdateBookingStatus(ctx, bookingID, domain.BookingCancelled)
		if err != nil {
			return err
		}

		c.logger.Info("booking cancelled", "booking_id", bookingID, "user_id", userID)

		return nil
	})
}

func validateSeatSet(seatIDs []int) error {
	if len(seatIDs) == 0 {
		return &domain.InvalidSeatError{Reason: "seat set must not be empty"}
	}

	seen := make(map[int]bool, len(seatIDs))

	for _, id := range seatIDs {
		if seen[id] {
			return &domain.InvalidSeatError{Reason: fmt.Sprintf("seat %d requested more than once", id)}
		}

		seen[id] = true
	}

	return nil
}

func (c *Coordinator) verifySeatsBelongToShow(ctx context.Context, show *domain.Show, seatIDs []int) error {
	seats, err := c.catalog.ResolveSeats(ctx, seatIDs)
	if err != nil {
		return err
	}

	if len(seats) != len(seatIDs) {
		return &domain.InvalidSeatError{Reason: "one or more seats do not exist"}
	}

	for _, seat := range seats {
		if seat.ScreenID != show.ScreenID {
			return &domain.InvalidSeatError{
				Reason: fmt.Sprintf("seat %d does not belong to the show's screen", seat.ID),
			}
		}
	}

	return nil
}
