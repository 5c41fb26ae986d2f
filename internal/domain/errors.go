package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrNotOwner          = errors.New("booking belongs to another user")
	ErrInvalidTransition = errors.New("booking is already cancelled")
	ErrLockTimeout       = errors.New("could not acquire seat locks in time")
)

// InvalidSeatError covers every way a requested seat set can be malformed:
// duplicate ids, unknown ids, or seats from a different screen than the show.
type InvalidSeatError struct {
	Reason string
}

func (e *InvalidSeatError) Error() string {
	return "invalid seat selection: " + e.Reason
}

// SeatConflictError reports which requested seats are already held by an
// active booking, so callers can show them to the user.
type SeatConflictError struct {
	SeatIDs []int
}

func (e *SeatConflictError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = strconv.Itoa(id)
	}

	return fmt.Sprintf("seat(s) already booked: %s", strings.Join(ids, ", "))
}
