package mocks

import (
	"context"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingStore struct {
	mock.Mock
	domain.BookingStore
}

func (m *MockBookingStore) WithSeatLocks(
	ctx context.Context,
	showID int,
	seatIDs []int,
	fn func(tx domain.BookingTxn, show domain.Show, seats []domain.Seat) error) error {

	args := m.Called(ctx, showID, seatIDs, fn)
	return args.Error(0)
}

func (m *MockBookingStore) WithBookingLock(
	ctx context.Context,
	bookingID int,
	fn func(tx domain.BookingTxn) error) error {

	args := m.Called(ctx, bookingID, fn)
	return args.Error(0)
}

func (m *MockBookingStore) ActiveSeatIDsByShow(ctx context.Context, showID int) ([]int, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockBookingStore) GetBookingsByUser(ctx context.Context, userID int) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}
