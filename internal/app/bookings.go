package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	SeatIds []int `json:"seat_ids" validate:"required,min=1,unique,dive,min=1"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type UserBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type Booking struct {
	Id          int             `json:"id"`
	Reference   string          `json:"reference"`
	ShowId      int             `json:"show_id"`
	SeatIds     []int           `json:"seat_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showID, err := app.readIDParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CreateBookingRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)
	start := time.Now()

	booking, err := app.coordinator.CreateBooking(r.Context(), showID, userID, input.SeatIds)

	app.metrics.observeBookingDuration(r.Context(), time.Since(start))

	if err != nil {
		var invalidSeat *domain.InvalidSeatError
		var seatConflict *domain.SeatConflictError

		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.As(err, &invalidSeat):
			logger.Warn("booking rejected on seat validation", "show_id", showID, "reason", invalidSeat.Reason)
			app.errorResponse(w, r, http.StatusUnprocessableEntity, invalidSeat.Error())
		case errors.As(err, &seatConflict):
			logger.Warn("booking lost the race for its seats", "show_id", showID, "conflict_seats", seatConflict.SeatIDs)
			app.metrics.addSeatConflict(r.Context())
			app.seatConflictResponse(w, r, seatConflict)
		case errors.Is(err, domain.ErrLockTimeout):
			logger.Warn("booking gave up waiting for seat locks", "show_id", showID)
			app.metrics.addLockTimeout(r.Context())
			app.errorResponse(w, r, http.StatusServiceUnavailable, ErrServiceBusy)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.addBookingConfirmed(r.Context())

	resp := BookingResponse{
		Booking: toApiBooking(*booking),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	err = app.coordinator.CancelBooking(r.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrNotOwner):
			app.errorResponse(w, r, http.StatusForbidden, ErrNotOwner)
		case errors.Is(err, domain.ErrInvalidTransition):
			app.errorResponse(w, r, http.StatusConflict, ErrAlreadyCancelled)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) ListUserBookingsHandler(w http.ResponseWriter, r *http.Request) {
	userID := app.contextGetUserId(r)

	bookings, err := app.bookingStore.GetBookingsByUser(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := UserBookingsResponse{
		Bookings: make([]Booking, len(bookings)),
	}

	for i, b := range bookings {
		resp.Bookings[i] = toApiBooking(b)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiBooking(b domain.Booking) Booking {
	return Booking{
		Id:          b.ID,
		Reference:   b.Reference,
		ShowId:      b.ShowID,
		SeatIds:     b.SeatIDs,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}
