package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinema-booking-engine", otelchi.WithChiRoutes(r)))
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)

	r.Route("/shows/{showID}", func(r chi.Router) {
		r.Get("/seats", app.GetSeatMapByShowHandler)
		r.With(app.requireUser).Post("/bookings", app.CreateBookingHandler)
	})

	r.With(app.requireUser).Route("/users/me/bookings", func(r chi.Router) {
		r.Get("/", app.ListUserBookingsHandler)
		r.Delete("/{bookingID}", app.CancelBookingHandler)
	})

	return r
}
