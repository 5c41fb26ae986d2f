package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/metinatakli/cinema-booking-engine/internal/booking"
	"github.com/metinatakli/cinema-booking-engine/internal/domain"
	"github.com/metinatakli/cinema-booking-engine/internal/repository"
	"github.com/metinatakli/cinema-booking-engine/internal/validator"
	"github.com/shopspring/decimal"
)

const (
	testScreenID = 1
	testShowID   = 500
	testSeats    = 10
)

// newTestApplication wires the engine against the in-memory store. Handler
// tests exercise the real coordinator; options swap in mocks where an error
// path needs forcing.
func newTestApplication(opts ...func(*Application)) *Application {
	catalog := repository.NewMemoryCatalog()

	seats := make([]domain.Seat, testSeats)
	for i := range seats {
		seats[i] = domain.Seat{ID: i + 1, ScreenID: testScreenID, Row: 1, Col: i + 1}
	}

	catalog.SeedScreen(domain.Screen{ID: testScreenID, Name: "A", Rows: 1, Cols: testSeats}, seats...)
	catalog.SeedShow(domain.Show{
		ID:        testShowID,
		MovieID:   1,
		ScreenID:  testScreenID,
		StartTime: time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC),
		Price:     decimal.NewFromInt(250),
	})

	store := repository.NewMemoryBookingStore(catalog, time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := &Application{
		config:       Config{Env: "test", SeatMapTTL: time.Second},
		logger:       logger,
		validator:    validator.NewValidator(),
		catalog:      catalog,
		bookingStore: store,
		coordinator:  booking.NewCoordinator(catalog, store, logger),
		metrics:      newMetrics(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, handler http.Handler, method, url string, userID int, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}

		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")

	if userID != 0 {
		r.Header.Set("X-User-Id", strconv.Itoa(userID))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T

	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return v
}
