package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

type SeatMapResponse struct {
	ShowId     int       `json:"show_id"`
	ScreenId   int       `json:"screen_id"`
	ScreenName string    `json:"screen_name"`
	SeatRows   []SeatRow `json:"seat_rows"`
}

type SeatRow struct {
	Row   int        `json:"row"`
	Seats []SeatInfo `json:"seats"`
}

type SeatInfo struct {
	Id        int  `json:"id"`
	Row       int  `json:"row"`
	Column    int  `json:"column"`
	Available bool `json:"available"`
}

// GetSeatMapByShowHandler serves the availability display. The read is
// lock-free and cached: a recent-but-possibly-stale snapshot is fine for
// display and is never used for a commit decision.
func (app *Application) GetSeatMapByShowHandler(w http.ResponseWriter, r *http.Request) {
	showID, err := app.readIDParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	show, err := app.catalog.ResolveShow(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	screen, err := app.catalog.GetScreen(r.Context(), show.ScreenID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	seats, err := app.catalog.SeatsByScreen(r.Context(), screen.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	takenSeatIDs, err := app.activeSeatIDs(r.Context(), showID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	taken := make(map[int]bool, len(takenSeatIDs))
	for _, seatID := range takenSeatIDs {
		taken[seatID] = true
	}

	resp := SeatMapResponse{
		ShowId:     showID,
		ScreenId:   screen.ID,
		ScreenName: screen.Name,
		SeatRows:   toSeatRows(seats, taken),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// activeSeatIDs reads the taken-seat snapshot through a short-TTL cache.
// Cache failures degrade to the direct store read, never to an error page.
func (app *Application) activeSeatIDs(ctx context.Context, showID int) ([]int, error) {
	key := seatMapKey(showID)

	if app.redis != nil {
		cached, err := app.redis.Get(ctx, key).Bytes()
		if err == nil {
			var seatIDs []int
			if err := json.Unmarshal(cached, &seatIDs); err == nil {
				return seatIDs, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			app.logger.Warn("seat map cache read failed", "show_id", showID, "error", err)
		}
	}

	seatIDs, err := app.bookingStore.ActiveSeatIDsByShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	if app.redis != nil {
		payload, err := json.Marshal(seatIDs)
		if err == nil {
			err = app.redis.Set(ctx, key, payload, app.config.SeatMapTTL).Err()
		}

		if err != nil {
			app.logger.Warn("seat map cache write failed", "show_id", showID, "error", err)
		}
	}

	return seatIDs, nil
}

func seatMapKey(showID int) string {
	return fmt.Sprintf("seat_map:%d", showID)
}

func toSeatRows(seats []domain.Seat, taken map[int]bool) []SeatRow {
	// Seats arrive pre-sorted by row, col, so one pass is enough.
	seatRows := make([]SeatRow, 0)

	for _, seat := range seats {
		if len(seatRows) == 0 || seatRows[len(seatRows)-1].Row != seat.Row {
			seatRows = append(seatRows, SeatRow{Row: seat.Row})
		}

		row := &seatRows[len(seatRows)-1]
		row.Seats = append(row.Seats, SeatInfo{
			Id:        seat.ID,
			Row:       seat.Row,
			Column:    seat.Col,
			Available: !taken[seat.ID],
		})
	}

	return seatRows
}
