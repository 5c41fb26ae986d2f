package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PostgresCatalog reads screen, seat and show records owned by the catalog
// side of the system. The booking engine never writes through it.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{
		db: db,
	}
}

func (p *PostgresCatalog) ResolveShow(ctx context.Context, showID int) (*domain.Show, error) {
	query := `
		SELECT id, movie_id, screen_id, start_time, price
		FROM shows
		WHERE id = $1
	`

	var show domain.Show
	var price pgtype.Numeric

	err := p.db.QueryRow(ctx, query, showID).Scan(
		&show.ID,
		&show.MovieID,
		&show.ScreenID,
		&show.StartTime,
		&price,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	show.Price = numericToDecimal(price)

	return &show, nil
}

func (p *PostgresCatalog) ResolveSeats(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
	query := `
		SELECT id, screen_id, seat_row, seat_col
		FROM seats
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows, len(seatIDs))
}

func (p *PostgresCatalog) GetScreen(ctx context.Context, screenID int) (*domain.Screen, error) {
	query := `
		SELECT id, name, seat_rows, seat_cols
		FROM screens
		WHERE id = $1
	`

	var screen domain.Screen

	err := p.db.QueryRow(ctx, query, screenID).Scan(
		&screen.ID,
		&screen.Name,
		&screen.Rows,
		&screen.Cols,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &screen, nil
}

func (p *PostgresCatalog) SeatsByScreen(ctx context.Context, screenID int) ([]domain.Seat, error) {
	query := `
		SELECT id, screen_id, seat_row, seat_col
		FROM seats
		WHERE screen_id = $1
		ORDER BY seat_row, seat_col
	`

	rows, err := p.db.Query(ctx, query, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows, 0)
}

func scanSeats(rows pgx.Rows, capacity int) ([]domain.Seat, error) {
	seats := make([]domain.Seat, 0, capacity)

	for rows.Next() {
		var seat domain.Seat

		err := rows.Scan(&seat.ID, &seat.ScreenID, &seat.Row, &seat.Col)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func numericToDecimal(numeric pgtype.Numeric) decimal.Decimal {
	if !numeric.Valid {
		return decimal.Zero
	}

	float64Value, err := numeric.Float64Value()
	if err != nil {
		return decimal.Zero
	}

	return decimal.NewFromFloat(float64Value.Float64)
}
