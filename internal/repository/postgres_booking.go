package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking-engine/internal/domain"
)

const DefaultLockWait = 3 * time.Second

// PostgresBookingStore persists bookings and implements the seat lock
// discipline with row locks. A lock dies with its transaction, so a crashed
// process can never leave a dangling hold.
type PostgresBookingStore struct {
	db       *pgxpool.Pool
	lockWait time.Duration
}

func NewPostgresBookingStore(db *pgxpool.Pool, lockWait time.Duration) *PostgresBookingStore {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}

	return &PostgresBookingStore{
		db:       db,
		lockWait: lockWait,
	}
}

func (p *PostgresBookingStore) WithSeatLocks(
	ctx context.Context,
	showID int,
	seatIDs []int,
	fn func(tx domain.BookingTxn, show domain.Show, seats []domain.Seat) error) error {

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		if err := setLockTimeout(ctx, tx, p.lockWait); err != nil {
			return err
		}

		// Canonical order: the show row first, then seat rows ascending by id.
		// Every caller locks in this order, so overlapping requests cannot
		// form a wait cycle.
		show, err := showForUpdate(ctx, tx, showID)
		if err != nil {
			return err
		}

		seats, err := seatsForUpdate(ctx, tx, seatIDs)
		if err != nil {
			return err
		}

		return fn(&pgxBookingTxn{tx: tx}, *show, seats)
	})

	return mapLockError(err)
}

func (p *PostgresBookingStore) WithBookingLock(
	ctx context.Context,
	bookingID int,
	fn func(tx domain.BookingTxn) error) error {

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		if err := setLockTimeout(ctx, tx, p.lockWait); err != nil {
			return err
		}

		return fn(&pgxBookingTxn{tx: tx})
	})

	return mapLockError(err)
}

func (p *PostgresBookingStore) ActiveSeatIDsByShow(ctx context.Context, showID int) ([]int, error) {
	query := `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON bs.booking_id = b.id
		WHERE bs.show_id = $1 AND b.status IN ('PENDING', 'CONFIRMED')
		ORDER BY bs.seat_id
	`

	rows, err := p.db.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeatIDs(rows)
}

func (p *PostgresBookingStore) GetBookingsByUser(ctx context.Context, userID int) ([]domain.Booking, error) {
	query := `
		SELECT
			b.id,
			b.reference,
			b.user_id,
			b.show_id,
			b.total_amount,
			b.status,
			b.created_at,
			ARRAY_AGG(bs.seat_id ORDER BY bs.seat_id)
		FROM bookings b
		JOIN booking_seats bs ON bs.booking_id = b.id
		WHERE b.user_id = $1
		GROUP BY b.id
		ORDER BY b.created_at DESC
	`

	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking
		var amount pgtype.Numeric

		err = rows.Scan(
			&booking.ID,
			&booking.Reference,
			&booking.UserID,
			&booking.ShowID,
			&amount,
			&booking.Status,
			&booking.CreatedAt,
			&booking.SeatIDs,
		)
		if err != nil {
			return nil, err
		}

		booking.TotalAmount = numericToDecimal(amount)

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

type pgxBookingTxn struct {
	tx pgx.Tx
}

func (t *pgxBookingTxn) ActiveSeatConflicts(ctx context.Context, showID int, seatIDs []int) ([]int, error) {
	query := `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON bs.booking_id = b.id
		WHERE bs.show_id = $1
			AND bs.seat_id = ANY($2)
			AND b.status IN ('PENDING', 'CONFIRMED')
		ORDER BY bs.seat_id
	`

	rows, err := t.tx.Query(ctx, query, showID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeatIDs(rows)
}

func (t *pgxBookingTxn) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (reference, user_id, show_id, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := t.tx.QueryRow(
		ctx,
		query,
		booking.Reference,
		booking.UserID,
		booking.ShowID,
		booking.TotalAmount.String(),
		booking.Status).Scan(&booking.ID, &booking.CreatedAt)

	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(booking.SeatIDs))
	for _, seatID := range booking.SeatIDs {
		rows = append(rows, []any{
			booking.ID,
			booking.ShowID,
			seatID,
		})
	}

	_, err = t.tx.CopyFrom(
		ctx,
		pgx.Identifier{"booking_seats"},
		[]string{"booking_id", "show_id", "seat_id"},
		pgx.CopyFromRows(rows),
	)

	return err
}

func (t *pgxBookingTxn) BookingForUpdate(ctx context.Context, bookingID int) (*domain.Booking, error) {
	query := `
		SELECT id, reference, user_id, show_id, total_amount, status, created_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`

	var booking domain.Booking
	var amount pgtype.Numeric

	err := t.tx.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.ShowID,
		&amount,
		&booking.Status,
		&booking.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	booking.TotalAmount = numericToDecimal(amount)

	seatQuery := `
		SELECT seat_id
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_id
	`

	rows, err := t.tx.Query(ctx, seatQuery, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booking.SeatIDs, err = scanSeatIDs(rows)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (t *pgxBookingTxn) UpdateBookingStatus(ctx context.Context, bookingID int, status domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := t.tx.Exec(ctx, query, bookingID, status)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func showForUpdate(ctx context.Context, tx pgx.Tx, showID int) (*domain.Show, error) {
	query := `
		SELECT id, movie_id, screen_id, start_time, price
		FROM shows
		WHERE id = $1
		FOR UPDATE
	`

	var show domain.Show
	var price pgtype.Numeric

	err := tx.QueryRow(ctx, query, showID).Scan(
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

func seatsForUpdate(ctx context.Context, tx pgx.Tx, seatIDs []int) ([]domain.Seat, error) {
	query := `
		SELECT id, screen_id, seat_row, seat_col
		FROM seats
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0, len(seatIDs))

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(&seat.ID, &seat.ScreenID, &seat.Row, &seat.Col)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

func setLockTimeout(ctx context.Context, tx pgx.Tx, wait time.Duration) error {
	// SET LOCAL cannot take bind parameters; the value is a duration we own.
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds()))
	return err
}

// mapLockError translates an exhausted lock wait into the engine's transient
// error kind. A timed-out lock means the seat state is unknown, which is a
// different outcome than a proven conflict.
func mapLockError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.LockNotAvailable {
		return domain.ErrLockTimeout
	}

	return err
}

func scanSeatIDs(rows pgx.Rows) ([]int, error) {
	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}
