package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
)

// MemoryCatalog is an in-memory catalog used by the degraded-mode store and
// by tests. Records are seeded up front; the engine only reads.
type MemoryCatalog struct {
	mu      sync.RWMutex
	screens map[int]domain.Screen
	seats   map[int]domain.Seat
	shows   map[int]domain.Show
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		screens: make(map[int]domain.Screen),
		seats:   make(map[int]domain.Seat),
		shows:   make(map[int]domain.Show),
	}
}

func (c *MemoryCatalog) SeedScreen(screen domain.Screen, seats ...domain.Seat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.screens[screen.ID] = screen

	for _, seat := range seats {
		c.seats[seat.ID] = seat
	}
}

func (c *MemoryCatalog) SeedShow(show domain.Show) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shows[show.ID] = show
}

func (c *MemoryCatalog) ResolveShow(ctx context.Context, showID int) (*domain.Show, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	show, ok := c.shows[showID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &show, nil
}

func (c *MemoryCatalog) ResolveSeats(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seats := make([]domain.Seat, 0, len(seatIDs))

	for _, id := range seatIDs {
		seat, ok := c.seats[id]
		if !ok {
			continue
		}

		seats = append(seats, seat)
	}

	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })

	return seats, nil
}

func (c *MemoryCatalog) GetScreen(ctx context.Context, screenID int) (*domain.Screen, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	screen, ok := c.screens[screenID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &screen, nil
}

func (c *MemoryCatalog) SeatsByScreen(ctx context.Context, screenID int) ([]domain.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seats := make([]domain.Seat, 0)

	for _, seat := range c.seats {
		if seat.ScreenID == screenID {
			seats = append(seats, seat)
		}
	}

	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}

		return seats[i].Col < seats[j].Col
	})

	return seats, nil
}
