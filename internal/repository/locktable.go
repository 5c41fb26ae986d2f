package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/metinatakli/cinema-booking-engine/internal/domain"
)

// lockTable hands out exclusive in-process locks keyed by resource id. It
// backs the memory store the same way row locks back the Postgres store:
// callers acquire keys in canonical order and hold them until commit or
// abort.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[string]chan struct{}),
	}
}

func (t *lockTable) sem(key string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	sem, ok := t.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		t.locks[key] = sem
	}

	return sem
}

func (t *lockTable) acquire(ctx context.Context, key string, wait time.Duration) error {
	sem := t.sem(key)

	select {
	case sem <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return domain.ErrLockTimeout
	}
}

// acquireAll takes every key in the given order, releasing anything already
// held if one of them cannot be acquired in time.
func (t *lockTable) acquireAll(ctx context.Context, keys []string, wait time.Duration) error {
	for i, key := range keys {
		err := t.acquire(ctx, key, wait)
		if err != nil {
			t.releaseAll(keys[:i])
			return err
		}
	}

	return nil
}

func (t *lockTable) release(key string) {
	<-t.sem(key)
}

func (t *lockTable) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		t.release(keys[i])
	}
}

func showLockKey(showID int) string {
	return fmt.Sprintf("show:%d", showID)
}

func seatLockKey(seatID int) string {
	return fmt.Sprintf("seat:%d", seatID)
}

func bookingLockKey(bookingID int) string {
	return fmt.Sprintf("booking:%d", bookingID)
}
