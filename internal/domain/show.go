package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Show is a screening on a screen at a start time, unique per
// (screen, start_time). Price is the per-seat amount snapshotted at booking
// time: the coordinator reads it exactly once inside the locked section, so
// concurrent price edits cannot change an in-flight total.
type Show struct {
	ID        int
	MovieID   int
	ScreenID  int
	StartTime time.Time
	Price     decimal.Decimal
}
