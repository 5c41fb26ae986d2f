package domain

// Screen is a fixed row/column auditorium grid. Screens are immutable once
// created as far as the booking engine is concerned.
type Screen struct {
	ID   int
	Name string
	Rows int
	Cols int
}

// Seat belongs to exactly one screen and is unique per (screen, row, col).
// Seats are never deleted while a booking references them.
type Seat struct {
	ID       int
	ScreenID int
	Row      int
	Col      int
}
