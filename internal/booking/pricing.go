package booking

import "github.com/shopspring/decimal"

// TotalAmount computes the price of a seat set from the show's price
// snapshot. The caller must pass the price read from the locked show row so
// the total cannot be skewed by a concurrent price edit.
func TotalAmount(price decimal.Decimal, seatCount int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(seatCount)))
}
