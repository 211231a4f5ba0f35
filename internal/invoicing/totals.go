package invoicing

import "math"

// Amounts are summed in minor units (cents) so float rounding never leaks into
// a subtotal.

// ToMinor converts an amount to cents.
func ToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinor converts cents back to an amount.
func FromMinor(minor int64) float64 {
	return float64(minor) / 100
}

// lineTotalMinor is price × quantity in minor units.
func lineTotalMinor(price float64, quantity int) int64 {
	return ToMinor(price) * int64(quantity)
}

// RecomputeTotals fills every item total and the invoice subtotal.
func RecomputeTotals(inv *Invoice) {
	var sum int64
	for i := range inv.Items {
		it := &inv.Items[i]
		line := lineTotalMinor(it.CustomPrice, it.Quantity)
		it.Total = FromMinor(line)
		sum += line
	}
	inv.Subtotal = FromMinor(sum)
}
