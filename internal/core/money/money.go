// Package money provides helpers for amounts stored in minor currency units.
//
// All persisted amounts are integer cents. Decimal conversion happens only at
// the display edge (PDF rendering, API responses), never in arithmetic.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromCents converts an amount in minor units to a decimal major-unit value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as a fixed two-decimal string, e.g. 123450 -> "1234.50".
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// FormatWithCurrency renders cents with a currency code suffix,
// e.g. 10000, "EUR" -> "100.00 EUR".
func FormatWithCurrency(cents int64, currency string) string {
	return fmt.Sprintf("%s %s", Format(cents), currency)
}

// LineTotal computes price_cents * qty for an invoice line.
// Quantities are small positive integers; overflow is not a practical concern
// for invoice amounts, but the multiplication is kept in int64 explicitly.
func LineTotal(priceCents int64, qty int64) int64 {
	return priceCents * qty
}
