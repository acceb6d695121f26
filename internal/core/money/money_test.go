package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "0.01", Format(1))
	assert.Equal(t, "1234.50", Format(123450))
	assert.Equal(t, "-99.99", Format(-9999))
}

func TestFormatWithCurrency(t *testing.T) {
	assert.Equal(t, "100.00 EUR", FormatWithCurrency(10000, "EUR"))
	assert.Equal(t, "0.05 USD", FormatWithCurrency(5, "USD"))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, int64(3000), LineTotal(1500, 2))
	assert.Equal(t, int64(0), LineTotal(1500, 0))
	assert.Equal(t, int64(999), LineTotal(999, 1))
}

func TestFromCents(t *testing.T) {
	d := FromCents(123456)
	assert.Equal(t, "1234.56", d.StringFixed(2))
}
