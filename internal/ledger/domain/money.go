package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits every amount carries.
const MoneyPlaces = 2

// ParseAmount parses a decimal string into a positive amount with at most two
// fractional digits. Trailing zeros beyond the second place are tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewLedgerError(ErrInvalidAmount, "", "", fmt.Errorf("amount is required"))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewLedgerError(ErrInvalidAmount, "", "", err)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects non-positive amounts and amounts finer than a kobo.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewLedgerError(ErrInvalidAmount, "", "", fmt.Errorf("amount must be greater than zero"))
	}
	if !d.Equal(d.Truncate(MoneyPlaces)) {
		return NewLedgerError(ErrInvalidAmount, "", "", fmt.Errorf("amount %s has more than %d decimal places", d.String(), MoneyPlaces))
	}
	return nil
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
