package entity

import (
	"fmt"
	"math"
	"strings"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/shopspring/decimal"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for money amounts
const MaxDecimalPlaces = 2

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ParseAmount validates a major-unit amount ("500", "10.5", "99.99") and converts it to minor units.
// Zero, negative and sub-cent values are rejected.
func ParseAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, amount)
	}
	if value.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}
	if !value.Equal(value.Truncate(MaxDecimalPlaces)) {
		return 0, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}

	minor := value.Shift(MaxDecimalPlaces)
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: amount out of range", errs.ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}

// FormatMinorUnits renders minor units as a major-unit string with two decimals.
// For example 50000 becomes "500.00".
func FormatMinorUnits(minor int64) string {
	return decimal.New(minor, -MaxDecimalPlaces).StringFixed(MaxDecimalPlaces)
}

// NormalizeCurrency upper-cases and validates a three letter ISO 4217 code
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidCurrency, currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", errs.ErrInvalidCurrency, currency)
		}
	}
	return code, nil
}
