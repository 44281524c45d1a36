package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Bounds for quantities and prices of a single trade.
const (
	MaxAmountIntegerDigits = 18
	MaxAmountScale         = 18
)

// ValidateAmount checks that d is positive, below 10^MaxAmountIntegerDigits and
// has at most MaxAmountScale fractional digits.
func ValidateAmount(field string, d decimal.Decimal) error {
	return checkAmount(field, d, MaxAmountScale)
}

// ValidateTotal checks a quantity*price product. Its scale may be the sum of
// both operand scales.
func ValidateTotal(d decimal.Decimal) error {
	return checkAmount("total", d, 2*MaxAmountScale)
}

func checkAmount(field string, d decimal.Decimal, maxScale int) error {
	if !d.IsPositive() {
		return errors.Wrapf(ErrValidation, "%s must be positive", field)
	}

	// exponent first: NumDigits walks the whole coefficient
	exp := int(d.Exponent())
	if exp < -maxScale {
		return errors.Wrapf(ErrValidation, "%s has more than %d decimal places", field, maxScale)
	}
	if exp > MaxAmountIntegerDigits {
		return errors.Wrapf(ErrValidation, "%s is too large", field)
	}
	if d.NumDigits()+exp > MaxAmountIntegerDigits {
		return errors.Wrapf(ErrValidation, "%s is too large", field)
	}
	return nil
}
