package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Gateways report amounts in their smallest currency unit (kobo, cents).
// Conversion to major units is exact decimal division by 10^scale; float64
// never touches a monetary value.

// MinorUnitScale is the number of decimal places used by the fiat gateways.
const MinorUnitScale = 2

// FromMinorUnits converts an integer minor-unit amount into a major-unit
// decimal, e.g. FromMinorUnits(500000, 2) == 5000.00.
func FromMinorUnits(amount int64, scale int32) decimal.Decimal {
	return decimal.New(amount, -scale)
}

// ToMinorUnits converts a major-unit decimal into integer minor units.
// It errors rather than rounding when the amount has more precision than
// the scale can represent.
func ToMinorUnits(amount decimal.Decimal, scale int32) (int64, error) {
	shifted := amount.Shift(scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-minor-unit precision", amount)
	}
	return shifted.IntPart(), nil
}
