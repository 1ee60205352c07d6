package service

import "github.com/shopspring/decimal"

// ToMinorUnits converts a major-unit amount to pence/cents, rounding half up.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}
