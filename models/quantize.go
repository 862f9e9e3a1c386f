package models

import "github.com/shopspring/decimal"

// UnitDecimals returns the decimal places carried by quantities in the given
// unit of measure: none for discrete units ("un"), three for everything else
// (kg, l, ...).
func UnitDecimals(unit string) int32 {
	if unit == UnitEach {
		return 0
	}
	return 3
}

// Quantize rounds a quantity to its unit's decimal places, half to nearest.
// Every sufficiency/shortage comparison must quantize both sides first so
// floating-point noise never produces phantom shortages or surplus.
func Quantize(qty decimal.Decimal, unit string) decimal.Decimal {
	return qty.Round(UnitDecimals(unit))
}
