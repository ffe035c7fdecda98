package model

import "github.com/shopspring/decimal"

// Bounds of an IEEE-754 double. Decimals outside them are rejected before any
// arithmetic, since rescaling a value like 1e30000000 allocates a
// thirty-million-digit integer.
const (
	maxMagnitude = 309  // |d| < 1e309
	minExponent  = -324 // no more than 324 fractional digits
)

// InDoubleRange reports whether d is small enough in magnitude and precision
// to be represented by a float64 producer. It never rescales d.
func InDoubleRange(d decimal.Decimal) bool {
	if int(d.Exponent()) < minExponent {
		return false
	}
	if d.IsZero() {
		return true
	}
	return d.NumDigits()+int(d.Exponent()) <= maxMagnitude
}
