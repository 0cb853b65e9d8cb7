package domain

import (
	"fmt"
	"strings"
)

const DefaultCurrency = "USD"

// Currency describes how many decimal places the smallest unit of a currency has.
type Currency struct {
	Code     string
	Exponent int32
}

var isoExponents = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CHF": 2,
	"IDR": 2,
	"SGD": 2,
	"AUD": 2,
	"CAD": 2,
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
	"JOD": 3,
	"OMR": 3,
	"TND": 3,
}

// ResolveCurrency looks the code up in overrides first, then the ISO table.
// Codes missing from both default to two decimal places.
func ResolveCurrency(code string, overrides map[string]int32) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}

	if exp, ok := overrides[code]; ok {
		if exp < 0 || exp > 4 {
			return Currency{}, fmt.Errorf("%w: exponent %d for %s", ErrInvalidCurrency, exp, code)
		}
		return Currency{Code: code, Exponent: exp}, nil
	}
	if exp, ok := isoExponents[code]; ok {
		return Currency{Code: code, Exponent: exp}, nil
	}
	return Currency{Code: code, Exponent: 2}, nil
}
