// Package core holds the report model: item trees, category groups, the
// report aggregate, payload migration and the edit operators.
//
// Amounts are float64 on the wire. Arithmetic goes through decimal so that
// sums such as 0.1+0.2 print as the user typed them.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func sumAmounts(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(dec(v))
	}
	return total.InexactFloat64()
}

func subAmounts(a, b float64) float64 {
	return dec(a).Sub(dec(b)).InexactFloat64()
}

func mulAmounts(a, b float64) float64 {
	return dec(a).Mul(dec(b)).InexactFloat64()
}

// divAmounts assumes b != 0.
func divAmounts(a, b float64) float64 {
	return dec(a).Div(dec(b)).InexactFloat64()
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return dec(v).Round(2).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseAmount parses a user-entered amount.
//
// It accepts an optional ¥ prefix, thousands separators (1,234.50) and a
// decimal comma when the comma is not followed by exactly three digits
// (12,5). Negative amounts are allowed; refunds and corrections are entered
// that way.
//
// Examples:
//
//	ParseAmount("1,234.50") -> 1234.5, nil
//	ParseAmount("12,5")     -> 12.5, nil
//	ParseAmount("¥ 300")    -> 300, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else if i := strings.LastIndex(s, ","); strings.Count(s, ",") == 1 && len(s)-i-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	v := d.InexactFloat64()
	if !finite(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
