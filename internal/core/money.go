// Package core provides money parsing and display for chore values.
//
// This file contains the coercion applied to free-text task values and the
// two-decimal rendering used everywhere an amount is shown.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxIntegerDigits bounds parsed values to what a float64 carries exactly.
const maxIntegerDigits = 15

// minMagnitude is the smallest power of ten kept; anything smaller reads as
// zero. It also keeps decimal arithmetic away from huge negative exponents.
const minMagnitude = -20

// ParseTaskValue coerces free text into a task value.
//
// It reads the longest leading decimal number, the way a browser's parseFloat
// does, so trailing garbage is ignored. A decimal comma is accepted. Text with
// no leading number becomes zero, and negative numbers are clamped to zero.
// The second return value reports whether the input was coerced.
//
// Examples:
//
//	ParseTaskValue("3.50")  -> 3.50, false
//	ParseTaskValue("2,25")  -> 2.25, false
//	ParseTaskValue("4 USD") -> 4, true
//	ParseTaskValue("abc")   -> 0, true
//	ParseTaskValue("-5")    -> 0, true
func ParseTaskValue(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", ".")
	prefix, exact := numericPrefix(s)
	if prefix == "" {
		return decimal.Zero, true
	}
	v, err := decimal.NewFromString(strings.TrimPrefix(prefix, "+"))
	if err != nil || v.IsNegative() {
		return decimal.Zero, true
	}
	if v.IsZero() {
		return decimal.Zero, !exact
	}
	// Integer digits of v, or minus the leading zeros after the point.
	magnitude := v.NumDigits() + int(v.Exponent())
	if magnitude > maxIntegerDigits || magnitude < minMagnitude {
		return decimal.Zero, true
	}
	return v, !exact
}

// numericPrefix returns the longest prefix of s of the form
// [+-]digits[.digits][e[+-]digits] (or [+-].digits...), normalized for
// decimal.NewFromString, or "" if none. exact reports whether the prefix
// used all of s.
func numericPrefix(s string) (prefix string, exact bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	intDigits := i - intStart
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		fracDigits = j - i - 1
		i = j
	}
	if intDigits == 0 && fracDigits == 0 {
		return "", false
	}

	// parseFloat accepts "3." and ".5"; decimal wants "3" and "0.5".
	mantissa := strings.TrimSuffix(s[:i], ".")
	switch {
	case strings.HasPrefix(mantissa, "."):
		mantissa = "0" + mantissa
	case strings.HasPrefix(mantissa, "-."), strings.HasPrefix(mantissa, "+."):
		mantissa = mantissa[:1] + "0" + mantissa[1:]
	}

	end := i
	exponent := ""
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			exponent, end = "e"+s[i+1:j], j
		}
	}
	// A bare trailing point is dropped, which counts as coercion.
	dangling := exponent == "" && strings.HasSuffix(s[:i], ".")
	return mantissa + exponent, end == len(s) && !dangling
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatAmount renders an amount with two decimals, e.g. "$3.50".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
