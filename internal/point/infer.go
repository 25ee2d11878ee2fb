package point

import (
	"math"
	"strconv"
	"strings"
)

// Infer determines the type of a raw text cell.
//
// The checks run in order and the first match wins:
//  1. Decimal number (integer or fractional, optional exponent, "_" allowed
//     between digits) → Float
//  2. "true" / "false" in any letter case → Bool
//  3. Anything else → String, unchanged
//
// Infer never fails; a failed parse just falls through to the next type.
// NaN and infinities are not treated as numbers because line protocol
// cannot carry them.
func Infer(raw string) FieldValue {
	if f, ok := parseFloat(raw); ok {
		return Float(f)
	}
	if strings.EqualFold(raw, "true") {
		return Bool(true)
	}
	if strings.EqualFold(raw, "false") {
		return Bool(false)
	}
	return String(raw)
}

func parseFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	// Hex floats are valid Go syntax but not decimal literals.
	if s == "" || strings.ContainsAny(s, "xX") {
		return 0, false
	}
	if strings.Contains(s, "_") {
		var ok bool
		if s, ok = stripDigitSeparators(s); !ok {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stripDigitSeparators removes underscores that sit between two digits, as
// in "1_000". Any other underscore makes the text non-numeric.
func stripDigitSeparators(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
