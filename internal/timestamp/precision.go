package timestamp

import (
	"fmt"
	"strings"
)

// Mode selects how the time column is interpreted.
type Mode string

const (
	// ModeFormatted parses calendar strings against a pattern.
	ModeFormatted Mode = "formatted"

	// ModeEpoch parses integer counts of a unit since the Unix epoch.
	ModeEpoch Mode = "epoch"
)

// ParseMode converts a configuration string to a Mode.
// An empty string selects ModeFormatted.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeFormatted):
		return ModeFormatted, nil
	case string(ModeEpoch):
		return ModeEpoch, nil
	default:
		return "", fmt.Errorf("%w: unknown time mode %q (want formatted or epoch)", ErrInvalidConfig, s)
	}
}

// Precision is the unit of an epoch timestamp.
type Precision string

// Supported epoch precisions.
const (
	Second      Precision = "s"
	Millisecond Precision = "ms"
	Microsecond Precision = "u"
	Nanosecond  Precision = "ns"
)

var multipliers = map[Precision]int64{
	Second:      1_000_000_000,
	Millisecond: 1_000_000,
	Microsecond: 1_000,
	Nanosecond:  1,
}

// ParsePrecision converts a unit string to a Precision.
// "us" is accepted as an alias for "u".
func ParsePrecision(s string) (Precision, error) {
	p := Precision(strings.ToLower(strings.TrimSpace(s)))
	if p == "us" {
		p = Microsecond
	}
	if _, ok := multipliers[p]; !ok {
		return "", fmt.Errorf("%w: unrecognised epoch precision %q (want s, ms, u or ns)", ErrInvalidTimestamp, s)
	}
	return p, nil
}

// Multiplier returns the factor converting one unit to nanoseconds,
// or 0 for an unknown precision.
func (p Precision) Multiplier() int64 {
	return multipliers[p]
}
