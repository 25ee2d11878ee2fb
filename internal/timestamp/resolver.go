package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultFormat is the strftime pattern used when none is configured.
const DefaultFormat = "%Y-%m-%d %H:%M:%S"

const nanosPerMilli = int64(time.Millisecond)

// Config selects and parameterises the resolution mode.
type Config struct {
	Mode Mode

	// Format is a strftime pattern (e.g. "%Y-%m-%d %H:%M:%S") or, when it
	// contains no '%', a Go reference layout. Formatted mode only.
	Format string

	// Timezone is the IANA zone applied to values without an explicit
	// offset. Formatted mode only. Empty means UTC.
	Timezone string

	// Precision is the unit of epoch values. Epoch mode only.
	Precision Precision
}

// Resolver converts raw time cells into nanoseconds since the Unix epoch.
//
// A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	mode       Mode
	layouts    []string
	loc        *time.Location
	multiplier int64
}

// NewResolver validates cfg and builds a Resolver.
//
// Returns:
//   - error: ErrInvalidConfig for an unknown mode, timezone or pattern,
//     ErrInvalidTimestamp for an unrecognised epoch precision
func NewResolver(cfg Config) (*Resolver, error) {
	switch cfg.Mode {
	case ModeEpoch:
		p, err := ParsePrecision(string(cfg.Precision))
		if err != nil {
			return nil, err
		}
		return &Resolver{mode: ModeEpoch, multiplier: p.Multiplier()}, nil

	case ModeFormatted, "":
		format := cfg.Format
		if format == "" {
			format = DefaultFormat
		}
		layouts, err := layoutsFor(format)
		if err != nil {
			return nil, err
		}
		tz := cfg.Timezone
		if tz == "" {
			tz = "UTC"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, tz, err)
		}
		return &Resolver{mode: ModeFormatted, layouts: layouts, loc: loc}, nil

	default:
		return nil, fmt.Errorf("%w: unknown time mode %q", ErrInvalidConfig, cfg.Mode)
	}
}

// Mode returns the resolution mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// Resolve converts one raw time cell to nanoseconds since the Unix epoch.
//
// Epoch mode multiplies the integer by the precision factor. Formatted mode
// parses the calendar string, localises it when it carries no offset, and
// truncates the instant to whole milliseconds before scaling to nanoseconds,
// so sub-millisecond digits never survive.
func (r *Resolver) Resolve(raw string) (int64, error) {
	if r.mode == ModeEpoch {
		return r.resolveEpoch(raw)
	}
	return r.resolveFormatted(raw)
}

func (r *Resolver) resolveEpoch(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer epoch value", ErrInvalidTimestamp, raw)
	}
	if v > math.MaxInt64/r.multiplier || v < math.MinInt64/r.multiplier {
		return 0, fmt.Errorf("%w: epoch value %q overflows nanosecond range", ErrInvalidTimestamp, raw)
	}
	return v * r.multiplier, nil
}

func (r *Resolver) resolveFormatted(raw string) (int64, error) {
	t, err := time.ParseInLocation(r.layouts[0], raw, r.loc)
	for _, alt := range r.layouts[1:] {
		if err == nil {
			break
		}
		if at, altErr := time.ParseInLocation(alt, raw, r.loc); altErr == nil {
			t, err = at, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q does not match pattern: %w", ErrInvalidTimestamp, raw, err)
	}

	ms := unixMilliTruncated(t)
	if ms > math.MaxInt64/nanosPerMilli || ms < math.MinInt64/nanosPerMilli {
		return 0, fmt.Errorf("%w: %q is outside the nanosecond range", ErrInvalidTimestamp, raw)
	}
	return ms * nanosPerMilli, nil
}

// unixMilliTruncated returns whole milliseconds since the epoch, truncated
// toward zero. time.Time.UnixMilli floors, which differs before 1970.
func unixMilliTruncated(t time.Time) int64 {
	sec := t.Unix()
	nsec := int64(t.Nanosecond())
	ms := sec*1000 + nsec/nanosPerMilli
	if sec < 0 && nsec%nanosPerMilli != 0 {
		ms++
	}
	return ms
}

// layoutsFor turns a strftime pattern into the Go layouts tried in order.
// Patterns without '%' are taken as a single Go layout and used verbatim.
//
// strftime patterns parse the way strptime does: numeric fields accept one
// or two digits, and %z accepts "Z", "+0200" and "+02:00".
func layoutsFor(format string) ([]string, error) {
	if !strings.Contains(format, "%") {
		return []string{format}, nil
	}

	// Go accepts fractional seconds after the seconds field without the
	// layout asking for them, so %f can simply be dropped.
	p := strings.ReplaceAll(format, ".%f", "")
	p = strings.ReplaceAll(p, ",%f", "")
	if strings.Contains(p, "%f") {
		return nil, fmt.Errorf("%w: %%f must directly follow seconds in %q", ErrInvalidConfig, format)
	}

	layout, err := strftime.Layout(p)
	if err != nil {
		return nil, fmt.Errorf("%w: time format %q: %w", ErrInvalidConfig, format, err)
	}
	layout = unpadLayout(layout)

	switch {
	case strings.Contains(layout, "-0700"):
		return []string{
			strings.ReplaceAll(layout, "-0700", "Z0700"),
			strings.ReplaceAll(layout, "-0700", "Z07:00"),
		}, nil
	case strings.Contains(layout, "-07:00"):
		return []string{
			strings.ReplaceAll(layout, "-07:00", "Z07:00"),
			strings.ReplaceAll(layout, "-07:00", "Z0700"),
		}, nil
	}
	return []string{layout}, nil
}

// layoutTokens are copied unchanged by unpadLayout, longest first.
var layoutTokens = []string{
	"2006",
	"Z07:00", "Z0700", "Z07",
	"-07:00:00", "-070000", "-07:00", "-0700", "-07",
	"002",
}

// unpadLayout replaces the zero-padded month, day, hour, minute and second
// elements of a Go layout with their unpadded forms, which parse one or two
// digits.
func unpadLayout(layout string) string {
	var b strings.Builder
	b.Grow(len(layout))

	for i := 0; i < len(layout); {
		rest := layout[i:]

		if tok := leadingToken(rest); tok != "" {
			b.WriteString(tok)
			i += len(tok)
			continue
		}

		// Fractional seconds: .000 or ,999 runs.
		if (rest[0] == '.' || rest[0] == ',') && len(rest) > 1 && (rest[1] == '0' || rest[1] == '9') {
			j := 2
			for j < len(rest) && rest[j] == rest[1] {
				j++
			}
			b.WriteString(rest[:j])
			i += j
			continue
		}

		if len(rest) >= 2 && rest[0] == '0' && rest[1] >= '1' && rest[1] <= '5' {
			b.WriteByte(rest[1])
			i += 2
			continue
		}

		b.WriteByte(rest[0])
		i++
	}
	return b.String()
}

func leadingToken(s string) string {
	for _, tok := range layoutTokens {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}
