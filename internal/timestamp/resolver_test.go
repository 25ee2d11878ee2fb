package timestamp

import (
	"errors"
	"strconv"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	r, err := NewResolver(cfg)
	require.NoError(t, err)
	return r
}

func TestResolve_Epoch(t *testing.T) {
	tests := []struct {
		precision Precision
		raw       string
		want      int64
	}{
		{precision: Millisecond, raw: "1000", want: 1_000_000_000_000},
		{precision: Second, raw: "1", want: 1_000_000_000},
		{precision: Microsecond, raw: "5", want: 5_000},
		{precision: "us", raw: "5", want: 5_000},
		{precision: Nanosecond, raw: "123", want: 123},
		{precision: Second, raw: "-2", want: -2_000_000_000},
		{precision: Second, raw: " 3 ", want: 3_000_000_000},
	}

	for _, tt := range tests {
		t.Run(string(tt.precision)+"/"+tt.raw, func(t *testing.T) {
			r := mustResolver(t, Config{Mode: ModeEpoch, Precision: tt.precision})
			got, err := r.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_EpochIsLinear(t *testing.T) {
	for _, p := range []Precision{Second, Millisecond, Microsecond, Nanosecond} {
		r := mustResolver(t, Config{Mode: ModeEpoch, Precision: p})
		for _, v := range []int64{1, 17, -40, 1_600_000_000} {
			single, err := r.Resolve(strconv.FormatInt(v, 10))
			require.NoError(t, err)
			double, err := r.Resolve(strconv.FormatInt(2*v, 10))
			require.NoError(t, err)
			assert.Equal(t, 2*single, double, "precision %s value %d", p, v)
		}
	}
}

func TestResolve_EpochInvalid(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeEpoch, Precision: Second})

	for _, raw := range []string{"", "abc", "1.5", "1e9", "9223372036854775807"} {
		_, err := r.Resolve(raw)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "raw %q", raw)
	}
}

func TestNewResolver_UnknownPrecision(t *testing.T) {
	_, err := NewResolver(Config{Mode: ModeEpoch, Precision: "h"})
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
}

func TestResolve_FormattedDefaultPattern(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted})

	got, err := r.Resolve("1970-01-01 00:00:01")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), got)
}

func TestResolve_FormattedLocalisesNaiveValues(t *testing.T) {
	r := mustResolver(t, Config{
		Mode:     ModeFormatted,
		Format:   "%Y-%m-%d %H:%M:%S",
		Timezone: "Europe/Berlin",
	})

	got, err := r.Resolve("2020-01-01 00:00:00")
	require.NoError(t, err)

	want := time.Date(2019, 12, 31, 23, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, want, got)
}

func TestResolve_FormattedKeepsExplicitOffset(t *testing.T) {
	r := mustResolver(t, Config{
		Mode:     ModeFormatted,
		Format:   time.RFC3339,
		Timezone: "America/New_York",
	})

	got, err := r.Resolve("2020-06-01T12:00:00+02:00")
	require.NoError(t, err)

	want := time.Date(2020, 6, 1, 10, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, want, got)
}

func TestResolve_FormattedMillisecondTruncation(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted, Format: "2006-01-02 15:04:05.000000"})

	tests := []struct {
		raw  string
		want int64
	}{
		{raw: "1970-01-01 00:00:01.123000", want: 1_123_000_000},
		{raw: "1970-01-01 00:00:01.123999", want: 1_123_000_000},
		{raw: "1970-01-01 00:00:01.000999", want: 1_000_000_000},
		{raw: "1969-12-31 23:59:59.999500", want: 0},
		{raw: "1969-12-31 23:59:58.500700", want: -1_499_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := r.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_FormattedFractionalSecondsPattern(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted, Format: "%Y-%m-%d %H:%M:%S.%f"})

	got, err := r.Resolve("2021-03-04 05:06:07.250")
	require.NoError(t, err)

	want := time.Date(2021, 3, 4, 5, 6, 7, 250_000_000, time.UTC).UnixNano()
	assert.Equal(t, want, got)
}

func TestResolve_FormattedAcceptsUnpaddedFields(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted})

	want := time.Date(2020, 1, 5, 3, 4, 5, 0, time.UTC).UnixNano()
	for _, raw := range []string{
		"2020-1-5 3:4:5",
		"2020-01-05 03:4:05",
		"2020-1-05 03:04:5",
		"2020-01-05 03:04:05",
	} {
		got, err := r.Resolve(raw)
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, want, got, "raw %q", raw)
	}
}

func TestResolve_FormattedOffsetForms(t *testing.T) {
	tests := []struct {
		name   string
		format string
		raw    string
		want   time.Time
	}{
		{name: "colon offset", format: "%Y-%m-%dT%H:%M:%S%z", raw: "2020-01-05T03:04:05+02:00", want: time.Date(2020, 1, 5, 1, 4, 5, 0, time.UTC)},
		{name: "compact offset", format: "%Y-%m-%dT%H:%M:%S%z", raw: "2020-01-05T03:04:05+0200", want: time.Date(2020, 1, 5, 1, 4, 5, 0, time.UTC)},
		{name: "zulu", format: "%Y-%m-%dT%H:%M:%S%z", raw: "2020-01-05T03:04:05Z", want: time.Date(2020, 1, 5, 3, 4, 5, 0, time.UTC)},
		{name: "negative offset", format: "%Y-%m-%dT%H:%M:%S%z", raw: "2020-01-05T03:04:05-05:30", want: time.Date(2020, 1, 5, 8, 34, 5, 0, time.UTC)},
		{name: "colon flag compact value", format: "%Y-%m-%dT%H:%M:%S%:z", raw: "2020-01-05T03:04:05+0200", want: time.Date(2020, 1, 5, 1, 4, 5, 0, time.UTC)},
		{name: "fraction before offset", format: "%Y-%m-%dT%H:%M:%S.%f%z", raw: "2020-01-05T03:04:05.250Z", want: time.Date(2020, 1, 5, 3, 4, 5, 250_000_000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The zone must not be applied when the value carries an offset.
			r := mustResolver(t, Config{Mode: ModeFormatted, Format: tt.format, Timezone: "Europe/Berlin"})

			got, err := r.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want.UnixNano(), got)
		})
	}
}

func TestResolve_FormattedOffsetMismatch(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted, Format: "%Y-%m-%dT%H:%M:%S%z"})

	for _, raw := range []string{"2020-01-05T03:04:05", "2020-01-05T03:04:05 UTC", "2020-01-05T03:04:05+2"} {
		_, err := r.Resolve(raw)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "raw %q", raw)
	}
}

func TestUnpadLayout(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2006-01-02 15:04:05", want: "2006-1-2 15:4:5"},
		{in: "02/01/06 03:04:05 PM", want: "2/1/06 3:4:5 PM"},
		{in: "2006-01-02T15:04:05.000-0700", want: "2006-1-2T15:4:5.000-0700"},
		{in: "2006-01-02T15:04:05,999Z07:00", want: "2006-1-2T15:4:5,999Z07:00"},
		{in: "2006 002", want: "2006 002"},
		{in: "Jan _2 2006", want: "Jan _2 2006"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, unpadLayout(tt.in))
		})
	}
}

func TestResolve_FormattedMismatch(t *testing.T) {
	r := mustResolver(t, Config{Mode: ModeFormatted})

	for _, raw := range []string{"", "yesterday", "2020/01/01 00:00:00", "1577836800"} {
		_, err := r.Resolve(raw)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "raw %q", raw)
	}
}

func TestNewResolver_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown timezone", cfg: Config{Mode: ModeFormatted, Timezone: "Mars/Olympus"}},
		{name: "unknown mode", cfg: Config{Mode: "julian"}},
		{name: "detached %f", cfg: Config{Mode: ModeFormatted, Format: "%Y %f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFormatted, m)

	m, err = ParseMode("EPOCH")
	require.NoError(t, err)
	assert.Equal(t, ModeEpoch, m)

	_, err = ParseMode("unix")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
