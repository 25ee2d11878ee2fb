package mapper

import (
	"fmt"
	"strings"

	"github.com/nerrad567/csv2influx/internal/point"
	"github.com/nerrad567/csv2influx/internal/timestamp"
)

// DefaultTagValue is the value of a configured tag column absent from a row.
const DefaultTagValue = "0"

// DefaultFieldValue is the value of a configured field column absent from a row.
var DefaultFieldValue point.FieldValue = point.Float(0)

// Row maps column names to raw cell text for one input record.
type Row map[string]string

// Config assigns roles to input columns. It is fixed for a whole run.
type Config struct {
	Measurement  string
	TimeColumn   string
	TagColumns   []string
	FieldColumns []string
}

// Validate checks that the configuration can produce points.
//
// Tag and field lists are ordered sets: a name may appear at most once in
// each. The same column may be both a tag and a field.
func (c Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Measurement) == "" {
		errs = append(errs, "measurement is required")
	}
	if c.TimeColumn == "" {
		errs = append(errs, "time column is required")
	}
	if len(c.FieldColumns) == 0 {
		errs = append(errs, "at least one field column is required")
	}
	if dup := firstDuplicate(c.TagColumns); dup != "" {
		errs = append(errs, fmt.Sprintf("tag column %q listed twice", dup))
	}
	if dup := firstDuplicate(c.FieldColumns); dup != "" {
		errs = append(errs, fmt.Sprintf("field column %q listed twice", dup))
	}
	for _, name := range append(append([]string{}, c.TagColumns...), c.FieldColumns...) {
		if name == "" {
			errs = append(errs, "column names must not be empty")
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return ""
}

// Mapper converts rows into points.
//
// A Mapper holds no per-row state and may be reused for the whole run.
type Mapper struct {
	cfg      Config
	resolver *timestamp.Resolver
}

// New validates cfg and returns a Mapper using resolver for the time column.
func New(cfg Config, resolver *timestamp.Resolver) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: timestamp resolver is required", ErrInvalidConfig)
	}

	cfg.TagColumns = append([]string(nil), cfg.TagColumns...)
	cfg.FieldColumns = append([]string(nil), cfg.FieldColumns...)

	return &Mapper{cfg: cfg, resolver: resolver}, nil
}

// Config returns the column role configuration.
func (m *Mapper) Config() Config {
	return m.cfg
}

// Map builds one point from row.
//
// The point always carries exactly the configured tag and field columns,
// in configuration order. Absent tag columns default to "0", absent field
// columns to Float(0). Extra row columns are ignored.
//
// Parameters:
//   - row: Column name to raw text for one record
//   - line: 1-based input line used in error messages (0 if unknown)
//
// Returns:
//   - error: *MissingColumnError if the time column is absent, or a wrapped
//     timestamp.ErrInvalidTimestamp if the time value cannot be resolved
func (m *Mapper) Map(row Row, line int) (point.Point, error) {
	raw, ok := row[m.cfg.TimeColumn]
	if !ok {
		return point.Point{}, &MissingColumnError{Column: m.cfg.TimeColumn, Line: line}
	}

	ts, err := m.resolver.Resolve(raw)
	if err != nil {
		return point.Point{}, fmt.Errorf("line %d: column %q: %w", line, m.cfg.TimeColumn, err)
	}

	tags := make([]point.Tag, 0, len(m.cfg.TagColumns))
	for _, name := range m.cfg.TagColumns {
		v, ok := row[name]
		if !ok {
			v = DefaultTagValue
		}
		tags = append(tags, point.Tag{Key: name, Value: v})
	}

	fields := make([]point.Field, 0, len(m.cfg.FieldColumns))
	for _, name := range m.cfg.FieldColumns {
		value := DefaultFieldValue
		if v, ok := row[name]; ok {
			value = point.Infer(v)
		}
		fields = append(fields, point.Field{Key: name, Value: value})
	}

	return point.Point{
		Measurement: m.cfg.Measurement,
		Time:        ts,
		Tags:        tags,
		Fields:      fields,
	}, nil
}
