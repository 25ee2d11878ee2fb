package point

import (
	"strconv"
	"time"
)

// FieldValue is the typed value of a point field.
//
// It is a closed set: Float, Bool and String are the only implementations.
// Use a type switch to consume it:
//
//	switch v := f.Value.(type) {
//	case point.Float:
//	case point.Bool:
//	case point.String:
//	}
type FieldValue interface {
	// Any returns the underlying Go value (float64, bool or string).
	Any() any

	// String renders the value for logs and error messages.
	String() string

	fieldValue()
}

// Float is a numeric field value.
type Float float64

// Bool is a boolean field value.
type Bool bool

// String is a text field value.
type String string

func (v Float) Any() any  { return float64(v) }
func (v Bool) Any() any   { return bool(v) }
func (v String) Any() any { return string(v) }

func (v Float) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }
func (v String) String() string { return string(v) }

func (Float) fieldValue()  {}
func (Bool) fieldValue()   {}
func (String) fieldValue() {}

// Tag is one indexed dimension of a point.
type Tag struct {
	Key   string
	Value string
}

// Field is one measured value of a point.
type Field struct {
	Key   string
	Value FieldValue
}

// Point is a single measurement observation ready to be written.
//
// Tags and Fields keep the order of the configured columns so output is
// deterministic. Keys are unique within each slice.
type Point struct {
	Measurement string
	// Time is nanoseconds since the Unix epoch.
	Time   int64
	Tags   []Tag
	Fields []Field
}

// Tag returns the value of the named tag.
func (p Point) Tag(key string) (string, bool) {
	for _, t := range p.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Field returns the value of the named field.
func (p Point) Field(key string) (FieldValue, bool) {
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// TagMap returns the tags as a map.
func (p Point) TagMap() map[string]string {
	m := make(map[string]string, len(p.Tags))
	for _, t := range p.Tags {
		m[t.Key] = t.Value
	}
	return m
}

// FieldMap returns the fields as a map of plain Go values, the shape
// expected by influxdb-client-go.
func (p Point) FieldMap() map[string]any {
	m := make(map[string]any, len(p.Fields))
	for _, f := range p.Fields {
		m[f.Key] = f.Value.Any()
	}
	return m
}

// Timestamp returns Time as a time.Time in UTC.
func (p Point) Timestamp() time.Time {
	return time.Unix(0, p.Time).UTC()
}
