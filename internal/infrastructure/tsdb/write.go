package tsdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/klauspost/compress/gzip"

	"github.com/nerrad567/csv2influx/internal/point"
)

// WritePoints sends points to the configured database in one request.
//
// The batch is encoded as line protocol with nanosecond timestamps and,
// when gzip is enabled, compressed. Any non-2xx response fails the whole
// batch, including InfluxDB's "partial write" responses.
//
// Parameters:
//   - ctx: Context for cancellation
//   - points: Points to write, in order
//
// Returns:
//   - error: ErrEncoding for a point that cannot be encoded, ErrConnectionFailed
//     if the request could not be sent, ErrWriteFailed if the server refused it
func (c *Client) WritePoints(ctx context.Context, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}

	body, err := EncodeBatch(points)
	if err != nil {
		return err
	}

	var reader io.Reader = bytes.NewReader(body)
	if c.gzip {
		compressed, err := compress(body)
		if err != nil {
			return fmt.Errorf("%w: gzip: %w", ErrWriteFailed, err)
		}
		reader = bytes.NewReader(compressed)
	}

	params := url.Values{}
	params.Set("db", c.database)
	params.Set("precision", "ns")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/write?"+params.Encode(), reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if c.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	c.authenticate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrWriteFailed, resp.StatusCode, readError(resp))
	}
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// EncodeBatch renders points as newline-terminated line protocol.
//
// Tags are written in key order as the protocol requires. Tags with an
// empty value are omitted because line protocol cannot express them.
// Timestamps are in nanoseconds.
func EncodeBatch(points []point.Point) ([]byte, error) {
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)

	for i := range points {
		if err := encodePoint(&enc, &points[i]); err != nil {
			return nil, fmt.Errorf("%w: point %d (%s): %w", ErrEncoding, i, points[i].Measurement, err)
		}
	}
	return enc.Bytes(), nil
}

func encodePoint(enc *lineprotocol.Encoder, p *point.Point) error {
	if len(p.Fields) == 0 {
		return fmt.Errorf("point has no fields")
	}

	tags := make([]point.Tag, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t.Value != "" {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })

	enc.StartLine(p.Measurement)
	for _, t := range tags {
		enc.AddTag(t.Key, t.Value)
	}
	for _, f := range p.Fields {
		v, err := fieldValue(f.Value)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
		enc.AddField(f.Key, v)
	}
	enc.EndLine(time.Unix(0, p.Time))

	return enc.Err()
}

func fieldValue(v point.FieldValue) (lineprotocol.Value, error) {
	switch fv := v.(type) {
	case point.Float:
		lv, ok := lineprotocol.FloatValue(float64(fv))
		if !ok {
			return lineprotocol.Value{}, fmt.Errorf("float %v is not representable", float64(fv))
		}
		return lv, nil
	case point.Bool:
		return lineprotocol.BoolValue(bool(fv)), nil
	case point.String:
		lv, ok := lineprotocol.StringValue(string(fv))
		if !ok {
			return lineprotocol.Value{}, fmt.Errorf("string is not valid UTF-8")
		}
		return lv, nil
	default:
		return lineprotocol.Value{}, fmt.Errorf("unsupported field value %T", v)
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
