package influxdb

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/csv2influx/internal/point"
)

// WritePoints writes points to the configured bucket in one blocking request.
//
// Parameters:
//   - ctx: Context for cancellation
//   - points: Points to write, in order
//
// Returns:
//   - error: ErrWriteFailed wrapping the server's error
func (c *Client) WritePoints(ctx context.Context, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := make([]*write.Point, len(points))
	for i := range points {
		batch[i] = toWritePoint(&points[i])
	}

	if err := c.writeAPI.WritePoint(ctx, batch...); err != nil {
		return fmt.Errorf("%w: %d points: %w", ErrWriteFailed, len(points), err)
	}
	return nil
}

// toWritePoint converts a point for the v2 client. Empty tag values are
// left out because line protocol cannot carry them.
func toWritePoint(p *point.Point) *write.Point {
	tags := make(map[string]string, len(p.Tags))
	for _, t := range p.Tags {
		if t.Value != "" {
			tags[t.Key] = t.Value
		}
	}
	return write.NewPoint(p.Measurement, tags, p.FieldMap(), p.Timestamp())
}
