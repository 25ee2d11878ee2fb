package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
)

// Client wraps the InfluxDB v2 client for batch imports.
//
// Writes use the blocking write API: each WritePoints call is one request
// and its error is returned directly. Buckets stand in for databases in the
// admin operations.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	cfg      config.InfluxDBConfig
}

// New creates a client for the configured server. It does not touch the
// network; call Ping to verify connectivity.
//
// Parameters:
//   - cfg: InfluxDB configuration
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrInvalidConfig if the URL, org or bucket is missing
func New(cfg config.InfluxDBConfig) (*Client, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: org and bucket are required", ErrInvalidConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	cfg.URL = url

	// #nosec G115 -- timeout validated above to be non-negative
	opts := influxdb2.DefaultOptions().
		SetUseGZip(cfg.Gzip).
		SetPrecision(time.Nanosecond).
		SetHTTPRequestTimeout(uint(cfg.RequestTimeout() / time.Second))

	client := influxdb2.NewClientWithOptions(url, cfg.Token, opts)

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		cfg:      cfg,
	}, nil
}

// Ping verifies the InfluxDB server is reachable and healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, ErrConnectionFailed otherwise
func (c *Client) Ping(ctx context.Context) error {
	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		return fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}
	return nil
}

// Authenticate signs in with the configured username and password when no
// token is configured. With a token it does nothing.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.cfg.Token != "" || c.cfg.Username == "" {
		return nil
	}
	return c.SwitchUser(ctx, c.cfg.Username, c.cfg.Password)
}

// SwitchUser opens a session for username. Later requests use the session
// cookie instead of the token.
func (c *Client) SwitchUser(ctx context.Context, username, password string) error {
	if err := c.client.UsersAPI().SignIn(ctx, username, password); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return nil
}

// Close ends any session and releases the underlying client.
//
// Returns:
//   - error: nil (the InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.cfg.Token == "" && c.cfg.Username != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.client.UsersAPI().SignOut(ctx)
	}
	c.client.Close()
	return nil
}

// Org returns the organization written to.
func (c *Client) Org() string {
	return c.cfg.Org
}

// Bucket returns the bucket written to.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}
