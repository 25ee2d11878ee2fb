package tsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the InfluxDB 1.x HTTP API (/ping, /write, /query).
// VictoriaMetrics and other servers accepting the same endpoints work too.
//
// Each WritePoints call is one synchronous POST; the client does no
// batching or retrying of its own.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	url        string
	database   string
	gzip       bool
	httpClient *http.Client

	// credentials can change through SwitchUser.
	username string
	password string
	credMu   sync.RWMutex
}

// New creates a client for the configured server. It does not touch the
// network; call Ping to verify connectivity.
//
// A URL without a scheme ("localhost:8086") is taken as plain HTTP.
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrInvalidConfig if the URL cannot be parsed
func New(cfg config.TSDBConfig) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q is not valid", ErrInvalidConfig, cfg.URL)
	}

	return &Client{
		url:      u.String(),
		database: cfg.Database,
		gzip:     cfg.Gzip,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

// URL returns the normalised server URL.
func (c *Client) URL() string {
	return c.url
}

// Database returns the database written to.
func (c *Client) Database() string {
	return c.database
}

// Ping verifies the server is reachable.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if the server answered, ErrConnectionFailed otherwise
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/ping", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned HTTP %d", ErrConnectionFailed, resp.StatusCode)
	}
	return nil
}

// SwitchUser changes the credentials used by later requests.
// It does not contact the server.
func (c *Client) SwitchUser(_ context.Context, username, password string) error {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	c.username = username
	c.password = password
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// authenticate adds basic auth when a username is set.
func (c *Client) authenticate(req *http.Request) {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// readError returns the server's error message from a failed response.
func readError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if msg := decodeErrorBody(body); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(body))
}
