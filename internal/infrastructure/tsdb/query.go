package tsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
)

// queryResponse is the body returned by /query.
type queryResponse struct {
	Results []struct {
		StatementID int    `json:"statement_id"`
		Error       string `json:"error,omitempty"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Query runs an InfluxQL statement that returns no series, such as
// CREATE or DROP. It is sent as a POST so that write statements are allowed.
//
// Returns:
//   - error: ErrConnectionFailed if the request could not be sent,
//     ErrQueryFailed if the server or any statement reported an error
func (c *Client) Query(ctx context.Context, statement string) error {
	if strings.TrimSpace(statement) == "" {
		return fmt.Errorf("%w: statement is required", ErrQueryFailed)
	}

	form := url.Values{}
	form.Set("q", statement)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/query", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authenticate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	const maxResponseSize = 1 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrQueryFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := decodeErrorBody(body)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrQueryFailed, resp.StatusCode, msg)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrQueryFailed, err)
	}
	if qr.Error != "" {
		return fmt.Errorf("%w: %s", ErrQueryFailed, qr.Error)
	}
	for _, r := range qr.Results {
		if r.Error != "" {
			return fmt.Errorf("%w: statement %d: %s", ErrQueryFailed, r.StatementID, r.Error)
		}
	}
	return nil
}

// DropDatabase drops name. Dropping a database that does not exist succeeds.
func (c *Client) DropDatabase(ctx context.Context, name string) error {
	return c.Query(ctx, "DROP DATABASE "+quoteIdent(name))
}

// CreateDatabase creates name. Creating an existing database succeeds.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	return c.Query(ctx, "CREATE DATABASE "+quoteIdent(name))
}

// quoteIdent renders an InfluxQL double-quoted identifier.
func quoteIdent(name string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", "")
	return `"` + r.Replace(name) + `"`
}

// decodeErrorBody extracts {"error": "..."} from a response body.
func decodeErrorBody(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}
