// Package client fetches filter options and insight records from
// an insightview server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wesm/insightview/internal/filter"
	"github.com/wesm/insightview/internal/insight"
)

// maxBody bounds how much of a response is read.
const maxBody = 64 << 20

// Client talks to the insightview JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Nil is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// FilterOptions returns the legal values of each dashboard
// dimension. Keys the client does not know are dropped.
func (c *Client) FilterOptions(
	ctx context.Context,
) (filter.Options, error) {
	body, err := c.get(ctx, "/api/v1/filters", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching filter options: %w", err)
	}
	var raw map[string][]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding filter options: %w", err)
	}
	opts := filter.Options{}
	for key, vals := range raw {
		if d, ok := filter.ParseDimension(key); ok {
			opts[d] = vals
		}
	}
	return opts, nil
}

// Insights returns the records matching p. Array elements that
// are not records are dropped.
func (c *Client) Insights(
	ctx context.Context, p filter.Params,
) ([]insight.Record, error) {
	body, err := c.get(ctx, "/api/v1/insights", p)
	if err != nil {
		return nil, fmt.Errorf("fetching insights: %w", err)
	}
	ds, err := insight.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decoding insights: %w", err)
	}
	return ds.Records, nil
}

func (c *Client) get(
	ctx context.Context, path string, p filter.Params,
) ([]byte, error) {
	url := c.baseURL + path
	if q := p.Encode(); q != "" {
		url += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return nil, &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	return body, nil
}
