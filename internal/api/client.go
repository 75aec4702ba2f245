// internal/api/client.go
//
// HTTP client for the megaverse challenge API.
// Endpoints:
//   POST   <base>/{polyanets,soloons,comeths}   create one object
//   DELETE <base>/{polyanets,soloons,comeths}   delete one object
//   GET    <base>/map/{candidateId}/goal        goal map
//
// Every call is exactly one request: retries belong to internal/submit.

// Package api is the HTTP client for the megaverse challenge API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

const defaultTimeout = 30 * time.Second

// Client talks to the challenge API on behalf of one candidate.
type Client struct {
	baseURL     string
	candidateID string
	httpClient  *http.Client
	log         zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request-level debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL (e.g. https://challenge.crossmint.io/api).
func NewClient(baseURL, candidateID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		candidateID: candidateID,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create places obj: POST <base>/<resource>.
func (c *Client) Create(ctx context.Context, obj megaverse.Object) error {
	return c.write(ctx, http.MethodPost, "create", obj)
}

// Delete removes obj: DELETE <base>/<resource> with the same body shape.
func (c *Client) Delete(ctx context.Context, obj megaverse.Object) error {
	return c.write(ctx, http.MethodDelete, "delete", obj)
}

func (c *Client) write(ctx context.Context, method, op string, obj megaverse.Object) error {
	resource := obj.Kind.Resource()
	if resource == "" {
		return &RequestError{Op: op, Object: &obj, Hint: "unknown object kind", Err: obj.Validate()}
	}
	body, err := json.Marshal(obj.Request(c.candidateID))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", obj, err)
	}

	resp, err := c.do(ctx, method, c.baseURL+"/"+resource, bytes.NewReader(body))
	if err != nil {
		return &RequestError{Op: op, Object: &obj, Hint: transportHint(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RequestError{
			Op:         op,
			Object:     &obj,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			Hint:       hintForStatus(resp.StatusCode),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GoalMap fetches the candidate's target megaverse: GET <base>/map/<id>/goal.
func (c *Client) GoalMap(ctx context.Context) (*megaverse.GoalMap, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/map/%s/goal", c.baseURL, c.candidateID), nil)
	if err != nil {
		return nil, &RequestError{Op: "goal", Hint: transportHint(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RequestError{
			Op:         "goal",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			Hint:       hintForStatus(resp.StatusCode),
		}
	}

	var g megaverse.GoalMap
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode goal map: %w", err)
	}
	return &g, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	ev := c.log.Debug().Str("method", method).Str("url", url).Str("request_id", reqID).Dur("took", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("request done")
	return resp, nil
}

// transportHint describes errors that produced no HTTP response.
func transportHint(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out, wait before trying again"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "the request timed out, wait before trying again"
	}
	return "connection error, the URL may be wrong (check API_URL)"
}
