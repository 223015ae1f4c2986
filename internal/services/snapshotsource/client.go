// Package snapshotsource fetches validated snapshots from the upstream
// data-quality service.
package snapshotsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Moatline/internal/domain/models"
	"Moatline/internal/domain/service"
	xhttp "Moatline/pkg/http"
)

// Client implements service.SnapshotSource over HTTP:
// GET {baseURL}/api/v1/snapshots/{ticker} returning a SnapshotPayload.
type Client struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
	backoff  time.Duration
}

var _ service.SnapshotSource = (*Client)(nil)

type Option func(*Client)

// WithRetry retries transient failures (network errors, 429, 5xx).
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(3 * time.Second)),
		attempts: 1,
		backoff:  50 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Fetch(ctx context.Context, ticker string) (models.Snapshot, error) {
	if c.baseURL == "" {
		return models.Snapshot{}, fmt.Errorf("snapshot source not configured")
	}
	path := "/api/v1/snapshots/" + url.PathEscape(strings.ToUpper(ticker))

	var payload models.SnapshotPayload
	var err error
	for i := 1; i <= c.attempts; i++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.baseURL + path,
		}, &payload)
		if err == nil || !transient(err) || i == c.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * c.backoff):
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		}
	}
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return models.Snapshot{}, fmt.Errorf("%s: %w", ticker, service.ErrSnapshotNotFound)
		}
		return models.Snapshot{}, fmt.Errorf("fetch snapshot %s: %w: %w", ticker, service.ErrUpstream, err)
	}
	return FromPayload(payload)
}

func transient(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// transport-level failures
	return !errors.Is(err, context.Canceled)
}
