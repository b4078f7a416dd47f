// Package source is the HTTP client for the external scoring service. The
// service exposes a single read endpoint returning the current sentiment
// reading; its scoring pipeline is not the bridge's concern.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	bridgeerrors "github.com/vibeoracle/bridge-node/errors"
)

// DefaultTimeout bounds a single fetch request.
const DefaultTimeout = 15 * time.Second

// readEndpoint is the scoring service's oracle read path.
const readEndpoint = "/oracle"

// errorBodyLimit caps how much of a non-2xx response body is carried into
// the error message.
const errorBodyLimit = 512

// Client fetches sentiment readings from the scoring source.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a scoring-source client. A non-positive timeout falls
// back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With().Str("component", "source").Logger(),
	}
}

// Fetch performs one bounded-time read of the scoring source. The request is
// cancellable through ctx and additionally capped by the client timeout.
func (c *Client) Fetch(ctx context.Context) (*Reading, error) {
	url := c.baseURL + readEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, bridgeerrors.NewFetchError(fmt.Sprintf("request scoring source: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, bridgeerrors.NewFetchError(
			fmt.Sprintf("scoring source error %d: %s", resp.StatusCode, string(body)), nil)
	}

	var reading Reading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return nil, bridgeerrors.NewFetchError(
			fmt.Sprintf("decode scoring source response: %v", err), err)
	}
	reading.SampledAt = time.Now().UTC()

	logEvent := c.log.Debug()
	if reading.SmoothedScore != nil {
		logEvent = logEvent.Float64("smoothed_score", *reading.SmoothedScore)
	}
	if reading.PostCount != nil {
		logEvent = logEvent.Int("post_count", *reading.PostCount)
	}
	logEvent.Msg("fetched sentiment reading")

	return &reading, nil
}

// BaseURL returns the configured source base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
