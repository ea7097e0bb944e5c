package bridgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

// ErrMalformedResponse is returned when the bridge answer is not the
// expected {"<channel>": "<number>"|null} object.
var ErrMalformedResponse = errors.New("malformed bridge response")

const maxBody = 4 << 10

// Client reads the current value of one channel from the polling bridge.
type Client struct {
	baseURL    string
	channel    reading.Channel
	httpClient *http.Client
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, channel reading.Channel, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		channel:    channel,
		httpClient: &http.Client{Timeout: time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Channel() reading.Channel { return c.channel }

// Fetch performs one GET /api/<channel>. A null answer yields reading.Unknown
// with a nil error; transport failures, non-2xx statuses and bodies that do
// not carry a number return an error.
func (c *Client) Fetch(ctx context.Context) (reading.Value, error) {
	url := fmt.Sprintf("%s/api/%s", c.baseURL, c.channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return reading.Unknown, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reading.Unknown, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return reading.Unknown, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return reading.Unknown, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	raw, ok := body[string(c.channel)]
	if !ok {
		return reading.Unknown, fmt.Errorf("%w: missing %q", ErrMalformedResponse, c.channel)
	}
	if string(raw) == "null" {
		return reading.Unknown, nil
	}

	v, err := decodeNumber(raw)
	if err != nil {
		return reading.Unknown, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return reading.Of(reading.Reading{Channel: c.channel, Value: v, ObservedAt: time.Now()}), nil
}

// decodeNumber accepts both the string form the bridge emits and a bare number.
func decodeNumber(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
