// Package forecast fetches and decodes the Open-Meteo forecast used by the panel.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	dailyFields   = "temperature_2m_max,temperature_2m_min,sunrise,sunset,weather_code"
	hourlyFields  = "dew_point_2m"
	currentFields = "temperature_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m"

	defaultHTTPTimeout  = 30 * time.Second
	defaultUserAgent    = "cloudpico-display"
	maxResponseBodySize = 4 << 20
)

// Location is the static place the forecast is requested for.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Client issues forecast requests for one Location.
type Client struct {
	baseURL   string
	location  Location
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// Option mutates the client during construction.
type Option func(*Client)

// WithBaseURL overrides the endpoint (tests, self-hosted Open-Meteo).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMinInterval spaces requests at least d apart. Zero disables the limiter.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLimiter installs a caller-owned limiter, shared across clients if needed.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(loc Location, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		location:  loc,
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		limiter:   rate.NewLimiter(rate.Every(10*time.Second), 1),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if strings.TrimSpace(c.baseURL) == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// URL returns the full request URL for the configured location.
func (c *Client) URL() string {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(c.location.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(c.location.Longitude, 'f', -1, 64))
	params.Set("daily", dailyFields)
	params.Set("hourly", hourlyFields)
	params.Set("current", currentFields)
	params.Set("timeformat", "unixtime")
	params.Set("timezone", c.location.Timezone)
	return c.baseURL + "?" + params.Encode()
}

// Fetch performs one GET and decodes the body. It never retries or blocks on
// the limiter; a call inside the minimum interval fails with ErrRateLimited.
func (c *Client) Fetch(ctx context.Context) (*Response, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, fmt.Errorf("%w: %w", ErrFetch, ErrRateLimited)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("forecast: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	c.logger.Debug("forecast fetched",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildAPIError(resp.StatusCode, raw)
	}
	return Decode(raw)
}

// Decode parses and validates a forecast payload.
func Decode(raw []byte) (*Response, error) {
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
