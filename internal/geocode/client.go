package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const baseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client geocodes location strings with the Google Maps Geocoding
// API. An empty API key disables the client; lookups then return
// nothing and the pipeline carries on without coordinates.
type Client struct {
	apiKey     string
	region     string
	bounds     string
	area       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient builds a geocoding client biased toward the given region
// and bounding box. area is appended to every query for local context,
// e.g. "Lambeth, London, UK".
func NewClient(apiKey, region, bounds, area string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		region:     region,
		bounds:     bounds,
		area:       area,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.WithService(slog.Default(), "geocode"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type apiResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Lookup geocodes one location string. Failures of any kind return an
// error the caller is expected to log and swallow; coordinates are
// enrichment, never a reason to fail an email.
func (c *Client) Lookup(ctx context.Context, location string) (*store.Coordinate, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("geocoding disabled (no API key)")
	}

	params := url.Values{}
	params.Set("address", location+", "+c.area)
	params.Set("key", c.apiKey)
	params.Set("region", c.region)
	params.Set("bounds", c.bounds)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: status %d", location, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return nil, fmt.Errorf("geocode %q: %s", location, parsed.Status)
	}

	result := parsed.Results[0]
	return &store.Coordinate{
		Name:             location,
		FormattedAddress: result.FormattedAddress,
		Lat:              result.Geometry.Location.Lat,
		Lng:              result.Geometry.Location.Lng,
		PlaceID:          result.PlaceID,
	}, nil
}

// LookupAll geocodes a batch of locations, skipping any that fail.
func (c *Client) LookupAll(ctx context.Context, locations []string) []store.Coordinate {
	if !c.Enabled() || len(locations) == 0 {
		return nil
	}

	coords := make([]store.Coordinate, 0, len(locations))
	for _, loc := range locations {
		coord, err := c.Lookup(ctx, loc)
		if err != nil {
			c.logger.Warn("geocoding failed", slog.String("location", loc), logging.Err(err))
			continue
		}
		coords = append(coords, *coord)
	}
	return coords
}
