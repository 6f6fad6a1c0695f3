package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skialp/skialp-backend/internal/upstream"
)

const resolveTimeout = 10 * time.Second

// NominatimGeocoder resolves locations against the OSM Nominatim search API.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

// NewNominatimGeocoder creates the default geocoding backend. baseURL is
// overridable for tests; empty means the public Nominatim instance.
func NewNominatimGeocoder(client *http.Client, baseURL string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &NominatimGeocoder{
		baseURL:    baseURL,
		httpClient: client,
		circuit:    upstream.NewBreaker("nominatim"),
	}
}

// nominatimResult mirrors the relevant parts of the OSM search payload.
// Nominatim serializes coordinates as strings.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Resolve looks up the query and keeps only the first (highest ranked)
// candidate. An empty query fails before any outbound call is made.
func (g *NominatimGeocoder) Resolve(ctx context.Context, query string) (ResolvedLocation, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ResolvedLocation{}, ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", trimmed)
		values.Set("format", "json")
		values.Set("limit", "1")

		req, err := http.NewRequest(http.MethodGet, g.baseURL+"/search?"+values.Encode(), nil)
		if err != nil {
			return nil, err
		}
		// Nominatim's usage policy requires an identifying agent.
		req.Header.Set("User-Agent", "skialp-backend/1.0")
		return req, nil
	}

	resp, err := upstream.Do(ctx, g.httpClient, g.circuit, buildRequest)
	if err != nil {
		return ResolvedLocation{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return ResolvedLocation{}, fmt.Errorf("geocoding: decode response: %w", err)
	}
	if len(results) == 0 {
		return ResolvedLocation{}, ErrNoResults
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return ResolvedLocation{}, fmt.Errorf("geocoding: malformed latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return ResolvedLocation{}, fmt.Errorf("geocoding: malformed longitude %q: %w", first.Lon, err)
	}
	if !validCoordinates(lat, lon) {
		return ResolvedLocation{}, fmt.Errorf("geocoding: coordinates out of range: %f, %f", lat, lon)
	}

	return ResolvedLocation{
		Name:       first.DisplayName,
		Lat:        lat,
		Lon:        lon,
		Query:      trimmed,
		Similarity: Similarity(trimmed, first.DisplayName),
	}, nil
}

// classifyTransportError maps low-level failures onto the resolver taxonomy.
func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, upstream.ErrServerError),
		errors.Is(err, upstream.ErrRateLimited),
		errors.Is(err, upstream.ErrUnexpected),
		errors.Is(err, upstream.ErrCircuitOpen):
		return fmt.Errorf("geocoding failed: %w", err)
	default:
		// client.Do errors at this point are connection-level problems.
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}
