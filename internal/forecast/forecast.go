package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skialp/skialp-backend/internal/upstream"
)

const fetchTimeout = 10 * time.Second

// Series holds the aligned hourly snow forecast for one coordinate pair.
// All slices share the Times index grid; nil entries are values the model
// did not produce for that hour.
type Series struct {
	Times         []string   `json:"time"`
	Temperature   []*float64 `json:"temperature"`
	Snowfall      []*float64 `json:"snowfall"`
	SnowDepth     []*float64 `json:"snow_depth"`
	FreezingLevel []*float64 `json:"freezing_level"`
}

// Current is the first usable reading per series.
type Current struct {
	Temperature   float64
	Snowfall      float64
	SnowDepth     float64
	FreezingLevel float64
}

// Current picks the first non-null entry of each series. A series that is
// entirely null reads as 0 rather than failing the report.
func (s Series) Current() Current {
	return Current{
		Temperature:   firstNonNil(s.Temperature),
		Snowfall:      firstNonNil(s.Snowfall),
		SnowDepth:     firstNonNil(s.SnowDepth),
		FreezingLevel: firstNonNil(s.FreezingLevel),
	}
}

func firstNonNil(values []*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// Provider fetches an hourly snow forecast for a coordinate pair.
type Provider interface {
	Fetch(ctx context.Context, lat, lon float64) (Series, error)
}

// OpenMeteoClient implements Provider against the Open-Meteo forecast API.
type OpenMeteoClient struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(client *http.Client, baseURL string) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &OpenMeteoClient{
		baseURL:    baseURL,
		httpClient: client,
		circuit:    upstream.NewBreaker("openmeteo"),
	}
}

// Fetch retrieves the hourly series in the location's local timezone so the
// first entries line up with the local day. Errors propagate; the caller
// decides whether a missing forecast degrades or aborts.
func (c *OpenMeteoClient) Fetch(ctx context.Context, lat, lon float64) (Series, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("hourly", "temperature_2m,snowfall,snow_depth,freezing_level_height")
		values.Set("timezone", "auto")

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := upstream.Do(ctx, c.httpClient, c.circuit, buildRequest)
	if err != nil {
		return Series{}, fmt.Errorf("forecast fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time                []string   `json:"time"`
			Temperature2m       []*float64 `json:"temperature_2m"`
			Snowfall            []*float64 `json:"snowfall"`
			SnowDepth           []*float64 `json:"snow_depth"`
			FreezingLevelHeight []*float64 `json:"freezing_level_height"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Series{}, fmt.Errorf("forecast: decode response: %w", err)
	}
	if len(payload.Hourly.Time) == 0 {
		return Series{}, fmt.Errorf("forecast: payload has no hourly grid")
	}

	return Series{
		Times:         payload.Hourly.Time,
		Temperature:   payload.Hourly.Temperature2m,
		Snowfall:      payload.Hourly.Snowfall,
		SnowDepth:     payload.Hourly.SnowDepth,
		FreezingLevel: payload.Hourly.FreezingLevelHeight,
	}, nil
}
