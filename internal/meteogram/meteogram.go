package meteogram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skialp/skialp-backend/internal/upstream"
)

const fetchTimeout = 15 * time.Second

// Provider fetches a rendered forecast chart for a coordinate pair. A nil
// result is a valid outcome: the meteogram is supplementary and its absence
// must never fail a report.
type Provider interface {
	Fetch(ctx context.Context, lat, lon float64) []byte
}

// MeteoblueClient renders classical meteograms through the meteoblue image
// API. The returned PNG is carried as an opaque blob; it is re-encoded as a
// data URI downstream but never decoded.
type MeteoblueClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewMeteoblueClient(client *http.Client, apiKey, baseURL string) *MeteoblueClient {
	if baseURL == "" {
		baseURL = "https://my.meteoblue.com/visimage/meteogram_web"
	}
	return &MeteoblueClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: client,
		circuit:    upstream.NewBreaker("meteoblue"),
	}
}

// Fetch returns the rendered chart bytes, or nil on any failure. Failures
// are logged and swallowed here; downstream stages skip image-dependent work
// when the result is nil.
func (c *MeteoblueClient) Fetch(ctx context.Context, lat, lon float64) []byte {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", c.apiKey)
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("look", "CLASSICAL")
		values.Set("temperature_units", "C")
		values.Set("wind_units", "kmh")
		values.Set("winddirection", "degree")
		values.Set("precipitation_units", "mm")

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := upstream.Do(ctx, c.httpClient, c.circuit, buildRequest)
	if err != nil {
		log.Printf("meteogram: fetch failed for %.4f,%.4f: %v", lat, lon, err)
		return nil
	}
	defer resp.Body.Close()

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("meteogram: read body failed for %.4f,%.4f: %v", lat, lon, err)
		return nil
	}
	if len(image) == 0 {
		return nil
	}
	return image
}

// DataURI re-encodes the raw chart bytes for embedding in a JSON response.
func DataURI(image []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
}
