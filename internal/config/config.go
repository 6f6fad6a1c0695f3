package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the service reads from the environment.
type AppConfig struct {
	// Required secrets. The service refuses to start without them.
	MeteoblueAPIKey string
	OpenAIAPIKey    string

	// Language model settings.
	OpenAIBaseURL string
	OpenAIModel   string

	// Geocoding backend: "nominatim" (default, keyless) or "google".
	GeocoderBackend string
	GoogleAPIKey    string

	// Upstream base URLs, overridable for tests and self-hosted mirrors.
	// Empty means each client's public default.
	NominatimBaseURL string
	ForecastBaseURL  string
	MeteogramBaseURL string
	OverpassBaseURL  string

	// Peak search radius around the resolved coordinates.
	PeakRadiusKm float64

	// Optional live avalanche-bulletin path (search + scrape + summarize).
	AvalancheLiveBulletins bool
	SerpAPIKey             string

	// Shared outbound HTTP client timeout.
	HTTPTimeout time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.MeteoblueAPIKey = os.Getenv("METEOBLUE_API_KEY")
	if cfg.MeteoblueAPIKey == "" {
		return nil, fmt.Errorf("METEOBLUE_API_KEY environment variable is not set")
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.OpenAIModel = getenvDefault("OPENAI_MODEL", "gpt-4o")

	cfg.GeocoderBackend = getenvDefault("GEOCODER", "nominatim")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	if cfg.GeocoderBackend != "nominatim" && cfg.GeocoderBackend != "google" {
		return nil, fmt.Errorf("invalid GEOCODER %q: must be nominatim or google", cfg.GeocoderBackend)
	}
	if cfg.GeocoderBackend == "google" && cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GEOCODER=google requires GOOGLE_API_KEY")
	}

	cfg.NominatimBaseURL = os.Getenv("NOMINATIM_BASE_URL")
	cfg.ForecastBaseURL = os.Getenv("FORECAST_BASE_URL")
	cfg.MeteogramBaseURL = os.Getenv("METEOGRAM_BASE_URL")
	cfg.OverpassBaseURL = os.Getenv("OVERPASS_BASE_URL")

	cfg.PeakRadiusKm = getenvFloat("PEAK_RADIUS_KM", 20)
	if cfg.PeakRadiusKm <= 0 {
		return nil, fmt.Errorf("PEAK_RADIUS_KM must be positive")
	}

	cfg.AvalancheLiveBulletins = getenvBool("AVALANCHE_LIVE_BULLETINS", false)
	cfg.SerpAPIKey = os.Getenv("SERPAPI_KEY")
	if cfg.AvalancheLiveBulletins && cfg.SerpAPIKey == "" {
		return nil, fmt.Errorf("AVALANCHE_LIVE_BULLETINS requires SERPAPI_KEY")
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
