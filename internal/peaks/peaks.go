package peaks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skialp/skialp-backend/internal/upstream"
)

const (
	// DefaultRadiusKm is the search radius around the resolved coordinates.
	DefaultRadiusKm = 20.0

	// maxPeaks caps how many peaks a report carries.
	maxPeaks = 6

	fetchTimeout = 15 * time.Second

	kmPerDegree = 111.0
)

// Peak is a named summit near the requested coordinates. Elevation is nil
// when the database has no parsable value; such peaks rank last but are
// still listed.
type Peak struct {
	Name      string   `json:"name"`
	Elevation *float64 `json:"elevation_m"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
}

// Finder returns nearby peaks ranked by elevation. Peaks are supplementary:
// implementations fail open and return an empty list on any upstream
// problem.
type Finder interface {
	Find(ctx context.Context, lat, lon float64) []Peak
}

// BoundingBox is a south/west/north/east degree box.
type BoundingBox struct {
	South, West, North, East float64
}

// BoxAround computes a bounding box from a radius using the flat-Earth
// approximation: 1 degree of latitude is ~111 km, a degree of longitude
// shrinks with cos(lat). Good enough at tens of kilometers away from the
// poles.
func BoxAround(lat, lon, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegree
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusKm / (kmPerDegree * cosLat)

	return BoundingBox{
		South: lat - dLat,
		West:  lon - dLon,
		North: lat + dLat,
		East:  lon + dLon,
	}
}

// OverpassFinder queries the Overpass geospatial API for point features
// tagged natural=peak.
type OverpassFinder struct {
	baseURL    string
	radiusKm   float64
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewOverpassFinder(client *http.Client, baseURL string, radiusKm float64) *OverpassFinder {
	if baseURL == "" {
		baseURL = "https://overpass-api.de/api/interpreter"
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &OverpassFinder{
		baseURL:    baseURL,
		radiusKm:   radiusKm,
		httpClient: client,
		circuit:    upstream.NewBreaker("overpass"),
	}
}

type overpassElement struct {
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Find returns up to six peaks within the configured radius, highest first.
func (f *OverpassFinder) Find(ctx context.Context, lat, lon float64) []Peak {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	box := BoxAround(lat, lon, f.radiusKm)
	query := fmt.Sprintf(`[out:json];node["natural"="peak"](%f,%f,%f,%f);out;`,
		box.South, box.West, box.North, box.East)

	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("data", query)
		req, err := http.NewRequest(http.MethodPost, f.baseURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := upstream.Do(ctx, f.httpClient, f.circuit, buildRequest)
	if err != nil {
		log.Printf("peaks: overpass query failed for %.4f,%.4f: %v", lat, lon, err)
		return nil
	}
	defer resp.Body.Close()

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("peaks: decode overpass response: %v", err)
		return nil
	}

	return rank(payload.Elements)
}

// rank converts raw elements into the report's peak list: named, sorted by
// descending parsed elevation, capped at six. Peaks with missing or
// unparsable elevation sort last but are never dropped.
func rank(elements []overpassElement) []Peak {
	peaks := make([]Peak, 0, len(elements))
	for _, el := range elements {
		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed peak"
		}
		peaks = append(peaks, Peak{
			Name:      name,
			Elevation: ParseElevation(el.Tags["ele"]),
			Lat:       el.Lat,
			Lon:       el.Lon,
		})
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return rankElevation(peaks[i]) > rankElevation(peaks[j])
	})

	if len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}
	return peaks
}

func rankElevation(p Peak) float64 {
	if p.Elevation == nil {
		return 0
	}
	return *p.Elevation
}

// ParseElevation extracts the numeric value from a free-text elevation tag
// such as "3048", "3048 m" or "3048m". Anything without a leading number
// yields nil.
func ParseElevation(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && c == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return nil
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return nil
	}
	return &v
}
