package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/skialp/skialp-backend/internal/avalanche"
	"github.com/skialp/skialp-backend/internal/forecast"
	"github.com/skialp/skialp-backend/internal/geocode"
	"github.com/skialp/skialp-backend/internal/peaks"
	"github.com/skialp/skialp-backend/internal/report"
	"github.com/skialp/skialp-backend/internal/summary"
)

type stubGeocoder struct {
	loc   geocode.ResolvedLocation
	err   error
	calls int
}

func (s *stubGeocoder) Resolve(ctx context.Context, query string) (geocode.ResolvedLocation, error) {
	s.calls++
	return s.loc, s.err
}

type stubForecast struct {
	series forecast.Series
	err    error
}

func (s *stubForecast) Fetch(ctx context.Context, lat, lon float64) (forecast.Series, error) {
	return s.series, s.err
}

type stubMeteogram struct{ image []byte }

func (s *stubMeteogram) Fetch(ctx context.Context, lat, lon float64) []byte { return s.image }

type stubPeaks struct{ found []peaks.Peak }

func (s *stubPeaks) Find(ctx context.Context, lat, lon float64) []peaks.Peak { return s.found }

type stubSummarizer struct {
	text string
	err  error
}

func (s *stubSummarizer) Summarize(ctx context.Context, uri string, cond summary.Conditions) (string, error) {
	return s.text, s.err
}

func f(v float64) *float64 { return &v }

func newTestApp(svc *report.Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, svc)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

func TestValidateLocationEndpoint(t *testing.T) {
	g := &stubGeocoder{loc: geocode.ResolvedLocation{
		Name: "Chamonix-Mont-Blanc, France", Lat: 45.9237, Lon: 6.8694,
		Query: "Chamonix", Similarity: 0.53,
	}}
	svc := report.NewService(g, &stubForecast{}, &stubMeteogram{}, &stubPeaks{}, &stubSummarizer{}, avalanche.StaticResolver{})
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/validate-location", strings.NewReader(`{"query":"Chamonix"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	loc, ok := body["location"].(map[string]any)
	if !ok {
		t.Fatalf("expected a location object, got %v", body)
	}
	if loc["name"] != "Chamonix-Mont-Blanc, France" {
		t.Errorf("unexpected name %v", loc["name"])
	}
	if loc["original_query"] != "Chamonix" {
		t.Errorf("unexpected original_query %v", loc["original_query"])
	}
	lat := loc["lat"].(float64)
	lon := loc["lon"].(float64)
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		t.Errorf("coordinates out of bounds: %f, %f", lat, lon)
	}
	sim := loc["similarity"].(float64)
	if sim < 0 || sim > 1 {
		t.Errorf("similarity out of bounds: %f", sim)
	}
}

func TestValidateLocationEmptyQuery(t *testing.T) {
	g := &stubGeocoder{}
	svc := report.NewService(g, &stubForecast{}, &stubMeteogram{}, &stubPeaks{}, &stubSummarizer{}, avalanche.StaticResolver{})
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/validate-location", strings.NewReader(`{"query":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Error surface is a 200 with an error payload.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if _, ok := body["error"]; !ok {
		t.Fatalf("expected an error payload, got %v", body)
	}
	if g.calls != 0 {
		t.Fatalf("empty query must not reach the geocoder, calls=%d", g.calls)
	}
}

func TestReportEndpointWithExplicitCoordinates(t *testing.T) {
	g := &stubGeocoder{err: errors.New("must not be called")}
	fc := &stubForecast{series: forecast.Series{
		Times:         []string{"2026-01-10T00:00", "2026-01-10T01:00"},
		Temperature:   []*float64{f(-4.1), f(-3.9)},
		Snowfall:      []*float64{f(0), f(0.7)},
		SnowDepth:     []*float64{nil, f(2.3)},
		FreezingLevel: []*float64{f(1800), f(1750)},
	}}
	pk := &stubPeaks{found: []peaks.Peak{{Name: "Mont Blanc", Elevation: f(4810), Lat: 45.83, Lon: 6.86}}}
	// No meteogram available upstream.
	svc := report.NewService(g, fc, &stubMeteogram{image: nil}, pk, &stubSummarizer{text: "unused"}, avalanche.StaticResolver{})
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/report?lat=45.9237&lon=6.8694&location=Chamonix,%20France", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if g.calls != 0 {
		t.Errorf("explicit coordinates must bypass geocoding")
	}
	if body["location"] != "Chamonix, France" {
		t.Errorf("unexpected location %v", body["location"])
	}
	if body["snow_depth"] != 2.3 {
		t.Errorf("current snow depth should be 2.3, got %v", body["snow_depth"])
	}
	if body["meteogram_analysis"] != nil {
		t.Errorf("analysis must be null without a meteogram, got %v", body["meteogram_analysis"])
	}
	peaksList := body["nearby_peaks"].([]any)
	if len(peaksList) != 1 {
		t.Fatalf("expected 1 peak, got %d", len(peaksList))
	}
	if body["avalanche_risk"] != "https://www.meteofrance.com" {
		t.Errorf("unexpected avalanche source %v", body["avalanche_risk"])
	}
}

func TestReportEndpointMissingLocation(t *testing.T) {
	svc := report.NewService(&stubGeocoder{}, &stubForecast{}, &stubMeteogram{}, &stubPeaks{}, &stubSummarizer{}, avalanche.StaticResolver{})
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/report", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if _, ok := body["error"]; !ok {
		t.Fatalf("expected an error payload, got %v", body)
	}
}

func TestReportEndpointMalformedCoordinateFallsBack(t *testing.T) {
	g := &stubGeocoder{loc: geocode.ResolvedLocation{Name: "Milan", Lat: 45.46, Lon: 9.19, Query: "Milan", Similarity: 1}}
	fc := &stubForecast{err: errors.New("unavailable")}
	svc := report.NewService(g, fc, &stubMeteogram{}, &stubPeaks{}, &stubSummarizer{}, avalanche.StaticResolver{})
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/report?location=Milan&lat=abc&lon=9.19", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, resp)
	if _, ok := body["error"]; ok {
		t.Fatalf("malformed lat should fall back to geocoding, got error %v", body["error"])
	}
	if g.calls != 1 {
		t.Fatalf("expected geocoder fallback, calls=%d", g.calls)
	}
	// "Milan" has no comma: the whole string doubles as the country, which
	// is not in the avalanche table.
	if body["avalanche_risk"] != nil {
		t.Errorf("expected null avalanche source for Milan, got %v", body["avalanche_risk"])
	}
}
