package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/skialp/skialp-backend/internal/avalanche"
	"github.com/skialp/skialp-backend/internal/forecast"
	"github.com/skialp/skialp-backend/internal/geocode"
	"github.com/skialp/skialp-backend/internal/meteogram"
	"github.com/skialp/skialp-backend/internal/peaks"
	"github.com/skialp/skialp-backend/internal/summary"
)

// ErrMissingLocation is the only validation failure a report request has.
var ErrMissingLocation = errors.New("location is required")

// Service is the report orchestrator. It resolves coordinates, fans out to
// the independent data sources, and merges whatever came back. Only the
// coordinate resolution is fatal; every other stage degrades its own field.
type Service struct {
	geocoder   geocode.Geocoder
	forecasts  forecast.Provider
	meteograms meteogram.Provider
	peaks      peaks.Finder
	summarizer summary.Summarizer
	avalanche  avalanche.Resolver
}

func NewService(
	geocoder geocode.Geocoder,
	forecasts forecast.Provider,
	meteograms meteogram.Provider,
	peakFinder peaks.Finder,
	summarizer summary.Summarizer,
	avalancheResolver avalanche.Resolver,
) *Service {
	return &Service{
		geocoder:   geocoder,
		forecasts:  forecasts,
		meteograms: meteograms,
		peaks:      peakFinder,
		summarizer: summarizer,
		avalanche:  avalancheResolver,
	}
}

// BuildReport assembles one report. The returned error always carries a
// user-facing message; partial upstream failures do not surface here.
func (s *Service) BuildReport(ctx context.Context, req Request) (Report, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return Report{}, ErrMissingLocation
	}

	id := uuid.NewString()
	city, country := geocode.SplitCityCountry(location)
	log.Printf("report %s: building for city=%q country=%q", id, city, country)

	lat, lon, err := s.resolveCoordinates(ctx, req, location, id)
	if err != nil {
		return Report{}, err
	}

	// Forecast, meteogram, and peaks have no ordering dependency; fetch
	// them together and let each failure stay local to its field.
	var (
		wg        sync.WaitGroup
		series    forecast.Series
		seriesErr error
		image     []byte
		peakList  []peaks.Peak
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		series, seriesErr = s.forecasts.Fetch(ctx, lat, lon)
	}()
	go func() {
		defer wg.Done()
		image = s.meteograms.Fetch(ctx, lat, lon)
	}()
	go func() {
		defer wg.Done()
		peakList = s.peaks.Find(ctx, lat, lon)
	}()
	wg.Wait()

	rep := Report{
		Location:    location,
		NearbyPeaks: peakViews(peakList),
	}

	var current forecast.Current
	if seriesErr != nil {
		log.Printf("report %s: forecast unavailable: %v", id, seriesErr)
	} else {
		current = series.Current()
		rep.Temperature = &current.Temperature
		rep.SnowDepth = &current.SnowDepth
		rep.Snowfall = &current.Snowfall
		rep.FreezingLevel = &current.FreezingLevel
	}

	if image != nil {
		uri := meteogram.DataURI(image)
		rep.Meteogram = &uri

		analysis, err := s.summarizer.Summarize(ctx, uri, summary.Conditions{
			Location:      location,
			Snowfall:      current.Snowfall,
			SnowDepth:     current.SnowDepth,
			FreezingLevel: current.FreezingLevel,
		})
		if err != nil {
			log.Printf("report %s: summary unavailable: %v", id, err)
		} else {
			rep.MeteogramAnalysis = &analysis
		}
	}

	rep.AvalancheRisk = s.avalanche.Resolve(ctx, country, location)

	return rep, nil
}

// ValidateLocation resolves a free-text query without building a report.
// The similarity score comes back as an advisory field; no threshold is
// enforced.
func (s *Service) ValidateLocation(ctx context.Context, query string) (geocode.ResolvedLocation, error) {
	resolved, err := s.geocoder.Resolve(ctx, query)
	if err != nil {
		return geocode.ResolvedLocation{}, validateFailure(query, err)
	}
	return resolved, nil
}

// validateFailure keeps the resolver's failure modes distinguishable in the
// message the caller sees.
func validateFailure(query string, err error) error {
	switch {
	case errors.Is(err, geocode.ErrEmptyQuery):
		return errors.New("query must not be empty")
	case errors.Is(err, geocode.ErrNoResults):
		return fmt.Errorf("no location found for %q", query)
	case errors.Is(err, geocode.ErrTimeout):
		return errors.New("location lookup timed out")
	case errors.Is(err, geocode.ErrUnreachable):
		return errors.New("location service is unreachable")
	default:
		return fmt.Errorf("location lookup failed: %v", err)
	}
}

// resolveCoordinates prefers an explicit pair from the request; a single
// coordinate on its own is ignored. Resolver failure is the one fatal stage.
func (s *Service) resolveCoordinates(ctx context.Context, req Request, location, id string) (float64, float64, error) {
	if req.Lat != nil && req.Lon != nil {
		return *req.Lat, *req.Lon, nil
	}

	resolved, err := s.geocoder.Resolve(ctx, location)
	if err != nil {
		log.Printf("report %s: geocoding failed: %v", id, err)
		return 0, 0, resolveFailure(location, err)
	}
	return resolved.Lat, resolved.Lon, nil
}

// resolveFailure turns resolver errors into the message shown to the user.
func resolveFailure(location string, err error) error {
	switch {
	case errors.Is(err, geocode.ErrEmptyQuery):
		return ErrMissingLocation
	case errors.Is(err, geocode.ErrNoResults):
		return fmt.Errorf("could not find location %q", location)
	case errors.Is(err, geocode.ErrTimeout):
		return fmt.Errorf("location lookup timed out for %q", location)
	case errors.Is(err, geocode.ErrUnreachable):
		return fmt.Errorf("location service is unreachable")
	default:
		return fmt.Errorf("could not resolve location %q", location)
	}
}
