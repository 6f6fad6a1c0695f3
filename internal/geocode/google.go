package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"
)

// GoogleGeocoder resolves locations through the Google Geocoding API via the
// kelvins/geocoder bindings. Selected with GEOCODER=google; Nominatim stays
// the default because it needs no key.
type GoogleGeocoder struct{}

// NewGoogleGeocoder configures the package-level API key the bindings use.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google geocoder requires an api key")
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}, nil
}

// Resolve geocodes the query as a structured city/country address. The
// bindings offer no context support, so cancellation is checked around the
// call rather than propagated into it.
func (g *GoogleGeocoder) Resolve(ctx context.Context, query string) (ResolvedLocation, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ResolvedLocation{}, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return ResolvedLocation{}, err
	}

	city, country := SplitCityCountry(trimmed)
	address := geocoder.Address{
		City:    city,
		Country: country,
	}

	location, err := geocoder.Geocoding(address)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return ResolvedLocation{}, ErrNoResults
		}
		return ResolvedLocation{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !validCoordinates(location.Latitude, location.Longitude) {
		return ResolvedLocation{}, fmt.Errorf("geocoding: coordinates out of range: %f, %f", location.Latitude, location.Longitude)
	}

	name := address.FormatAddress()
	return ResolvedLocation{
		Name:       name,
		Lat:        location.Latitude,
		Lon:        location.Longitude,
		Query:      trimmed,
		Similarity: Similarity(trimmed, name),
	}, nil
}
