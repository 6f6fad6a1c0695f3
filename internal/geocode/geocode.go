package geocode

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolver failure taxonomy. Callers branch on these with errors.Is; anything
// else coming out of Resolve is a generic upstream failure.
var (
	ErrEmptyQuery  = errors.New("empty location query")
	ErrTimeout     = errors.New("geocoding timed out")
	ErrUnreachable = errors.New("geocoding service unreachable")
	ErrNoResults   = errors.New("no matching location found")
)

// ResolvedLocation is the canonical answer for a free-text place query.
// Similarity is advisory only: low-confidence matches are never rejected.
type ResolvedLocation struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Query      string  `json:"original_query"`
	Similarity float64 `json:"similarity"`
}

// Geocoder resolves free text to a single best-match location.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (ResolvedLocation, error)
}

// SplitCityCountry splits a "City, Country" query. The city is whatever
// precedes the first comma, the country whatever trails the last one. A
// query without a comma degenerates to city == country == query.
func SplitCityCountry(s string) (city, country string) {
	parts := strings.Split(s, ",")
	city = strings.TrimSpace(parts[0])
	country = strings.TrimSpace(parts[len(parts)-1])
	return city, country
}

var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases and strips diacritics so "Chamonix-Mont-Blanc" and
// "chamonix-mont-blanc" or "Sölden" and "solden" compare equal. Display
// fields keep the original casing; folding is for comparison only.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransform, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Similarity returns a normalized edit-distance ratio in [0,1] between the
// folded query and the folded canonical name: 1.0 for identical strings,
// falling toward 0 as they diverge.
func Similarity(query, name string) float64 {
	a, b := Fold(query), Fold(name)
	if a == b {
		return 1.0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}

	ratio := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
