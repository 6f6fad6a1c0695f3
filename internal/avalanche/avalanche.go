package avalanche

import "context"

// knownSources maps a country to its authoritative avalanche bulletin site.
var knownSources = map[string]string{
	"Italy":       "https://www.aineva.it",
	"France":      "https://www.meteofrance.com",
	"Switzerland": "https://www.slf.ch",
	"Austria":     "https://lawinen.at/",
	"USA":         "https://www.avalanche.org",
	"Canada":      "https://www.avalanche.ca",
}

// SourceFor returns the bulletin URL for a country, or nil for countries we
// have no source for.
func SourceFor(country string) *string {
	if url, ok := knownSources[country]; ok {
		return &url
	}
	return nil
}

// Resolver maps the parsed country and location onto the report's avalanche
// field. A nil result means no source is known; it never fails the report.
type Resolver interface {
	Resolve(ctx context.Context, country, location string) *string
}

// StaticResolver is the default, guaranteed-contract resolver: a lookup in
// the fixed country table.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, country, _ string) *string {
	return SourceFor(country)
}
