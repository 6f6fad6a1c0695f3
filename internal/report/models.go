package report

import (
	"fmt"

	"github.com/skialp/skialp-backend/internal/peaks"
)

// Request carries the raw inputs of one report. Lat and Lon override
// geocoding only when both are present.
type Request struct {
	Location string
	Lat      *float64
	Lon      *float64
}

// Peak is the API view of a nearby summit. Elevation is pre-formatted
// because the upstream database stores it as free text and the frontend
// renders it verbatim.
type Peak struct {
	Name      string  `json:"name"`
	Elevation string  `json:"elevation"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Report is the aggregate response for one location. Every field except
// Location is optional: a failing collaborator leaves its own field empty
// and the rest of the report intact.
type Report struct {
	Location          string   `json:"location"`
	Meteogram         *string  `json:"meteogram"`
	NearbyPeaks       []Peak   `json:"nearby_peaks"`
	MeteogramAnalysis *string  `json:"meteogram_analysis"`
	Temperature       *float64 `json:"temperature"`
	SnowDepth         *float64 `json:"snow_depth"`
	Snowfall          *float64 `json:"snowfall"`
	FreezingLevel     *float64 `json:"freezing_level"`
	AvalancheRisk     *string  `json:"avalanche_risk"`
}

func peakViews(found []peaks.Peak) []Peak {
	views := make([]Peak, 0, len(found))
	for _, p := range found {
		elevation := "Unknown"
		if p.Elevation != nil {
			elevation = fmt.Sprintf("%.0f m", *p.Elevation)
		}
		views = append(views, Peak{
			Name:      p.Name,
			Elevation: elevation,
			Lat:       p.Lat,
			Lon:       p.Lon,
		})
	}
	return views
}
