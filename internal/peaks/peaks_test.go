package peaks

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElevation(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"3048", f(3048)},
		{"3048 m", f(3048)},
		{"3048m", f(3048)},
		{" 2500.5 ", f(2500.5)},
		{"-12 m", f(-12)},
		{"unknown", nil},
		{"", nil},
		{"m 3048", nil},
	}
	for _, tc := range cases {
		got := ParseElevation(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "ParseElevation(%q)", tc.in)
		} else {
			require.NotNil(t, got, "ParseElevation(%q)", tc.in)
			assert.Equal(t, *tc.want, *got, "ParseElevation(%q)", tc.in)
		}
	}
}

func f(v float64) *float64 { return &v }

func TestRankSortsAndCaps(t *testing.T) {
	elements := []overpassElement{
		{Lat: 1, Lon: 1, Tags: map[string]string{"name": "A", "ele": "1000"}},
		{Lat: 2, Lon: 2, Tags: map[string]string{"name": "B", "ele": "4810 m"}},
		{Lat: 3, Lon: 3, Tags: map[string]string{"name": "C"}},
		{Lat: 4, Lon: 4, Tags: map[string]string{"name": "D", "ele": "3048"}},
		{Lat: 5, Lon: 5, Tags: map[string]string{"ele": "2000"}},
		{Lat: 6, Lon: 6, Tags: map[string]string{"name": "F", "ele": "bogus"}},
		{Lat: 7, Lon: 7, Tags: map[string]string{"name": "G", "ele": "1500"}},
		{Lat: 8, Lon: 8, Tags: map[string]string{"name": "H", "ele": "1200"}},
	}

	ranked := rank(elements)
	require.Len(t, ranked, 6, "list is capped at six")

	assert.Equal(t, "B", ranked[0].Name)
	assert.Equal(t, "D", ranked[1].Name)
	assert.Equal(t, "Unnamed peak", ranked[2].Name, "missing name gets the default")

	// Descending by parsed elevation, nil ranking as 0.
	prev := math.Inf(1)
	for _, p := range ranked {
		cur := 0.0
		if p.Elevation != nil {
			cur = *p.Elevation
		}
		assert.LessOrEqual(t, cur, prev, "peaks must be sorted descending")
		prev = cur
	}

	// Unparsable elevations sort last but are not omitted.
	last := ranked[len(ranked)-1]
	assert.Nil(t, last.Elevation)
}

func TestBoxAround(t *testing.T) {
	box := BoxAround(45.9237, 6.8694, 20)

	assert.InDelta(t, 45.9237-20.0/111.0, box.South, 1e-9)
	assert.InDelta(t, 45.9237+20.0/111.0, box.North, 1e-9)

	wantDLon := 20.0 / (111.0 * math.Cos(45.9237*math.Pi/180))
	assert.InDelta(t, 6.8694-wantDLon, box.West, 1e-9)
	assert.InDelta(t, 6.8694+wantDLon, box.East, 1e-9)
}

func TestOverpassFind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		data := r.Form.Get("data")
		if !strings.Contains(data, `node["natural"="peak"]`) {
			t.Errorf("query missing peak filter: %q", data)
		}
		w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":45.93,"lon":6.87,"tags":{"name":"Aiguille du Midi","ele":"3842 m"}},
			{"type":"node","id":2,"lat":45.83,"lon":6.86,"tags":{"name":"Mont Blanc","ele":"4810"}}
		]}`))
	}))
	defer srv.Close()

	finder := NewOverpassFinder(&http.Client{Timeout: 5 * time.Second}, srv.URL, 0)
	got := finder.Find(context.Background(), 45.9237, 6.8694)

	require.Len(t, got, 2)
	assert.Equal(t, "Mont Blanc", got[0].Name, "highest peak first")
	require.NotNil(t, got[0].Elevation)
	assert.Equal(t, 4810.0, *got[0].Elevation)
}

func TestOverpassFindFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	finder := NewOverpassFinder(&http.Client{Timeout: 5 * time.Second}, srv.URL, 20)
	if got := finder.Find(context.Background(), 45.9, 6.8); len(got) != 0 {
		t.Fatalf("expected empty list on upstream failure, got %d peaks", len(got))
	}
}
