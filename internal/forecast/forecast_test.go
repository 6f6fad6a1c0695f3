package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func TestCurrentSkipsLeadingNulls(t *testing.T) {
	s := Series{
		Times:         []string{"2026-01-10T00:00", "2026-01-10T01:00", "2026-01-10T02:00"},
		Temperature:   []*float64{f(-4.1), f(-3.9), f(-3.5)},
		Snowfall:      []*float64{nil, nil, f(0.7)},
		SnowDepth:     []*float64{nil, f(2.3), f(2.4)},
		FreezingLevel: []*float64{nil, nil, nil},
	}

	cur := s.Current()
	if cur.Temperature != -4.1 {
		t.Errorf("temperature: want -4.1, got %f", cur.Temperature)
	}
	if cur.SnowDepth != 2.3 {
		t.Errorf("snow depth: first non-null should win, want 2.3, got %f", cur.SnowDepth)
	}
	if cur.Snowfall != 0.7 {
		t.Errorf("snowfall: want 0.7, got %f", cur.Snowfall)
	}
	if cur.FreezingLevel != 0 {
		t.Errorf("all-null series should read as 0, got %f", cur.FreezingLevel)
	}
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("timezone") != "auto" {
			t.Errorf("expected timezone=auto, got %q", q.Get("timezone"))
		}
		if q.Get("hourly") != "temperature_2m,snowfall,snow_depth,freezing_level_height" {
			t.Errorf("unexpected hourly variables: %q", q.Get("hourly"))
		}
		w.Write([]byte(`{"hourly":{
			"time":["2026-01-10T00:00","2026-01-10T01:00"],
			"temperature_2m":[-4.1,-3.9],
			"snowfall":[null,0.7],
			"snow_depth":[null,2.3],
			"freezing_level_height":[1800.0,1750.0]
		}}`))
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)
	series, err := c.Fetch(context.Background(), 45.9237, 6.8694)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cur := series.Current()
	if cur.SnowDepth != 2.3 {
		t.Errorf("current snow depth: want 2.3, got %f", cur.SnowDepth)
	}
	if cur.FreezingLevel != 1800.0 {
		t.Errorf("current freezing level: want 1800, got %f", cur.FreezingLevel)
	}
}

func TestOpenMeteoFetchPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)
	if _, err := c.Fetch(context.Background(), 45.9, 6.8); err == nil {
		t.Fatal("expected an error on upstream failure")
	}
}

func TestOpenMeteoFetchRejectsEmptyGrid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly":{"time":[]}}`))
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)
	if _, err := c.Fetch(context.Background(), 45.9, 6.8); err == nil {
		t.Fatal("expected an error on empty hourly grid")
	}
}
