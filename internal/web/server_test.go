package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conorfennell/casevote/internal/domain"
	"github.com/conorfennell/casevote/internal/prep"
)

func testDataset(t *testing.T) *prep.Dataset {
	t.Helper()
	cases := []domain.CaseRecord{
		{Date: "2022-05-11", State: "Washington", FIPS: "53", Cases: 990000, Deaths: 11900},
		{Date: "2022-05-12", State: "Washington", FIPS: "53", Cases: 1000000, Deaths: 12000},
		{Date: "2022-05-11", State: "Texas", FIPS: "48", Cases: 6790000, Deaths: 87900},
		{Date: "2022-05-12", State: "Texas", FIPS: "48", Cases: 6800000, Deaths: 88000},
		{Date: "2022-05-12", State: "California", FIPS: "6", Cases: 9000000, Deaths: 90000},
		{Date: "2022-05-12", State: "Vermont", FIPS: "50", Cases: 130000, Deaths: 600},
	}
	elections := []domain.ElectionRecord{
		{State: "Washington", Party: "DEM", TotalVotes: 2500000},
		{State: "Washington", Party: "REP", TotalVotes: 2000000},
		{State: "Texas", Party: "DEM", TotalVotes: 5250000},
		{State: "Texas", Party: "REP", TotalVotes: 5890000},
		{State: "California", Party: "DEM", TotalVotes: 11000000},
		{State: "California", Party: "REP", TotalVotes: 6000000},
		{State: "Vermont", Party: "DEM", TotalVotes: 0},
		{State: "Vermont", Party: "REP", TotalVotes: 0},
		{State: "Vermont", Party: "LIB", TotalVotes: 1000},
	}
	ds, err := prep.Prepare(cases, elections, prep.Options{})
	if err != nil {
		t.Fatalf("Prepare() returned an unexpected error: %v", err)
	}
	return ds
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestDashboard(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	rr := get(t, s, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"2022-05-12",
		`<option value="Washington"`,
		"/charts/histogram.png",
		"/charts/timeseries.png?state=California",
		"zero_votes",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected dashboard to contain %q", want)
		}
	}
	if strings.Contains(body, `hx-post="/sync"`) {
		t.Error("Expected no sync button without a refresh function")
	}
}

func TestDashboardUnknownStateIsNotFound(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	for _, target := range []string{
		"/?state=Atlantis",
		"/partials/timeseries?state=Atlantis",
		"/charts/timeseries.png?state=Atlantis",
	} {
		if rr := get(t, s, target); rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, but got %d", target, rr.Code)
		}
	}
	if rr := get(t, s, "/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown path, but got %d", rr.Code)
	}
}

func TestPartialsFallBackOnInvalidToggles(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	testCases := []struct {
		target string
		want   string
	}{
		{"/partials/map?map=elections", "/charts/map.png?map=elections"},
		{"/partials/map?map=bogus", "/charts/map.png?map=cases"},
		{"/partials/regression?order=2", "/charts/regression.png?order=2"},
		{"/partials/regression?order=7", "/charts/regression.png?order=1"},
		{"/partials/timeseries?state=Texas", "/charts/timeseries.png?state=Texas"},
	}
	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			rr := get(t, s, tc.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, but got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Errorf("Expected fragment to contain %q, got %s", tc.want, rr.Body.String())
			}
		})
	}
}

func TestChartsArePNG(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	for _, target := range []string{
		"/charts/histogram.png",
		"/charts/dynamics.png?date=2022-05-11",
		"/charts/dynamics.png?date=not-a-date",
		"/charts/timeseries.png?state=Washington",
		"/charts/map.png",
		"/charts/map.png?map=elections",
		"/charts/scatter.png",
		"/charts/regression.png?order=1",
		"/charts/regression.png?order=2",
	} {
		t.Run(target, func(t *testing.T) {
			rr := get(t, s, target)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, but got %d: %s", rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Expected Content-Type image/png, but got %q", ct)
			}
			if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
				t.Error("Expected a PNG body")
			}
		})
	}
}

func TestChartWithoutDataIsNotFound(t *testing.T) {
	ds, err := prep.Prepare(nil, nil, prep.Options{})
	if err != nil {
		t.Fatalf("Prepare() returned an unexpected error: %v", err)
	}
	s := NewServer(ds, nil)

	if rr := get(t, s, "/charts/scatter.png"); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, but got %d", rr.Code)
	}
	if rr := get(t, s, "/"); rr.Code != http.StatusOK {
		t.Errorf("Expected empty dashboard to render, but got %d", rr.Code)
	}
}

func TestSummaryEncodesNaNAsNull(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	rr := get(t, s, "/api/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rr.Code)
	}
	var got struct {
		SnapshotDate string `json:"snapshot_date"`
		Rows         []struct {
			State      string   `json:"state"`
			Winner     string   `json:"winner"`
			RatioCases *float64 `json:"ratio_cases"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if got.SnapshotDate != "2022-05-12" {
		t.Errorf("Expected snapshot date 2022-05-12, but got %q", got.SnapshotDate)
	}
	if len(got.Rows) != 4 {
		t.Fatalf("Expected 4 rows, but got %d", len(got.Rows))
	}
	for _, r := range got.Rows {
		switch r.State {
		case "VT":
			if r.RatioCases != nil {
				t.Errorf("Expected null ratio for VT, but got %v", *r.RatioCases)
			}
		case "WA":
			if r.RatioCases == nil || *r.RatioCases != 1000000.0/4500000.0 {
				t.Errorf("Expected WA ratio %v, but got %v", 1000000.0/4500000.0, r.RatioCases)
			}
			if r.Winner != "Biden" {
				t.Errorf("Expected WA winner Biden, but got %s", r.Winner)
			}
		}
	}
}

func TestWarningsJSON(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	rr := get(t, s, "/api/warnings")
	var got []prep.IntegrityError
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode warnings: %v", err)
	}
	found := false
	for _, w := range got {
		if w.Kind == prep.ZeroVotes {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a zero_votes warning, got %+v", got)
	}
}

func TestExport(t *testing.T) {
	s := NewServer(testDataset(t), nil)

	rr := get(t, s, "/export.xlsx")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rr.Code)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("Expected a zip container")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "casevote-2022-05-12.xlsx") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
}

func TestSync(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := NewServer(testDataset(t), nil)
		rr := httptest.NewRecorder()
		s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, but got %d", rr.Code)
		}
	})

	t.Run("method", func(t *testing.T) {
		s := NewServer(testDataset(t), nil)
		if rr := get(t, s, "/sync"); rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, but got %d", rr.Code)
		}
	})

	t.Run("replaces dataset", func(t *testing.T) {
		fresh, err := prep.Prepare(nil, nil, prep.Options{SnapshotDate: "2021-01-01"})
		if err != nil {
			t.Fatal(err)
		}
		calls := 0
		s := NewServer(testDataset(t), func(ctx context.Context) (*prep.Dataset, error) {
			calls++
			return fresh, nil
		})

		rr := httptest.NewRecorder()
		s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, but got %d", rr.Code)
		}
		if calls != 1 {
			t.Errorf("Expected refresh to be called once, but got %d", calls)
		}
		if rr.Header().Get("HX-Trigger") != "dataset-refreshed" {
			t.Error("Expected HX-Trigger header")
		}
		if !strings.Contains(rr.Body.String(), "2021-01-01") {
			t.Errorf("Expected sync notice with the new snapshot date, got %s", rr.Body.String())
		}
		if ds, _, _ := s.snapshot(); ds != fresh {
			t.Error("Expected server to hold the refreshed dataset")
		}
	})

	t.Run("failure keeps dataset", func(t *testing.T) {
		old := testDataset(t)
		s := NewServer(old, func(ctx context.Context) (*prep.Dataset, error) {
			return nil, errors.New("boom")
		})
		rr := httptest.NewRecorder()
		s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync", nil))
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, but got %d", rr.Code)
		}
		if ds, _, _ := s.snapshot(); ds != old {
			t.Error("Expected the previous dataset to be kept")
		}
	})
}
