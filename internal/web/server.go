package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/conorfennell/casevote/internal/charts"
	"github.com/conorfennell/casevote/internal/domain"
	"github.com/conorfennell/casevote/internal/export"
	"github.com/conorfennell/casevote/internal/prep"
	"github.com/conorfennell/casevote/internal/regress"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Map toggle values.
const (
	MapCases     = "cases"
	MapElections = "elections"
)

var errUnknownState = errors.New("unknown state")

// RefreshFunc re-reads the sources and prepares a new dataset.
type RefreshFunc func(ctx context.Context) (*prep.Dataset, error)

// Server holds the dependencies for the HTTP server.
type Server struct {
	mu        sync.RWMutex
	ds        *prep.Dataset
	names     []string
	dates     []string
	refresh   RefreshFunc
	router    *http.ServeMux
	templates *template.Template
}

// NewServer creates and configures a new server for ds. refresh may be nil,
// in which case POST /sync is refused.
func NewServer(ds *prep.Dataset, refresh RefreshFunc) *Server {
	// Parse templates
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		refresh:   refresh,
		router:    http.NewServeMux(),
		templates: tpl,
	}
	s.setDataset(ds)
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setDataset(ds *prep.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
	s.names = prep.StateNames(ds.Cases)
	s.dates = prep.Dates(ds.Cases)
}

// snapshot returns the current dataset and its derived dropdown domains.
func (s *Server) snapshot() (*prep.Dataset, []string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds, s.names, s.dates
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.HandleFunc("/", s.handleDashboard())

	// HTMX-based routes
	s.router.HandleFunc("/partials/timeseries", s.handlePartial("timeseries"))
	s.router.HandleFunc("/partials/map", s.handlePartial("map"))
	s.router.HandleFunc("/partials/regression", s.handlePartial("regression"))
	s.router.HandleFunc("/partials/warnings", s.handlePartial("warnings"))

	// Chart images
	s.router.HandleFunc("/charts/histogram.png", s.handleChart(renderHistogram))
	s.router.HandleFunc("/charts/dynamics.png", s.handleChart(renderDynamics))
	s.router.HandleFunc("/charts/timeseries.png", s.handleChart(renderTimeSeries))
	s.router.HandleFunc("/charts/map.png", s.handleChart(renderMap))
	s.router.HandleFunc("/charts/scatter.png", s.handleChart(renderScatter))
	s.router.HandleFunc("/charts/regression.png", s.handleChart(renderRegression))

	// Data routes
	s.router.HandleFunc("/api/summary", s.handleSummary())
	s.router.HandleFunc("/api/warnings", s.handleWarnings())
	s.router.HandleFunc("/export.xlsx", s.handleExport())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

// selection is the UI state carried in query parameters.
type selection struct {
	State string
	Map   string
	Order int
	Date  string
}

// parseSelection reads the UI state from r. Invalid toggles fall back to
// their defaults; an unknown state is an error.
func parseSelection(r *http.Request, ds *prep.Dataset, names, dates []string) (selection, error) {
	q := r.URL.Query()
	sel := selection{Map: MapCases, Order: regress.Linear}

	if m := q.Get("map"); m == MapElections {
		sel.Map = MapElections
	}
	if o, err := strconv.Atoi(q.Get("order")); err == nil && (o == regress.Linear || o == regress.Quadratic) {
		sel.Order = o
	}

	sel.Date = q.Get("date")
	if !contains(dates, sel.Date) {
		sel.Date = ""
		if len(dates) > 0 {
			sel.Date = dates[len(dates)-1]
		}
	}

	sel.State = q.Get("state")
	switch {
	case sel.State == "":
		if len(names) > 0 {
			sel.State = names[0]
		}
	case !ds.HasState(sel.State):
		return sel, errUnknownState
	}
	return sel, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// pageData is passed to every template.
type pageData struct {
	selection
	SnapshotDate string
	States       []string
	Dates        []string
	Warnings     prep.Warnings
	Joined       []domain.JoinedRow
	Syncable     bool
}

func (s *Server) pageData(r *http.Request) (pageData, error) {
	ds, names, dates := s.snapshot()
	sel, err := parseSelection(r, ds, names, dates)
	if err != nil {
		return pageData{}, err
	}
	return pageData{
		selection:    sel,
		SnapshotDate: ds.SnapshotDate,
		States:       names,
		Dates:        dates,
		Warnings:     ds.Warnings,
		Joined:       ds.Joined,
		Syncable:     s.refresh != nil,
	}, nil
}

// handleDashboard renders the full page.
func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		data, err := s.pageData(r)
		if errors.Is(err, errUnknownState) {
			http.Error(w, "Unknown state", http.StatusNotFound)
			return
		}
		if err := s.templates.ExecuteTemplate(w, "dashboard", data); err != nil {
			log.Printf("Error rendering dashboard: %v", err)
		}
	}
}

// handlePartial re-renders one section of the page for HTMX.
func (s *Server) handlePartial(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		data, err := s.pageData(r)
		if errors.Is(err, errUnknownState) {
			http.Error(w, "Unknown state", http.StatusNotFound)
			return
		}
		if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
			log.Printf("Error rendering %s partial: %v", name, err)
		}
	}
}

// renderFunc draws one chart for the current selection.
type renderFunc func(w io.Writer, ds *prep.Dataset, sel selection) error

func renderHistogram(w io.Writer, ds *prep.Dataset, _ selection) error {
	return charts.Histogram(w, ds.Joined, ds.SnapshotDate)
}

func renderDynamics(w io.Writer, ds *prep.Dataset, sel selection) error {
	return charts.Dynamics(w, prep.Frame(ds.Cases, sel.Date), sel.Date)
}

func renderTimeSeries(w io.Writer, ds *prep.Dataset, sel selection) error {
	return charts.TimeSeries(w, sel.State, prep.StateSeries(ds.Cases, sel.State))
}

func renderMap(w io.Writer, ds *prep.Dataset, sel selection) error {
	if sel.Map == MapElections {
		return charts.ElectionMap(w, ds.Elections)
	}
	return charts.CaseMap(w, ds.Joined, ds.SnapshotDate)
}

func renderScatter(w io.Writer, ds *prep.Dataset, _ selection) error {
	return charts.Scatter(w, ds.Joined, 0)
}

func renderRegression(w io.Writer, ds *prep.Dataset, sel selection) error {
	return charts.Scatter(w, ds.Joined, sel.Order)
}

// handleChart renders a PNG into memory so that a failed render can still
// produce a proper error status.
func (s *Server) handleChart(render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ds, names, dates := s.snapshot()
		sel, err := parseSelection(r, ds, names, dates)
		if err != nil {
			http.Error(w, "Unknown state", http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		err = render(&buf, ds, sel)
		switch {
		case errors.Is(err, charts.ErrNoData), errors.Is(err, regress.ErrTooFewPoints):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			log.Printf("Error rendering chart %s: %v", r.URL.Path, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := buf.WriteTo(w); err != nil {
			log.Printf("Error writing chart %s: %v", r.URL.Path, err)
		}
	}
}

// summaryRow is a JoinedRow with NaN ratios encoded as null.
type summaryRow struct {
	State       string        `json:"state"`
	Name        string        `json:"name"`
	Cases       int64         `json:"cases"`
	Deaths      int64         `json:"deaths"`
	DEM         int64         `json:"dem"`
	REP         int64         `json:"rep"`
	Winner      domain.Winner `json:"winner"`
	RatioCases  *float64      `json:"ratio_cases"`
	RepDemRatio *float64      `json:"rep_dem_ratio"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// handleSummary returns the joined table as JSON.
func (s *Server) handleSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ds, _, _ := s.snapshot()
		rows := make([]summaryRow, 0, len(ds.Joined))
		for _, j := range ds.Joined {
			rows = append(rows, summaryRow{
				State:       j.State,
				Name:        j.Name,
				Cases:       j.Cases,
				Deaths:      j.Deaths,
				DEM:         j.DEM,
				REP:         j.REP,
				Winner:      j.Winner,
				RatioCases:  finiteOrNil(j.RatioCases),
				RepDemRatio: finiteOrNil(j.RepDemRatio),
			})
		}
		writeJSON(w, map[string]interface{}{
			"snapshot_date": ds.SnapshotDate,
			"rows":          rows,
		})
	}
}

// handleWarnings returns the data-integrity warnings as JSON.
func (s *Server) handleWarnings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ds, _, _ := s.snapshot()
		warnings := ds.Warnings
		if warnings == nil {
			warnings = prep.Warnings{}
		}
		writeJSON(w, warnings)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// handleExport streams the prepared tables as an XLSX workbook.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ds, _, _ := s.snapshot()
		var buf bytes.Buffer
		if err := export.Write(&buf, ds); err != nil {
			log.Printf("Error building workbook: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="casevote-`+ds.SnapshotDate+`.xlsx"`)
		if _, err := buf.WriteTo(w); err != nil {
			log.Printf("Error writing workbook: %v", err)
		}
	}
}

// handlePostSync refreshes the sources and re-renders the warnings panel.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.refresh == nil {
			http.Error(w, "Sync is not configured", http.StatusServiceUnavailable)
			return
		}

		ds, err := s.refresh(r.Context()) // Run in the foreground to make the user wait
		if err != nil {
			log.Printf("Error refreshing dataset: %v", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}
		s.setDataset(ds)

		data, err := s.pageData(r)
		if err != nil {
			log.Printf("Error reading selection after sync: %v", err)
		}
		// HTMX refreshes the chart images on this event.
		w.Header().Set("HX-Trigger", "dataset-refreshed")
		s.templates.ExecuteTemplate(w, "sync_success", data)
		s.templates.ExecuteTemplate(w, "warnings", data)
	}
}
