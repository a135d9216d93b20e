package domain

import "math"

// CaseRecord is one row of the state-day case series.
type CaseRecord struct {
	Date   string
	State  string // full state name as published
	FIPS   string // two-digit, zero padded
	Cases  int64
	Deaths int64
}

// ElectionRecord is a single county-level result row.
type ElectionRecord struct {
	State      string
	County     string
	Candidate  string
	Party      string
	TotalVotes int64
}

// Winner names the candidate who carried a state.
type Winner string

const (
	Biden Winner = "Biden"
	Trump Winner = "Trump"
)

// WinnerOf applies the strict majority rule: DEM must beat REP outright,
// anything else (including an exact tie) goes to Trump.
func WinnerOf(dem, rep int64) Winner {
	if dem > rep {
		return Biden
	}
	return Trump
}

// StateElectionSummary holds the pivoted two-party vote totals of a state.
type StateElectionSummary struct {
	State  string // abbreviation
	Name   string
	DEM    int64
	REP    int64
	Winner Winner
}

// StateCoronaSummary is the snapshot-date case row of a state.
type StateCoronaSummary struct {
	State  string // abbreviation
	Name   string
	FIPS   string
	Date   string
	Cases  int64
	Deaths int64
}

// JoinedRow is one state present in both the case snapshot and the election results.
type JoinedRow struct {
	State       string  `json:"state"`
	Name        string  `json:"name"`
	Cases       int64   `json:"cases"`
	Deaths      int64   `json:"deaths"`
	DEM         int64   `json:"dem"`
	REP         int64   `json:"rep"`
	Winner      Winner  `json:"winner"`
	RatioCases  float64 `json:"ratio_cases"`
	RepDemRatio float64 `json:"rep_dem_ratio"`
}

// Finite reports whether both derived ratios are usable numbers.
func (r JoinedRow) Finite() bool {
	return !math.IsNaN(r.RatioCases) && !math.IsInf(r.RatioCases, 0) &&
		!math.IsNaN(r.RepDemRatio) && !math.IsInf(r.RepDemRatio, 0)
}

// SeriesPoint is one day of a single state's time series.
type SeriesPoint struct {
	Date        string
	Cases       int64
	Deaths      int64
	DailyCases  int64
	DailyDeaths int64
}

// Bin counts states whose case total falls in [Lower, Upper).
type Bin struct {
	Lower float64
	Upper float64
	Count int
}
