package prep

import (
	"sort"
	"time"

	"github.com/conorfennell/casevote/internal/domain"
)

const dateLayout = "2006-01-02"

// Histogram bins: states are counted per million cases up to ten million.
const (
	HistogramStep = 1e6
	HistogramMax  = 10e6
)

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// StateNames lists the distinct state names of the case series, sorted.
func StateNames(cases []domain.CaseRecord) []string {
	seen := make(map[string]bool)
	for _, c := range cases {
		seen[c.State] = true
	}
	return sortedKeys(seen)
}

// Dates lists the distinct dates of the case series in calendar order.
func Dates(cases []domain.CaseRecord) []string {
	seen := make(map[string]bool)
	for _, c := range cases {
		seen[c.Date] = true
	}
	// ISO dates sort lexically in calendar order.
	return sortedKeys(seen)
}

// Frame returns the case rows of one date, ordered by state name.
func Frame(cases []domain.CaseRecord, date string) []domain.CaseRecord {
	var out []domain.CaseRecord
	for _, c := range cases {
		if c.Date == date {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

// StateSeries builds the time series of one state with first differences.
// The first day has no predecessor and reports zero; negative daily deaths
// come from data corrections and are clamped to zero. Daily cases are left
// unclamped.
func StateSeries(cases []domain.CaseRecord, name string) []domain.SeriesPoint {
	var rows []domain.CaseRecord
	for _, c := range cases {
		if c.State == name {
			rows = append(rows, c)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	out := make([]domain.SeriesPoint, len(rows))
	for i, c := range rows {
		p := domain.SeriesPoint{Date: c.Date, Cases: c.Cases, Deaths: c.Deaths}
		if i > 0 {
			p.DailyCases = c.Cases - rows[i-1].Cases
			p.DailyDeaths = c.Deaths - rows[i-1].Deaths
			if p.DailyDeaths < 0 {
				p.DailyDeaths = 0
			}
		}
		out[i] = p
	}
	return out
}

// ByWinner keeps the joined rows carried by the given candidate.
func ByWinner(rows []domain.JoinedRow, winner domain.Winner) []domain.JoinedRow {
	var out []domain.JoinedRow
	for _, r := range rows {
		if r.Winner == winner {
			out = append(out, r)
		}
	}
	return out
}

// CaseHistogram counts the states won by winner in each case bin. Totals at
// or above HistogramMax fall outside every bin.
func CaseHistogram(rows []domain.JoinedRow, winner domain.Winner) []domain.Bin {
	n := int(HistogramMax / HistogramStep)
	bins := make([]domain.Bin, n)
	for i := range bins {
		bins[i] = domain.Bin{
			Lower: float64(i) * HistogramStep,
			Upper: float64(i+1) * HistogramStep,
		}
	}
	for _, r := range ByWinner(rows, winner) {
		i := int(float64(r.Cases) / HistogramStep)
		if i >= 0 && i < n {
			bins[i].Count++
		}
	}
	return bins
}

// HasState reports whether name appears in the case series.
func (ds *Dataset) HasState(name string) bool {
	for _, c := range ds.Cases {
		if c.State == name {
			return true
		}
	}
	return false
}
