// Package prep turns the raw case series and county election results into
// the per-state tables the dashboard renders.
//
// Prepare is pure: it never mutates its inputs and returns identical output
// for identical input, so callers may memoize it by input fingerprint.
package prep

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/conorfennell/casevote/internal/domain"
	"github.com/conorfennell/casevote/internal/states"
)

// DefaultSnapshotDate is the most recent date of the case series at the time
// the election comparison was made.
const DefaultSnapshotDate = "2022-05-12"

// Parties kept from the election results.
const (
	PartyDEM = "DEM"
	PartyREP = "REP"
)

// Options configures Prepare.
type Options struct {
	SnapshotDate string
}

// Dataset is everything the render functions need.
type Dataset struct {
	SnapshotDate string
	Cases        []domain.CaseRecord
	Elections    []domain.StateElectionSummary
	Snapshot     []domain.StateCoronaSummary
	Joined       []domain.JoinedRow
	Warnings     Warnings
}

// Prepare runs the whole pipeline. It only fails on invalid options; data
// problems are reported through Dataset.Warnings.
func Prepare(cases []domain.CaseRecord, elections []domain.ElectionRecord, opts Options) (*Dataset, error) {
	if opts.SnapshotDate == "" {
		opts.SnapshotDate = DefaultSnapshotDate
	}
	if _, err := parseDate(opts.SnapshotDate); err != nil {
		return nil, fmt.Errorf("invalid snapshot date: %w", err)
	}

	ds := &Dataset{
		SnapshotDate: opts.SnapshotDate,
		Cases:        cases,
	}
	ds.Snapshot = SnapshotAt(cases, opts.SnapshotDate, &ds.Warnings)
	ds.Elections = SummarizeElections(elections, &ds.Warnings)
	ds.Joined = Join(ds.Snapshot, ds.Elections, &ds.Warnings)

	slog.Info("prepared dataset",
		"snapshot_date", ds.SnapshotDate,
		"case_rows", len(cases),
		"election_states", len(ds.Elections),
		"joined_states", len(ds.Joined),
		"warnings", len(ds.Warnings),
	)
	return ds, nil
}

// SnapshotAt keeps the case rows of a single date and keys them by state
// abbreviation. Rows whose FIPS code is unknown are skipped.
func SnapshotAt(cases []domain.CaseRecord, date string, w *Warnings) []domain.StateCoronaSummary {
	var out []domain.StateCoronaSummary
	var unknown []string
	seen := make(map[string]bool)

	for _, c := range cases {
		if c.Date != date {
			continue
		}
		abbrev, ok := states.AbbrevForFIPS(c.FIPS)
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%s (fips %q)", c.State, c.FIPS))
			continue
		}
		if seen[abbrev] {
			continue
		}
		seen[abbrev] = true
		out = append(out, domain.StateCoronaSummary{
			State:  abbrev,
			Name:   c.State,
			FIPS:   c.FIPS,
			Date:   c.Date,
			Cases:  c.Cases,
			Deaths: c.Deaths,
		})
	}

	if w != nil {
		if len(out) == 0 && len(unknown) == 0 {
			w.add(MissingSnapshot, fmt.Sprintf("no case rows dated %s", date))
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			w.add(UnknownFIPS, "case rows with a fips code outside the lookup table", unknown...)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

// SummarizeElections restricts the results to DEM and REP, sums votes per
// state and party, pivots the parties into columns and picks the winner.
func SummarizeElections(elections []domain.ElectionRecord, w *Warnings) []domain.StateElectionSummary {
	totals := make(map[string]*domain.StateElectionSummary)
	unknown := make(map[string]bool)

	for _, e := range elections {
		if e.Party != PartyDEM && e.Party != PartyREP {
			continue
		}
		abbrev, ok := states.AbbrevForName(e.State)
		if !ok {
			unknown[e.State] = true
			continue
		}
		s, ok := totals[abbrev]
		if !ok {
			s = &domain.StateElectionSummary{State: abbrev, Name: e.State}
			totals[abbrev] = s
		}
		if e.Party == PartyDEM {
			s.DEM += e.TotalVotes
		} else {
			s.REP += e.TotalVotes
		}
	}

	out := make([]domain.StateElectionSummary, 0, len(totals))
	var tied []string
	for _, s := range totals {
		s.Winner = domain.WinnerOf(s.DEM, s.REP)
		if s.DEM == s.REP {
			tied = append(tied, s.State)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })

	if w != nil {
		if len(unknown) > 0 {
			w.add(UnknownStateName, "election rows with a state name outside the lookup table", sortedKeys(unknown)...)
		}
		if len(tied) > 0 {
			sort.Strings(tied)
			w.add(TiedVote, "exact DEM/REP tie assigned to Trump", tied...)
		}
	}
	return out
}

// Join inner-joins the snapshot and the election summaries on the state
// abbreviation and derives the ratios. Rows come back sorted by state.
func Join(snapshot []domain.StateCoronaSummary, elections []domain.StateElectionSummary, w *Warnings) []domain.JoinedRow {
	byState := make(map[string]domain.StateElectionSummary, len(elections))
	for _, e := range elections {
		byState[e.State] = e
	}

	matched := make(map[string]bool)
	var dropped, zero []string
	out := make([]domain.JoinedRow, 0, len(snapshot))

	for _, c := range snapshot {
		e, ok := byState[c.State]
		if !ok {
			dropped = append(dropped, c.State)
			continue
		}
		matched[c.State] = true

		row := domain.JoinedRow{
			State:       c.State,
			Name:        c.Name,
			Cases:       c.Cases,
			Deaths:      c.Deaths,
			DEM:         e.DEM,
			REP:         e.REP,
			Winner:      e.Winner,
			RatioCases:  ratio(c.Cases, e.DEM+e.REP),
			RepDemRatio: ratio(e.REP, e.DEM),
		}
		if !row.Finite() {
			zero = append(zero, c.State)
		}
		out = append(out, row)
	}
	for _, e := range elections {
		if !matched[e.State] {
			dropped = append(dropped, e.State)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })

	if w != nil {
		if len(dropped) > 0 {
			sort.Strings(dropped)
			w.add(DroppedState, "states missing from one of the sources were left out of the join", dropped...)
		}
		if len(zero) > 0 {
			w.add(ZeroVotes, "zero vote denominators, ratios set to NaN", zero...)
		}
	}
	return out
}

// ratio divides, yielding NaN instead of an infinity for a zero denominator.
func ratio(num, den int64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
