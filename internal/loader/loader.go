// Package loader reads the case series and the county election results from
// delimited files into typed records.
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/conorfennell/casevote/internal/domain"
)

var (
	CaseColumns     = []string{"date", "state", "fips", "cases", "deaths"}
	ElectionColumns = []string{"state", "party", "total_votes"}

	optionalElectionColumns = []string{"county", "candidate"}
)

// ErrMissingColumn is wrapped by DataLoadError when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// LoadCases reads the case series file at path.
func LoadCases(path string) ([]domain.CaseRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer file.Close()

	records, err := ParseCases(file)
	return records, withPath(err, path)
}

// LoadElections reads the county election results file at path.
func LoadElections(path string) ([]domain.ElectionRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer file.Close()

	records, err := ParseElections(file)
	return records, withPath(err, path)
}

// ParseCases reads case rows from r. The header must contain CaseColumns.
func ParseCases(r io.Reader) ([]domain.CaseRecord, error) {
	f, err := readFrame(r, CaseColumns)
	if err != nil {
		return nil, err
	}

	dates := f.col("date")
	names := f.col("state")
	fips := f.col("fips")
	cases := f.col("cases")
	deaths := f.col("deaths")

	records := make([]domain.CaseRecord, 0, f.rows())
	for i := 0; i < f.rows(); i++ {
		c, err := parseCount(cases[i])
		if err != nil {
			return nil, &DataLoadError{Column: "cases", Row: i + 2, Err: err}
		}
		d, err := parseCount(deaths[i])
		if err != nil {
			return nil, &DataLoadError{Column: "deaths", Row: i + 2, Err: err}
		}
		records = append(records, domain.CaseRecord{
			Date:   strings.TrimSpace(dates[i]),
			State:  strings.TrimSpace(names[i]),
			FIPS:   strings.TrimSpace(fips[i]),
			Cases:  c,
			Deaths: d,
		})
	}
	return records, nil
}

// ParseElections reads election rows from r. The header must contain
// ElectionColumns; county and candidate are picked up when present.
func ParseElections(r io.Reader) ([]domain.ElectionRecord, error) {
	f, err := readFrame(r, ElectionColumns)
	if err != nil {
		return nil, err
	}

	names := f.col("state")
	parties := f.col("party")
	votes := f.col("total_votes")
	optional := make(map[string][]string)
	for _, col := range optionalElectionColumns {
		if f.has(col) {
			optional[col] = f.col(col)
		}
	}

	records := make([]domain.ElectionRecord, 0, f.rows())
	for i := 0; i < f.rows(); i++ {
		v, err := parseCount(votes[i])
		if err != nil {
			return nil, &DataLoadError{Column: "total_votes", Row: i + 2, Err: err}
		}
		rec := domain.ElectionRecord{
			State:      strings.TrimSpace(names[i]),
			Party:      strings.TrimSpace(parties[i]),
			TotalVotes: v,
		}
		if col, ok := optional["county"]; ok {
			rec.County = strings.TrimSpace(col[i])
		}
		if col, ok := optional["candidate"]; ok {
			rec.Candidate = strings.TrimSpace(col[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// frame is a text-only dataframe with header lookup by lower-cased name.
type frame struct {
	df      dataframe.DataFrame
	headers map[string]string
}

// readFrame loads every column as text so that FIPS codes and dates keep
// their published form, then checks the required headers.
func readFrame(r io.Reader, required []string) (*frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, &DataLoadError{Err: fmt.Errorf("failed to parse csv: %w", df.Err)}
	}

	f := &frame{df: df, headers: make(map[string]string)}
	for _, n := range df.Names() {
		f.headers[strings.ToLower(strings.TrimSpace(n))] = n
	}
	for _, col := range required {
		if !f.has(col) {
			return nil, &DataLoadError{Column: col, Err: ErrMissingColumn}
		}
	}
	return f, nil
}

func (f *frame) has(col string) bool {
	_, ok := f.headers[col]
	return ok
}

func (f *frame) col(name string) []string {
	return f.df.Col(f.headers[name]).Records()
}

func (f *frame) rows() int {
	return f.df.Nrow()
}

// parseCount accepts integer text or a whole float ("1000.0").
func parseCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("invalid count %q", raw)
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %q", raw)
	}
	return n, nil
}

func withPath(err error, path string) error {
	var loadErr *DataLoadError
	if errors.As(err, &loadErr) && loadErr.Path == "" {
		loadErr.Path = path
	}
	return err
}
