package prep

import (
	"reflect"
	"testing"

	"github.com/conorfennell/casevote/internal/domain"
)

func TestStateSeries(t *testing.T) {
	cases := []domain.CaseRecord{
		{Date: "2022-01-03", State: "Ohio", Cases: 130, Deaths: 9},
		{Date: "2022-01-01", State: "Ohio", Cases: 100, Deaths: 5},
		{Date: "2022-01-02", State: "Ohio", Cases: 120, Deaths: 10},
		{Date: "2022-01-02", State: "Utah", Cases: 50, Deaths: 1},
	}

	series := StateSeries(cases, "Ohio")
	if len(series) != 3 {
		t.Fatalf("Expected 3 points, but got %d", len(series))
	}

	expected := []domain.SeriesPoint{
		{Date: "2022-01-01", Cases: 100, Deaths: 5, DailyCases: 0, DailyDeaths: 0},
		{Date: "2022-01-02", Cases: 120, Deaths: 10, DailyCases: 20, DailyDeaths: 5},
		{Date: "2022-01-03", Cases: 130, Deaths: 9, DailyCases: 10, DailyDeaths: 0},
	}
	if !reflect.DeepEqual(series, expected) {
		t.Errorf("Expected %+v, but got %+v", expected, series)
	}
}

func TestStateNamesAndDates(t *testing.T) {
	cases := sampleCases()

	names := StateNames(cases)
	if !reflect.DeepEqual(names, []string{"California", "Oregon", "Texas", "Washington"}) {
		t.Errorf("Unexpected state names %v", names)
	}
	dates := Dates(cases)
	if !reflect.DeepEqual(dates, []string{"2022-05-11", "2022-05-12"}) {
		t.Errorf("Unexpected dates %v", dates)
	}
	if got := len(Frame(cases, "2022-05-12")); got != 4 {
		t.Errorf("Expected 4 rows in the frame, but got %d", got)
	}
}

func TestCaseHistogram(t *testing.T) {
	rows := []domain.JoinedRow{
		{State: "WA", Cases: 1000000, Winner: domain.Biden},
		{State: "CA", Cases: 9000000, Winner: domain.Biden},
		{State: "OR", Cases: 760000, Winner: domain.Biden},
		{State: "TX", Cases: 6800000, Winner: domain.Trump},
		{State: "XX", Cases: 12000000, Winner: domain.Biden},
	}

	bins := CaseHistogram(rows, domain.Biden)
	if len(bins) != 10 {
		t.Fatalf("Expected 10 bins, but got %d", len(bins))
	}
	if bins[0].Count != 1 || bins[1].Count != 1 || bins[9].Count != 1 {
		t.Errorf("Unexpected Biden bins %+v", bins)
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("Expected states above the last bin to be left out, got total %d", total)
	}

	trump := CaseHistogram(rows, domain.Trump)
	if trump[6].Count != 1 {
		t.Errorf("Expected TX in the 6M-7M bin, got %+v", trump[6])
	}
}
