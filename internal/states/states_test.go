package states

import "testing"

func TestNormalizeFIPS(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "unpadded", input: "6", expected: "06"},
		{name: "padded", input: "06", expected: "06"},
		{name: "float text", input: "6.0", expected: "06"},
		{name: "two digits", input: "53", expected: "53"},
		{name: "surrounding space", input: " 9 ", expected: "09"},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "CA", wantErr: true},
		{name: "fractional", input: "6.5", wantErr: true},
		{name: "out of range", input: "120", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeFIPS(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q, but got %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeFIPS() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestAbbrevForFIPS(t *testing.T) {
	if got, ok := AbbrevForFIPS("6"); !ok || got != "CA" {
		t.Errorf("Expected fips 6 to map to CA, but got %q (ok=%v)", got, ok)
	}
	if got, ok := AbbrevForFIPS("53"); !ok || got != "WA" {
		t.Errorf("Expected fips 53 to map to WA, but got %q (ok=%v)", got, ok)
	}
	if _, ok := AbbrevForFIPS("66"); ok {
		t.Error("Expected Guam's fips code to be absent from the case table")
	}
}

func TestNameLookups(t *testing.T) {
	if got, ok := AbbrevForName("District of Columbia"); !ok || got != "DC" {
		t.Errorf("Expected DC, but got %q (ok=%v)", got, ok)
	}
	if _, ok := AbbrevForName("Atlantis"); ok {
		t.Error("Expected unknown state name to fail lookup")
	}
	if got, ok := NameForAbbrev("WA"); !ok || got != "Washington" {
		t.Errorf("Expected Washington, but got %q (ok=%v)", got, ok)
	}
}

func TestTablesAgree(t *testing.T) {
	for _, abbrev := range Abbrevs() {
		if _, ok := NameForAbbrev(abbrev); !ok {
			t.Errorf("Abbreviation %s has a fips code but no name", abbrev)
		}
	}
	if len(Abbrevs()) != 52 {
		t.Errorf("Expected 52 fips entries, but got %d", len(Abbrevs()))
	}
	if IsState("PR") {
		t.Error("Expected PR not to count as a state")
	}
	if !IsState("DC") {
		t.Error("Expected DC to count")
	}
}
