// Package states holds the static US state lookup tables used to bring the
// case series and the election results onto a common two-letter key.
package states

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var fipsToAbbrev = map[string]string{
	"53": "WA", "10": "DE", "11": "DC", "55": "WI", "54": "WV", "15": "HI",
	"12": "FL", "56": "WY", "72": "PR", "34": "NJ", "35": "NM", "48": "TX",
	"22": "LA", "37": "NC", "38": "ND", "31": "NE", "47": "TN", "36": "NY",
	"42": "PA", "02": "AK", "32": "NV", "33": "NH", "51": "VA", "08": "CO",
	"06": "CA", "01": "AL", "05": "AR", "50": "VT", "17": "IL", "13": "GA",
	"18": "IN", "19": "IA", "25": "MA", "04": "AZ", "16": "ID", "09": "CT",
	"23": "ME", "24": "MD", "40": "OK", "39": "OH", "49": "UT", "29": "MO",
	"27": "MN", "26": "MI", "44": "RI", "20": "KS", "30": "MT", "28": "MS",
	"45": "SC", "21": "KY", "41": "OR", "46": "SD",
}

var nameToAbbrev = map[string]string{
	"Alabama":                              "AL",
	"Alaska":                               "AK",
	"Arizona":                              "AZ",
	"Arkansas":                             "AR",
	"California":                           "CA",
	"Colorado":                             "CO",
	"Connecticut":                          "CT",
	"Delaware":                             "DE",
	"Florida":                              "FL",
	"Georgia":                              "GA",
	"Hawaii":                               "HI",
	"Idaho":                                "ID",
	"Illinois":                             "IL",
	"Indiana":                              "IN",
	"Iowa":                                 "IA",
	"Kansas":                               "KS",
	"Kentucky":                             "KY",
	"Louisiana":                            "LA",
	"Maine":                                "ME",
	"Maryland":                             "MD",
	"Massachusetts":                        "MA",
	"Michigan":                             "MI",
	"Minnesota":                            "MN",
	"Mississippi":                          "MS",
	"Missouri":                             "MO",
	"Montana":                              "MT",
	"Nebraska":                             "NE",
	"Nevada":                               "NV",
	"New Hampshire":                        "NH",
	"New Jersey":                           "NJ",
	"New Mexico":                           "NM",
	"New York":                             "NY",
	"North Carolina":                       "NC",
	"North Dakota":                         "ND",
	"Ohio":                                 "OH",
	"Oklahoma":                             "OK",
	"Oregon":                               "OR",
	"Pennsylvania":                         "PA",
	"Rhode Island":                         "RI",
	"South Carolina":                       "SC",
	"South Dakota":                         "SD",
	"Tennessee":                            "TN",
	"Texas":                                "TX",
	"Utah":                                 "UT",
	"Vermont":                              "VT",
	"Virginia":                             "VA",
	"Washington":                           "WA",
	"West Virginia":                        "WV",
	"Wisconsin":                            "WI",
	"Wyoming":                              "WY",
	"District of Columbia":                 "DC",
	"American Samoa":                       "AS",
	"Guam":                                 "GU",
	"Northern Mariana Islands":             "MP",
	"Puerto Rico":                          "PR",
	"United States Minor Outlying Islands": "UM",
	"U.S. Virgin Islands":                  "VI",
}

var abbrevToName = func() map[string]string {
	m := make(map[string]string, len(nameToAbbrev))
	for name, abbrev := range nameToAbbrev {
		m[abbrev] = name
	}
	return m
}()

// NormalizeFIPS restores the two-digit zero-padded form of a state FIPS code.
// Inputs such as "6", "06" and "6.0" all yield "06".
func NormalizeFIPS(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty fips code")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return "", fmt.Errorf("invalid fips code %q", raw)
		}
		n = int(f)
	}
	if n <= 0 || n > 99 {
		return "", fmt.Errorf("fips code %q out of range", raw)
	}
	return fmt.Sprintf("%02d", n), nil
}

// AbbrevForFIPS maps a (possibly unpadded) FIPS code to its abbreviation.
func AbbrevForFIPS(raw string) (string, bool) {
	code, err := NormalizeFIPS(raw)
	if err != nil {
		return "", false
	}
	abbrev, ok := fipsToAbbrev[code]
	return abbrev, ok
}

// AbbrevForName maps a full state or territory name to its abbreviation.
func AbbrevForName(name string) (string, bool) {
	abbrev, ok := nameToAbbrev[strings.TrimSpace(name)]
	return abbrev, ok
}

// NameForAbbrev is the reverse of AbbrevForName.
func NameForAbbrev(abbrev string) (string, bool) {
	name, ok := abbrevToName[abbrev]
	return name, ok
}

// IsState reports whether abbrev is one of the 50 states or DC.
func IsState(abbrev string) bool {
	if abbrev == "PR" {
		return false
	}
	for _, a := range fipsToAbbrev {
		if a == abbrev {
			return true
		}
	}
	return false
}

// Abbrevs returns every abbreviation that has a FIPS code, sorted.
func Abbrevs() []string {
	out := make([]string, 0, len(fipsToAbbrev))
	for _, a := range fipsToAbbrev {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
