package codemap

import (
	"fmt"
	"regexp"
	"strings"
)

var ethnicityCodes = map[string]string{
	"hispanic":    "E1",
	"nonhispanic": "E2",
}

var raceCodes = map[string]string{
	"native":   "R1",
	"asian":    "R2",
	"black":    "R3",
	"hawaiian": "R4",
	"white":    "R5",
	"other":    "R9",
}

var sexCodes = map[string]string{
	"M": "M",
	"F": "F",
}

// Dual eligible payers report as medicare.
var governmentPayers = map[string]string{
	"medicare":      "01",
	"dual eligible": "01",
	"medi-cal":      "02",
	"medical":       "02",
	"medicaid":      "02",
}

var dispositionCodes = []string{
	"01", "02", "03", "04", "05", "06", "07", "20", "21", "43", "50", "51", "61", "62", "63", "64", "65", "66",
	"69", "70", "81", "82", "83", "84", "85", "86", "87", "88", "89", "90", "91", "92", "93", "94", "95", "00",
}

// ICD-10-CM codes are written without the dot, as HCAI expects.
var snomedICD = map[string]string{
	"72892002":        "Z3490",
	"15777000":        "R7303",
	"44054006":        "E119",
	"38341003":        "I10",
	"59621000":        "I10",
	"195662009":       "J029",
	"43878008":        "J020",
	"10509002":        "J209",
	"444814009":       "J0190",
	"36971009":        "J329",
	"40055000":        "J329",
	"162864005":       "E669",
	"840539006":       "U071",
	"49727002":        "R05",
	"386661006":       "R509",
	"233604007":       "J189",
	"68496003":        "K635",
	"19169002":        "O039",
	"65363002":        "H6690",
	"271737000":       "D649",
	"24079001":        "L209",
	"185086009":       "J449",
	"55822004":        "E785",
	"22298006":        "I219",
	"399211009":       "I252",
	"230690007":       "I639",
	"157141000119108": "E1129",
	"398254007":       "O149",
}

// LARC insertion and removal procedures to ICD-10-PCS. Other procedure codes
// pass through unchanged.
var larcProcedures = map[string]string{
	"65200003":  "0UH97HZ",
	"169553002": "0JHD3HZ",
	"68254000":  "0UPD7HZ",
	"301807007": "0JPT3HZ",
}

type larcRule struct {
	procedure string
	drg       DRG
}

// Ordered from least to most specific.
var larcDRGRules = []larcRule{
	{procedure: "66348005", drg: DRG{Code: "807", MDC: "14"}}, // parturition
	{procedure: "85548006", drg: DRG{Code: "768", MDC: "14"}}, // episiotomy
	{procedure: "11466000", drg: DRG{Code: "788", MDC: "14"}}, // cesarean section
}

var coverageTypes = map[string]string{
	"hmo":             "1",
	"ppo":             "2",
	"epo":             "2",
	"pos":             "2",
	"managed care":    "2",
	"medicare":        "3",
	"medicaid":        "3",
	"medi-cal":        "3",
	"dual eligible":   "3",
	"ffs":             "3",
	"fee for service": "3",
	"indemnity":       "3",
	"traditional":     "3",
	"no_insurance":    "0",
	"no insurance":    "0",
	"self pay":        "0",
}

var languageCodes = map[string]string{
	"english":    "ENG",
	"spanish":    "SPA",
	"chinese":    "CHI",
	"mandarin":   "CHI",
	"cantonese":  "CHI",
	"vietnamese": "VIE",
	"tagalog":    "TAG",
	"korean":     "KOR",
	"armenian":   "ARM",
	"persian":    "PER",
	"farsi":      "PER",
	"russian":    "RUS",
	"japanese":   "JPN",
	"arabic":     "ARA",
	"hindi":      "HIN",
	"portuguese": "POR",
	"french":     "FRE",
	"german":     "GER",
	"italian":    "ITA",
	"polish":     "POL",
	"punjabi":    "PAN",
	"thai":       "THA",
	"khmer":      "KHM",
	"hmong":      "HMN",
	"sign":       "SGN",
}

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// newLanguageWriteIn maps an observation value such as "Spanish (language)"
// to its write-in text "Spanish".
func newLanguageWriteIn() *Table {
	t := NewTable("language_write_in", map[string]string{
		"american sign language": "Sign",
	}, "", true)
	t.fallback = func(code string) string {
		return strings.TrimSpace(parenthetical.ReplaceAllString(code, ""))
	}
	return t
}

var californiaCounties = []string{
	"Alameda", "Alpine", "Amador", "Butte", "Calaveras", "Colusa", "Contra Costa", "Del Norte",
	"El Dorado", "Fresno", "Glenn", "Humboldt", "Imperial", "Inyo", "Kern", "Kings", "Lake",
	"Lassen", "Los Angeles", "Madera", "Marin", "Mariposa", "Mendocino", "Merced", "Modoc",
	"Mono", "Monterey", "Napa", "Nevada", "Orange", "Placer", "Plumas", "Riverside",
	"Sacramento", "San Benito", "San Bernardino", "San Diego", "San Francisco", "San Joaquin",
	"San Luis Obispo", "San Mateo", "Santa Barbara", "Santa Clara", "Santa Cruz", "Shasta",
	"Sierra", "Siskiyou", "Solano", "Sonoma", "Stanislaus", "Sutter", "Tehama", "Trinity",
	"Tulare", "Tuolumne", "Ventura", "Yolo", "Yuba",
}

const unknownCounty = "99"

var countySuffix = regexp.MustCompile(`(?i)\s+county$`)

// newCountyTable numbers California counties alphabetically from 01.
// Names may carry a trailing "County".
func newCountyTable() *Table {
	entries := make(map[string]string, len(californiaCounties))
	for i, name := range californiaCounties {
		entries[name] = fmt.Sprintf("%02d", i+1)
	}
	t := NewTable("county", entries, unknownCounty, true)
	t.fallback = func(code string) string {
		trimmed := countySuffix.ReplaceAllString(strings.TrimSpace(code), "")
		if v, ok := t.entries[t.key(trimmed)]; ok {
			return v
		}
		return unknownCounty
	}
	return t
}

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "district of columbia": "DC",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT", "virginia": "VA",
	"washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// newStateTable maps state names to USPS codes; values already in code form
// pass through.
func newStateTable() *Table {
	t := NewTable("state", stateCodes, "", true)
	t.fallback = func(code string) string {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return t
}
