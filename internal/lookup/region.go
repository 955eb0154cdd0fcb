package lookup

import (
	"strings"

	"github.com/i474232898/incidence-forecast/internal/common"
)

// WorldISO3 is the aggregate code used by datasets for global totals.
const WorldISO3 = "WLD"

// regionAliases maps common shorthand to ISO3 codes.
var regionAliases = map[string]string{
	"world":         WorldISO3,
	"global":        WorldISO3,
	"usa":           "USA",
	"us":            "USA",
	"u.s.":          "USA",
	"united states": "USA",
	"uk":            "GBR",
	"britain":       "GBR",
}

type country struct {
	iso3 string
	iso2 string
}

// countries maps lowercase country names to their ISO codes.
var countries = map[string]country{
	"sri lanka":                {"LKA", "LK"},
	"india":                    {"IND", "IN"},
	"bangladesh":               {"BGD", "BD"},
	"pakistan":                 {"PAK", "PK"},
	"nepal":                    {"NPL", "NP"},
	"bhutan":                   {"BTN", "BT"},
	"maldives":                 {"MDV", "MV"},
	"afghanistan":              {"AFG", "AF"},
	"united states":            {"USA", "US"},
	"united states of america": {"USA", "US"},
	"united kingdom":           {"GBR", "GB"},
	"australia":                {"AUS", "AU"},
	"new zealand":              {"NZL", "NZ"},
	"canada":                   {"CAN", "CA"},
	"mexico":                   {"MEX", "MX"},
	"brazil":                   {"BRA", "BR"},
	"argentina":                {"ARG", "AR"},
	"japan":                    {"JPN", "JP"},
	"china":                    {"CHN", "CN"},
	"south korea":              {"KOR", "KR"},
	"singapore":                {"SGP", "SG"},
	"malaysia":                 {"MYS", "MY"},
	"thailand":                 {"THA", "TH"},
	"vietnam":                  {"VNM", "VN"},
	"philippines":              {"PHL", "PH"},
	"indonesia":                {"IDN", "ID"},
	"france":                   {"FRA", "FR"},
	"germany":                  {"DEU", "DE"},
	"spain":                    {"ESP", "ES"},
	"italy":                    {"ITA", "IT"},
	"netherlands":              {"NLD", "NL"},
	"south africa":             {"ZAF", "ZA"},
	"nigeria":                  {"NGA", "NG"},
	"kenya":                    {"KEN", "KE"},
	"egypt":                    {"EGY", "EG"},
}

// ISO3 resolves a country name, alias or ISO3 code to an uppercase ISO3 code.
// It returns "" when the region is unknown.
func ISO3(region string) string {
	s := strings.ToLower(strings.TrimSpace(region))
	if s == "" {
		return ""
	}
	if c, ok := countries[s]; ok {
		return c.iso3
	}
	if code, ok := regionAliases[s]; ok {
		return code
	}
	up := strings.ToUpper(s)
	for _, c := range countries {
		if c.iso3 == up || c.iso2 == up {
			return c.iso3
		}
	}
	if up == WorldISO3 {
		return WorldISO3
	}
	return ""
}

// ISO2 resolves a region to the two-letter code live APIs expect. Unknown
// regions come back unchanged so the remote side can try its own matching.
func ISO2(region string) string {
	iso3 := ISO3(region)
	if iso3 == "" {
		return strings.TrimSpace(region)
	}
	for _, c := range countries {
		if c.iso3 == iso3 {
			return c.iso2
		}
	}
	return strings.TrimSpace(region)
}

// IsWorld reports whether the region names the global aggregate.
func IsWorld(region string) bool {
	return ISO3(region) == WorldISO3
}

// RegionCandidates returns the lookup keys to try against a dataset, most
// specific first: the input as typed, its alias code, its resolved ISO3 code,
// and the uppercased input when it already looks like an ISO3 code.
func RegionCandidates(region string) []string {
	s := strings.TrimSpace(region)
	if s == "" {
		return nil
	}

	cands := []string{s}
	if alias, ok := regionAliases[strings.ToLower(s)]; ok {
		cands = append(cands, alias)
	}
	if iso := ISO3(s); iso != "" {
		cands = append(cands, iso)
	}
	if isAlpha3(s) {
		cands = append(cands, strings.ToUpper(s))
	}
	return common.Unique(cands)
}

func isAlpha3(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
