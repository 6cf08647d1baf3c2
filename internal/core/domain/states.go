package domain

import (
	"sort"
	"strings"
)

// StateNameToCode maps lower-cased state names found in free text to
// canonical codes. Penang keeps both its English and Malay names.
var StateNameToCode = map[string]string{
	"selangor":        "SEL",
	"kedah":           "KED",
	"penang":          "PNG",
	"pulau pinang":    "PNG",
	"kelantan":        "KTN",
	"johor":           "JHR",
	"perak":           "PRK",
	"pahang":          "PHG",
	"terengganu":      "TRG",
	"negeri sembilan": "NSN",
	"melaka":          "MLK",
	"perlis":          "PLS",
	"sabah":           "SBH",
	"sarawak":         "SWK",
	"kuala lumpur":    "KUL",
	"putrajaya":       "PTJ",
	"labuan":          "LBN",
}

// stateCodeAliases maps publicinfobanjir upstream codes to canonical codes.
var stateCodeAliases = map[string]string{
	"KDH": "KED",
	"KEL": "KTN",
	"SRK": "SWK",
	"SAB": "SBH",
	"WLH": "KUL", // Wilayah Persekutuan Kuala Lumpur
	"WLP": "LBN", // Wilayah Persekutuan Labuan
}

var stateCodeSynonyms = map[string][]string{
	"KED": {"KED", "KDH"},
	"KTN": {"KTN", "KEL"},
	"SWK": {"SWK", "SRK"},
	"SBH": {"SBH", "SAB"},
	"KUL": {"KUL", "WLH"},
	"LBN": {"LBN", "WLP"},
}

var codeToStateName = map[string]string{
	"SEL": "Selangor",
	"KED": "Kedah",
	"PNG": "Penang",
	"KTN": "Kelantan",
	"JHR": "Johor",
	"PRK": "Perak",
	"PHG": "Pahang",
	"TRG": "Terengganu",
	"NSN": "Negeri Sembilan",
	"MLK": "Melaka",
	"PLS": "Perlis",
	"SBH": "Sabah",
	"SWK": "Sarawak",
	"KUL": "Kuala Lumpur",
	"PTJ": "Putrajaya",
	"LBN": "Labuan",
}

// CanonicalStateCodes lists every canonical code in sorted order.
var CanonicalStateCodes = func() []string {
	codes := make([]string, 0, len(codeToStateName))
	for code := range codeToStateName {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}()

// NormalizeState maps any known state name, alias or canonical code,
// case insensitively, to its canonical 3-letter form. Unknown codes
// pass through upper-cased; empty input stays empty. Never fails.
func NormalizeState(raw string) string {
	if raw == "" {
		return ""
	}
	trimmed := strings.TrimSpace(raw)
	if code, ok := StateNameToCode[strings.ToLower(trimmed)]; ok {
		return code
	}
	code := strings.ToUpper(trimmed)
	if canon, ok := stateCodeAliases[code]; ok {
		return canon
	}
	return code
}

// StateSynonyms returns the canonical code plus all known upstream
// aliases, used to build inclusive metadata filters.
func StateSynonyms(code string) []string {
	if code == "" {
		return nil
	}
	canon := NormalizeState(code)
	if syn, ok := stateCodeSynonyms[canon]; ok {
		return syn
	}
	return []string{canon}
}

// FormatState renders "Name (CODE)" for known codes, the bare
// upper-cased code for unknown ones, and "Unknown" for empty input.
func FormatState(code string) string {
	if code == "" {
		return "Unknown"
	}
	canon := NormalizeState(code)
	if name, ok := codeToStateName[canon]; ok {
		return name + " (" + canon + ")"
	}
	return canon
}
