package dataset

import (
	"math"
	"strconv"
	"strings"
)

// parseNumeric accepts plain numbers, percentages, booleans and the common
// locale forms ("1.000,5", "1,000.5"). Blank cells are not numbers.
func parseNumeric(s string, dec rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	switch strings.ToLower(raw) {
	case "true", "yes":
		return 1, true
	case "false", "no":
		return 0, true
	}
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec = ','
		case cpos >= 0 && dpos < 0 && strings.Count(raw, ",") == 1:
			dec = ','
		default:
			dec = '.'
		}
	}
	// drop thousands separators, then normalize the decimal mark
	for _, sep := range []string{",", "."} {
		if sep != string(dec) {
			raw = strings.ReplaceAll(raw, sep, "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
