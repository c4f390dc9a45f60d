package labresult

import (
	"strconv"
	"strings"
)

// Classify maps a measured value and a reference range to a status. It is a
// pure function with no failure mode: anything that does not resolve to a
// numeric value inside a parseable closed interval classifies as Unknown,
// which callers surface as a data-quality signal rather than an error.
// Boundaries are inclusive: value == low or value == high is Within.
func Classify(value any, referenceRange string) LabStatus {
	v, ok := numericValue(value)
	if !ok {
		return StatusUnknown
	}
	low, high, ok := parseRange(referenceRange)
	if !ok {
		return StatusUnknown
	}
	switch {
	case v < low:
		return StatusBelow
	case v > high:
		return StatusAbove
	default:
		return StatusWithin
	}
}

// numericValue coerces the supported value representations to float64.
// Values arrive as native numbers from JSON decoding or as strings from
// stored documents and user edits.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseRange accepts the range notations that appear in report documents:
// "[low,high]", "low-high", and "low – high". It returns ok=false for
// anything else, including inverted intervals.
func parseRange(rng string) (low, high float64, ok bool) {
	s := strings.TrimSpace(rng)
	if s == "" {
		return 0, 0, false
	}

	var parts []string
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		parts = strings.Split(s[1:len(s)-1], ",")
	} else if strings.Contains(s, "–") {
		parts = strings.Split(s, "–")
	} else if i := hyphenIndex(s); i > 0 {
		parts = []string{s[:i], s[i+1:]}
	}
	if len(parts) != 2 {
		return 0, 0, false
	}

	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	high, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if low > high {
		return 0, 0, false
	}
	return low, high, true
}

// hyphenIndex finds the separating hyphen in "low-high", skipping a leading
// minus sign so negative bounds like "-2-4" still parse.
func hyphenIndex(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '-' && s[i-1] != 'e' && s[i-1] != 'E' {
			return i
		}
	}
	return -1
}

// FormatValue renders a candidate value the way it is stored on a LabValue.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
