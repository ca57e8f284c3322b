package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

// markerPatterns match values such as "Glucose: 95 mg/dL" in lower-cased text.
var markerPatterns = map[string]*regexp.Regexp{
	"glucose":       regexp.MustCompile(`glucose[:\s]+(\d+\.?\d*)\s*mg/dl`),
	"cholesterol":   regexp.MustCompile(`cholesterol[:\s]+(\d+\.?\d*)\s*mg/dl`),
	"ldl":           regexp.MustCompile(`ldl[:\s]+(\d+\.?\d*)\s*mg/dl`),
	"hdl":           regexp.MustCompile(`hdl[:\s]+(\d+\.?\d*)\s*mg/dl`),
	"triglycerides": regexp.MustCompile(`triglycerides[:\s]+(\d+\.?\d*)\s*mg/dl`),
	"hemoglobin":    regexp.MustCompile(`hemoglobin[:\s]+(\d+\.?\d*)\s*g/dl`),
}

// ExtractMarkers pulls the first value of each known blood marker out of an
// analysis text.
func ExtractMarkers(text string) map[string]float64 {
	lower := strings.ToLower(text)
	markers := make(map[string]float64)
	for name, re := range markerPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			markers[name] = v
		}
	}
	return markers
}

const summaryLength = 200

// Summarize keeps the first 200 characters of an analysis.
func Summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryLength {
		return text
	}
	return string(runes[:summaryLength]) + "..."
}
