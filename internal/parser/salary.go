package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dashPattern      = regexp.MustCompile(`[\x{2013}\x{2014}\x{2015}]`)
	salaryJunk       = regexp.MustCompile(`[^0-9.,-]`)
	thousandsComma   = strings.NewReplacer(",", "")
	salaryFloorLimit = 1000.0
)

// ParseYearlySalary extracts a single representative yearly figure from a
// free-text salary string. Ranges are reduced to the mean of their two
// bounds; any figures past the first two are ignored so malformed
// multi-range strings cannot skew the result. Figures at or below 1000
// are discarded outright, which filters hourly rates that leak into
// yearly fields. Returns (0, false) when nothing usable remains.
func ParseYearlySalary(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	cleaned := dashPattern.ReplaceAllString(raw, "-")
	cleaned = salaryJunk.ReplaceAllString(cleaned, "")

	var figures []float64
	for _, token := range strings.Split(cleaned, "-") {
		token = thousandsComma.Replace(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		if value <= salaryFloorLimit {
			continue
		}
		figures = append(figures, value)
		if len(figures) == 2 {
			break
		}
	}

	if len(figures) == 0 {
		return 0, false
	}

	var sum float64
	for _, f := range figures {
		sum += f
	}
	return sum / float64(len(figures)), true
}
