package parser

import "regexp"

// Seniority keyword groups checked in order. The first group that matches
// decides the preferred tier; anything unmatched lands at the middle
// default of 2.
var seniorityTiers = []struct {
	pattern *regexp.Regexp
	tier    int32
}{
	{regexp.MustCompile(`(?i)\b(lead|staff|principal|director|vp|iv)\b`), 4},
	{regexp.MustCompile(`(?i)\b(senior|sr|iii)\b`), 3},
	{regexp.MustCompile(`(?i)\b(junior|jr|entry|intern|internship)\b`), 1},
	{regexp.MustCompile(`(?i)\bii\b`), 2},
}

// PreferredTierFromTitle derives the wage tier a title's seniority wording
// points at. Used as the selection target when a posting carries no usable
// salary figure.
func PreferredTierFromTitle(title string) int32 {
	for _, group := range seniorityTiers {
		if group.pattern.MatchString(title) {
			return group.tier
		}
	}
	return 2
}
