package models

import (
	"encoding/json"
	"strings"
)

// MeanTierSentinel marks survey rows that carry a mean wage rather than a
// real level. They are never valid tier candidates.
const MeanTierSentinel = "MEAN"

// WageReferenceEntry is one row of the government prevailing-wage survey.
// Entries are immutable once loaded and replaced wholesale on re-import.
type WageReferenceEntry struct {
	Occupation string  `json:"occupation"`
	State      string  `json:"state"`
	Area       string  `json:"area"`
	TierLabel  string  `json:"tier_label"`
	HourlyRate float64 `json:"hourly_rate"`
	YearlyRate float64 `json:"yearly_rate"`
}

// TierNum maps the survey's tier label to an ordinal 1-4. Labels are
// roman-numeral-like ("Level IV", "III") or a bare digit. Returns 0 for
// the MEAN sentinel and anything else that does not map.
func (e WageReferenceEntry) TierNum() int32 {
	return TierLabelOrdinal(e.TierLabel)
}

// IsMean reports whether the entry carries the MEAN sentinel label.
func (e WageReferenceEntry) IsMean() bool {
	return strings.Contains(strings.ToUpper(e.TierLabel), MeanTierSentinel)
}

func (e WageReferenceEntry) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *WageReferenceEntry) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// TierLabelOrdinal parses a survey tier label into 1-4, or 0 when the
// label is the MEAN sentinel or otherwise unmappable. Roman numerals are
// checked longest-first so "IV" is not read as "I".
func TierLabelOrdinal(label string) int32 {
	up := strings.ToUpper(strings.TrimSpace(label))
	if up == "" || strings.Contains(up, MeanTierSentinel) {
		return 0
	}
	switch {
	case strings.HasSuffix(up, "IV") || up == "4":
		return 4
	case strings.HasSuffix(up, "III") || up == "3":
		return 3
	case strings.HasSuffix(up, "II") || up == "2":
		return 2
	case strings.HasSuffix(up, "I") || up == "1":
		return 1
	}
	return 0
}

// TierLabelFor renders the ordinal back into the label stored on postings.
func TierLabelFor(tier int32) string {
	switch tier {
	case 1:
		return "Lv 1"
	case 2:
		return "Lv 2"
	case 3:
		return "Lv 3"
	case 4:
		return "Lv 4"
	}
	return DefaultTierLabel
}
