package parser

import (
	"regexp"
	"strings"
)

// categoryRule pairs a title pattern with the survey occupation bucket it
// maps to. Rules are evaluated top to bottom and the first match wins, so
// specific signals must stay above the broad catch-alls. The bare "engin"
// rule is intentionally last.
type categoryRule struct {
	pattern  *regexp.Regexp
	category string
}

var categoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)data[\s-]*scien`), "Data Scientists"},
	{regexp.MustCompile(`(?i)machine[\s-]*learning|\bml\b|\bai\b|artificial[\s-]*intelligence`), "Data Scientists"},
	{regexp.MustCompile(`(?i)cyber|security|infosec`), "Security"},
	{regexp.MustCompile(`(?i)network`), "Network"},
	{regexp.MustCompile(`(?i)database|\bdba\b`), "Database"},
	{regexp.MustCompile(`(?i)(systems?|business)[\s-]*analyst`), "Systems Analysts"},
	{regexp.MustCompile(`(?i)web[\s-]*dev`), "Web Developers"},
	{regexp.MustCompile(`(?i)(front|back)[\s-]*end|full[\s-]*stack|software|\bswe\b|\bsde\b|programmer|developer`), "Software Developers"},
	{regexp.MustCompile(`(?i)devops|site[\s-]*reliability|\bsre\b|systems?[\s-]*admin|sysadmin|cloud`), "Network"},
	{regexp.MustCompile(`(?i)mechanical[\s-]*engin`), "Mechanical Engineers"},
	{regexp.MustCompile(`(?i)electrical[\s-]*engin`), "Electrical Engineers"},
	{regexp.MustCompile(`(?i)civil[\s-]*engin`), "Civil Engineers"},
	{regexp.MustCompile(`(?i)nurse|\brn\b`), "Registered Nurses"},
	{regexp.MustCompile(`(?i)physician|\bdoctor\b`), "Physicians"},
	{regexp.MustCompile(`(?i)accountant|accounting`), "Accountants"},
	{regexp.MustCompile(`(?i)financial[\s-]*analyst|finance`), "Financial Analysts"},
	{regexp.MustCompile(`(?i)engin`), "Software Developers"},
}

// ClassifyOccupation maps a free-text job title to a survey occupation
// category by ordered first-match dispatch. Returns "" when no rule
// matches or the title is blank.
func ClassifyOccupation(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	for _, rule := range categoryRules {
		if rule.pattern.MatchString(title) {
			return rule.category
		}
	}
	return ""
}
