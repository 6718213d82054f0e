// Package analyzer implements the multi-layer phishing scoring engine:
// keyword matching, URL forensics, behavioral indicators, text anomalies,
// and the aggregator that merges them with the AI oracle's opinion.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/PhishGuardAI/phishguard/pkg/rules"
)

// legitIndicators are phrases typical of legitimate bulk mail. Two or more
// of them flip the matcher into suppression mode.
var legitIndicators = []string{
	"unsubscribe",
	"privacy policy",
	"customer support",
	"help center",
	"contact us at",
}

// highRiskTerms always count, even in suppression mode. Financially
// dangerous content trades precision for recall.
var highRiskTerms = []string{
	"password",
	"payment",
	"wire transfer",
	"gift card",
	"ssn",
}

// ScanKeywords matches the rule set against the text. Each matched substring
// counts at most once per call, compared case-insensitively; if two rules
// match the same substring, the first rule in table order wins. Reasons
// preserve rule table order and report regex matches in their original casing.
func ScanKeywords(set *rules.Set, text string) (int, []string) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	lowered := strings.ToLower(text)

	legitCount := 0
	for _, ind := range legitIndicators {
		if strings.Contains(lowered, ind) {
			legitCount++
		}
	}
	suppress := legitCount >= 2

	score := 0
	var reasons []string
	seen := make(map[string]bool)
	for _, r := range set.Rules() {
		match, ok := r.Match(text, lowered)
		if !ok {
			continue
		}
		key := strings.ToLower(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		if suppress && !containsHighRisk(key) {
			continue
		}
		score += r.Weight
		reasons = append(reasons, fmt.Sprintf("⚠ Pattern detected: '%s' — %s", match, r.Reason))
	}
	return score, reasons
}

func containsHighRisk(match string) bool {
	for _, term := range highRiskTerms {
		if strings.Contains(match, term) {
			return true
		}
	}
	return false
}
