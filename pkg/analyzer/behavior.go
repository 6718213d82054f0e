package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var urgencyPhrases = []string{
	"urgent", "immediate", "act now", "limited time",
	"expires", "hurry", "quick", "immediately",
}

// sensitivePatterns detect requests for credentials, financial details, or
// identity confirmation. Only the first matching pattern scores.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(password|ssn|social security|credit card|cvv|pin)\b`),
	regexp.MustCompile(`\b(bank account|routing number|account number)\b`),
	regexp.MustCompile(`\b(verify.*account|confirm.*identity|update.*information)\b`),
}

var currencyPattern = regexp.MustCompile(`[$£€¥]\s*\d+`)

// AnalyzeBehavior detects manipulation tactics independent of the keyword
// rules: urgency pressure, shouting, sensitive-data requests, and money
// amounts paired with urgency.
func AnalyzeBehavior(text string) (int, []string) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	lowered := strings.ToLower(text)

	score := 0
	var reasons []string

	urgencyCount := 0
	for _, phrase := range urgencyPhrases {
		if strings.Contains(lowered, phrase) {
			urgencyCount++
		}
	}
	switch {
	case urgencyCount >= 3:
		score += 12
		reasons = append(reasons, "Multiple urgency tactics detected")
	case urgencyCount == 2:
		score += 6
		reasons = append(reasons, "Urgency language detected")
	}

	if n := strings.Count(text, "!"); n >= 5 {
		score += 8
		reasons = append(reasons, fmt.Sprintf("Excessive exclamation marks (%d)", n))
	}

	if n := countShoutWords(text); n >= 5 {
		score += 7
		reasons = append(reasons, "Excessive capitalization")
	}

	for _, p := range sensitivePatterns {
		if p.MatchString(lowered) {
			score += 15
			reasons = append(reasons, "Requests sensitive personal or financial data")
			break
		}
	}

	if urgencyCount > 0 && currencyPattern.MatchString(text) {
		score += 8
		reasons = append(reasons, "Money amount paired with urgency pressure")
	}

	return score, reasons
}

// countShoutWords counts fully uppercase alphabetic words longer than
// 3 characters.
func countShoutWords(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		if len(runes) <= 3 {
			continue
		}
		shouting := true
		for _, r := range runes {
			if !unicode.IsLetter(r) || !unicode.IsUpper(r) {
				shouting = false
				break
			}
		}
		if shouting {
			count++
		}
	}
	return count
}
