package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s{5,}`)

// confusableLetters are Cyrillic letters indistinguishable from Latin ones
// in most fonts. Presence anywhere in the text is flagged once, as a signal,
// not per occurrence.
var confusableLetters = []rune{'а', 'е', 'о', 'р', 'с', 'у', 'х'}

var zeroWidthChars = []rune{'\u200b', '\u200c', '\u200d', '\ufeff'}

// specialRatioLimit is the tolerated fraction of punctuation/symbol
// characters before the text looks obfuscated.
const specialRatioLimit = 0.15

// AnalyzeAnomalies detects structural obfuscation: spacing tricks, homograph
// characters, invisible characters, symbol flooding, and stylized Unicode
// letters that fold back to plain ASCII.
func AnalyzeAnomalies(text string) (int, []string) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	score := 0
	var reasons []string

	if whitespaceRun.MatchString(text) {
		score += 5
		reasons = append(reasons, "Unusual whitespace runs, possible spacing obfuscation")
	}

	if containsAny(text, confusableLetters) {
		score += 10
		reasons = append(reasons, "Cyrillic look-alike characters mixed into text")
	}

	if containsAny(text, zeroWidthChars) {
		score += 12
		reasons = append(reasons, "Invisible zero-width characters present")
	}

	if specialRatio(text) > specialRatioLimit {
		score += 6
		reasons = append(reasons, "High density of special characters")
	}

	if hasStylizedLetters(text) {
		score += 10
		reasons = append(reasons, "Stylized Unicode look-alike letters present")
	}

	return score, reasons
}

func containsAny(text string, set []rune) bool {
	for _, r := range text {
		for _, c := range set {
			if r == c {
				return true
			}
		}
	}
	return false
}

func specialRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	special := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	return float64(special) / float64(len(runes))
}

// hasStylizedLetters reports whether any letter or digit changes under NFKC
// folding. Fullwidth and mathematical alphanumerics (Ｐａｙｐａｌ, 𝐏𝐚𝐲𝐩𝐚𝐥)
// normalize to plain ASCII, which real correspondence never needs.
func hasStylizedLetters(text string) bool {
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		if folded := norm.NFKC.String(string(r)); folded != string(r) {
			return true
		}
	}
	return false
}
