// Package rules provides the keyword rule repository for phishing detection.
// All regex rules are compiled once at construction and shared across all
// analysis calls.
//
// Design principles:
// - COMPILE ONCE: regexes compiled at load, not per-message
// - DATA, NOT CODE: the rule table is plain data; site-local rules can be
//   appended from a YAML overlay without touching the scanner
// - TIERED: rules are organized by severity tier for readability, the scanner
//   only cares about weight and reason
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Tier groups rules by how strongly a match implicates phishing.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierLocal  Tier = "local" // operator rules from a YAML overlay
)

// Rule is one weighted phishing indicator. Literal rules match as a
// case-insensitive substring and report the lowercase phrase; regex rules
// are compiled case-insensitive and matched against the original message,
// so the evidence keeps the sender's casing.
type Rule struct {
	Pattern string // lowercase literal phrase, or regex source when IsRegex
	IsRegex bool
	Weight  int
	Reason  string
	Tier    Tier

	re *regexp.Regexp // non-nil iff IsRegex, set at compile time
}

// Match reports the matched substring. text is the original message, lowered
// its lowercase form; callers compute lowered once and reuse it per rule.
func (r *Rule) Match(text, lowered string) (string, bool) {
	if r.IsRegex {
		m := r.re.FindString(text)
		return m, m != ""
	}
	if strings.Contains(lowered, r.Pattern) {
		return r.Pattern, true
	}
	return "", false
}

// Set is an immutable collection of compiled rules.
type Set struct {
	rules []Rule
}

// Rules returns the compiled rules. The returned slice must not be modified.
func (s *Set) Rules() []Rule {
	return s.rules
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}

var (
	defaultSet  *Set
	defaultOnce sync.Once
)

// Default returns the built-in rule set, compiled on first use.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := compile(builtinRules)
		if err != nil {
			// Built-in table is static; a compile failure is a programming error.
			panic(fmt.Sprintf("rules: built-in table invalid: %v", err))
		}
		defaultSet = s
	})
	return defaultSet
}

func compile(specs []Rule) (*Set, error) {
	out := make([]Rule, 0, len(specs))
	for i, r := range specs {
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if r.Weight <= 0 || r.Weight > 50 {
			return nil, fmt.Errorf("rule %d (%q): weight %d out of range (1-50)", i, r.Pattern, r.Weight)
		}
		if r.Reason == "" {
			return nil, fmt.Errorf("rule %d (%q): empty reason", i, r.Pattern)
		}
		if r.IsRegex {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%q): %w", i, r.Pattern, err)
			}
			r.re = re
		} else {
			r.Pattern = strings.ToLower(r.Pattern)
		}
		out = append(out, r)
	}
	return &Set{rules: out}, nil
}

// builtinRules is the default detection table. Weights were tuned against a
// corpus of confirmed credential-phishing and benign transactional mail.
var builtinRules = []Rule{
	// High tier: near-certain credential or payment theft language.
	{Pattern: "verify your account", Weight: 25, Tier: TierHigh,
		Reason: "Requests account verification, a classic credential phishing hook"},
	{Pattern: "confirm your password", Weight: 30, Tier: TierHigh,
		Reason: "Asks the recipient to confirm a password, legitimate services never do"},
	{Pattern: "update your payment", Weight: 25, Tier: TierHigh,
		Reason: "Pushes a payment-details update, common in billing-fraud lures"},
	{Pattern: `\b(update|verify|confirm)\b.*\b(billing|payment|card)\b`, IsRegex: true, Weight: 25, Tier: TierHigh,
		Reason: "Couples an action verb with billing or card details"},
	{Pattern: `account will be (locked|closed|suspended|terminated)`, IsRegex: true, Weight: 22, Tier: TierHigh,
		Reason: "Threatens loss of account access to force a reaction"},
	{Pattern: "wire transfer", Weight: 28, Tier: TierHigh,
		Reason: "Wire transfers are irreversible and a staple of payment fraud"},
	{Pattern: `\bgift card\b`, IsRegex: true, Weight: 26, Tier: TierHigh,
		Reason: "Gift card payment requests are a hallmark of scams"},
	{Pattern: "reset your password", Weight: 22, Tier: TierHigh,
		Reason: "Unsolicited password reset prompts often lead to credential capture"},
	{Pattern: `\b(ssn|social security number|tax id)\b`, IsRegex: true, Weight: 30, Tier: TierHigh,
		Reason: "Solicits government identity numbers"},

	// Medium tier: pressure and alarm language.
	{Pattern: "urgent", Weight: 12, Tier: TierMedium,
		Reason: "Urgency pressure discourages careful reading"},
	{Pattern: "immediately", Weight: 12, Tier: TierMedium,
		Reason: "Demands immediate action to short-circuit judgment"},
	{Pattern: "suspended", Weight: 15, Tier: TierMedium,
		Reason: "Claims of suspension create fear of losing access"},
	{Pattern: "unusual activity", Weight: 15, Tier: TierMedium,
		Reason: "Fake security alerts about unusual activity are a common pretext"},
	{Pattern: `\bunauthorized (access|transaction|charge)\b`, IsRegex: true, Weight: 16, Tier: TierMedium,
		Reason: "Alleges unauthorized activity to provoke a panicked click"},
	{Pattern: "security alert", Weight: 14, Tier: TierMedium,
		Reason: "Imitates a provider security notification"},
	{Pattern: `\b(act now|limited time|expires|deadline)\b`, IsRegex: true, Weight: 11, Tier: TierMedium,
		Reason: "Artificial deadline pressure"},
	{Pattern: `\bverif(y|ication)\b.*\bidentity\b`, IsRegex: true, Weight: 18, Tier: TierMedium,
		Reason: "Identity verification requests are used to harvest documents"},
	{Pattern: "click here to", Weight: 10, Tier: TierMedium,
		Reason: "Generic call-to-action link phrasing"},
	{Pattern: `\b(claim|collect).*\b(prize|reward|refund)\b`, IsRegex: true, Weight: 17, Tier: TierMedium,
		Reason: "Prize or refund claims bait the recipient into a form"},

	// Low tier: weak signals, mostly meaningful in combination.
	{Pattern: "login", Weight: 8, Tier: TierLow,
		Reason: "References a login flow"},
	{Pattern: "confidential", Weight: 7, Tier: TierLow,
		Reason: "False confidentiality framing"},
	{Pattern: `\bdear (customer|user|member|valued)\b`, IsRegex: true, Weight: 6, Tier: TierLow,
		Reason: "Impersonal greeting typical of bulk phishing"},
	{Pattern: "congratulations", Weight: 9, Tier: TierLow,
		Reason: "Unsolicited congratulation, common in prize scams"},
	{Pattern: `\bfree\b.*\b(money|cash|gift|iphone|ipad)\b`, IsRegex: true, Weight: 14, Tier: TierLow,
		Reason: "Too-good-to-be-true free offer"},
	{Pattern: `\b(click|tap).*\b(link|button|below)\b`, IsRegex: true, Weight: 8, Tier: TierLow,
		Reason: "Directs the recipient to interact with an embedded link"},
}
