package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PhishGuardAI/phishguard/pkg/rules"
)

func TestScanKeywordsEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		score, reasons := ScanKeywords(rules.Default(), text)
		if score != 0 || len(reasons) != 0 {
			t.Errorf("ScanKeywords(%q) = (%d, %v), want (0, [])", text, score, reasons)
		}
	}
}

func TestScanKeywords(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore int
		wantIn    string // substring expected in some reason
	}{
		{
			name:      "single literal match",
			text:      "Please verify your account today",
			wantScore: 25,
			wantIn:    "verify your account",
		},
		{
			name:      "case insensitive",
			text:      "WIRE TRANSFER requested",
			wantScore: 28,
			wantIn:    "wire transfer",
		},
		{
			name:      "regex threat phrasing",
			text:      "your account will be suspended tomorrow",
			wantScore: 22 + 15, // threat regex + literal "suspended"
			wantIn:    "account will be suspended",
		},
		{
			name:      "no match",
			text:      "see you at the standup",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons := ScanKeywords(rules.Default(), tt.text)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d (reasons: %v)", score, tt.wantScore, reasons)
			}
			if tt.wantIn != "" && !anyContains(reasons, tt.wantIn) {
				t.Errorf("no reason contains %q: %v", tt.wantIn, reasons)
			}
		})
	}
}

func TestScanKeywordsReasonFormat(t *testing.T) {
	_, reasons := ScanKeywords(rules.Default(), "please verify your account")
	if len(reasons) != 1 {
		t.Fatalf("reasons = %v", reasons)
	}
	if !strings.HasPrefix(reasons[0], "⚠ Pattern detected: 'verify your account' — ") {
		t.Errorf("unexpected reason format: %q", reasons[0])
	}
}

func TestScanKeywordsRegexKeepsCasing(t *testing.T) {
	score, reasons := ScanKeywords(rules.Default(), "Send me a GIFT CARD today")
	if score != 26 {
		t.Fatalf("score = %d, want 26 (reasons: %v)", score, reasons)
	}
	if !anyContains(reasons, "'GIFT CARD'") {
		t.Errorf("evidence lost the sender's casing: %v", reasons)
	}
}

func TestScanKeywordsDedupBySubstring(t *testing.T) {
	// An overlay rule matching the same substring as a built-in rule must
	// not double-count: the first rule in table order wins.
	path := filepath.Join(t.TempDir(), "rules.yaml")
	overlay := `rules:
  - pattern: "urgent"
    weight: 30
    reason: "duplicate of the built-in urgency rule"
`
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := rules.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	score, reasons := ScanKeywords(set, "this is urgent")
	if score != 12 {
		t.Errorf("score = %d, want 12 (built-in weight, overlay deduped); reasons: %v", score, reasons)
	}
	if len(reasons) != 1 {
		t.Errorf("reasons = %v, want exactly one", reasons)
	}
}

func TestScanKeywordsContextSuppression(t *testing.T) {
	legitTail := " To stop receiving these emails, unsubscribe here. Read our privacy policy."

	t.Run("two legit indicators suppress weak matches", func(t *testing.T) {
		score, reasons := ScanKeywords(rules.Default(), "Urgent news inside."+legitTail)
		if score != 0 || len(reasons) != 0 {
			t.Errorf("got (%d, %v), want suppression", score, reasons)
		}
	})

	t.Run("one indicator does not suppress", func(t *testing.T) {
		score, _ := ScanKeywords(rules.Default(), "Urgent news inside. You can unsubscribe anytime.")
		if score != 12 {
			t.Errorf("score = %d, want 12", score)
		}
	})

	t.Run("high-risk terms survive suppression", func(t *testing.T) {
		score, reasons := ScanKeywords(rules.Default(), "Please confirm your password."+legitTail)
		if score != 30 {
			t.Errorf("score = %d, want 30; reasons: %v", score, reasons)
		}
		if !anyContains(reasons, "confirm your password") {
			t.Errorf("missing password reason: %v", reasons)
		}
	})
}

func anyContains(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
