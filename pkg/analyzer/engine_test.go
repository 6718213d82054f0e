package analyzer

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/PhishGuardAI/phishguard/pkg/oracle"
)

// stubOracle returns a fixed opinion, so aggregation can be tested without
// any network or fallback variance.
type stubOracle struct {
	op oracle.Opinion
}

func (s stubOracle) Consult(context.Context, string) oracle.Opinion {
	return s.op
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	e := NewEngine(oracle.Offline{}, nil, nil)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := e.Analyze(context.Background(), text); err == nil {
			t.Errorf("Analyze(%q) succeeded, want error", text)
		}
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, RiskSafe},
		{24, RiskSafe},
		{25, RiskSuspicious},
		{59, RiskSuspicious},
		{60, RiskHighRisk},
		{100, RiskHighRisk},
	}
	for _, tt := range tests {
		if got := RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestAnalyzeBenignMessage(t *testing.T) {
	e := NewEngine(oracle.Offline{}, nil, nil)
	got, err := e.Analyze(context.Background(), "Hello team, the meeting is tomorrow at 10am. Thanks")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.RiskLevel != RiskSafe {
		t.Errorf("RiskLevel = %q, want SAFE (score %d, reasons %v)", got.RiskLevel, got.Score, got.Reasons)
	}
	if got.Score >= 25 {
		t.Errorf("Score = %d, want < 25", got.Score)
	}
	if got.AIPrediction != "LEGITIMATE" {
		t.Errorf("AIPrediction = %q, want LEGITIMATE", got.AIPrediction)
	}
	if got.AIConfidence == nil || *got.AIConfidence != 1.0 {
		t.Errorf("AIConfidence = %v, want 1.0 (no fallback signals at all)", got.AIConfidence)
	}
}

func TestAnalyzePhishingMessage(t *testing.T) {
	text := "URGENT!!!!! You must verify your account immediately. Click here to login: http://192.168.0.1/login"

	e := NewEngine(oracle.Offline{}, nil, nil)
	got, err := e.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.RiskLevel != RiskHighRisk {
		t.Errorf("RiskLevel = %q, want HIGH_RISK (score %d)", got.RiskLevel, got.Score)
	}
	if got.Score < 60 || got.Score > 100 {
		t.Errorf("Score = %d, want in [60,100]", got.Score)
	}
	if len(got.Reasons) == 0 {
		t.Fatal("Reasons is empty")
	}
	if !anyContains(got.Reasons, "Raw IP address") {
		t.Errorf("no IP-hostname finding in reasons: %v", got.Reasons)
	}
	if got.AIPrediction != "PHISHING" {
		t.Errorf("AIPrediction = %q, want PHISHING", got.AIPrediction)
	}
}

func TestAnalyzeWithoutOracle(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	got, err := e.Analyze(context.Background(), "please verify your account")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.AIConfidence != nil || got.AIPrediction != "" {
		t.Errorf("AI fields set without an oracle: %+v", got)
	}
	if len(got.Reasons) == 0 || !strings.Contains(got.Reasons[0], "AI oracle not configured") {
		t.Errorf("first reason = %v, want the heuristics-only notice", got.Reasons)
	}
	// Heuristics run at full weight: keyword 25 puts this in SUSPICIOUS on
	// its own, plus the behavioral sensitive-data pattern.
	if got.Score != 25+15 {
		t.Errorf("Score = %d, want 40", got.Score)
	}
	if got.RiskLevel != RiskSuspicious {
		t.Errorf("RiskLevel = %q, want SUSPICIOUS", got.RiskLevel)
	}
}

func TestAnalyzeHeuristicDeWeighting(t *testing.T) {
	text := "please verify your account" // keyword 25, behavior 15

	t.Run("phishing opinion scales heuristics by 0.3", func(t *testing.T) {
		e := NewEngine(stubOracle{oracle.Opinion{IsPhishing: true, Confidence: 0.5, Source: "stub"}}, nil, nil)
		got, err := e.Analyze(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		// aiScore = 50 + 0.5*40 = 70; heuristics 25*0.3=7 + 15*0.3=4
		if got.Score != 70+7+4 {
			t.Errorf("Score = %d, want 81", got.Score)
		}
	})

	t.Run("fully confident legitimate restores full weight", func(t *testing.T) {
		e := NewEngine(stubOracle{oracle.Opinion{IsPhishing: false, Confidence: 1.0, Source: "stub"}}, nil, nil)
		got, err := e.Analyze(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		// aiScore = (1-1.0)*20 = 0, so the 0.3 factor must not apply.
		if got.Score != 25+15 {
			t.Errorf("Score = %d, want 40", got.Score)
		}
	})

	t.Run("uncertain legitimate still de-weights", func(t *testing.T) {
		e := NewEngine(stubOracle{oracle.Opinion{IsPhishing: false, Confidence: 0.6, Source: "stub"}}, nil, nil)
		got, err := e.Analyze(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		// aiScore = int(0.4*20) = 8 > 0, heuristics scale: 7 + 4.
		if got.Score != 8+7+4 {
			t.Errorf("Score = %d, want 19", got.Score)
		}
	})
}

func TestAnalyzeScoreClamped(t *testing.T) {
	e := NewEngine(stubOracle{oracle.Opinion{IsPhishing: true, Confidence: 1.0, Source: "stub"}}, nil, nil)
	text := "URGENT!!!!! verify your account, confirm your password, wire transfer a gift card immediately, click here to login at http://192.168.0.1/login"
	got, err := e.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 100 {
		t.Errorf("Score = %d, want clamped to 100", got.Score)
	}
	if got.RiskLevel != RiskHighRisk {
		t.Errorf("RiskLevel = %q", got.RiskLevel)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	op := oracle.Opinion{
		IsPhishing:  true,
		Confidence:  0.83,
		RiskFactors: []string{"Credential request", "Urgency pressure"},
		Source:      "stub",
	}
	e := NewEngine(stubOracle{op}, nil, nil)
	text := "verify your account immediately at http://bit.ly/x"

	first, err := e.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis differs:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeFallbackEquivalence(t *testing.T) {
	// An unreachable oracle must produce exactly the deterministic fallback
	// verdict in the result's AI fields.
	text := "Please verify your password immediately"
	want := oracle.Fallback(text)

	client := oracle.NewClient(oracle.ClientConfig{
		Provider: oracle.ProviderOpenAI,
		APIKey:   "k",
		BaseURL:  "http://127.0.0.1:1",
		Timeout:  200 * time.Millisecond,
	}, nil)
	e := NewEngine(client, nil, nil)

	got, err := e.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if got.AIConfidence == nil || *got.AIConfidence != want.Confidence {
		t.Errorf("AIConfidence = %v, want %v", got.AIConfidence, want.Confidence)
	}
	wantPrediction := "LEGITIMATE"
	if want.IsPhishing {
		wantPrediction = "PHISHING"
	}
	if got.AIPrediction != wantPrediction {
		t.Errorf("AIPrediction = %q, want %q", got.AIPrediction, wantPrediction)
	}
}

func TestAnalyzeReasonOrderAndBudget(t *testing.T) {
	factors := []string{"f1", "f2", "f3", "f4", "f5"}
	e := NewEngine(stubOracle{oracle.Opinion{IsPhishing: true, Confidence: 0.9, RiskFactors: factors, Source: "stub"}}, nil, nil)

	got, err := e.Analyze(context.Background(), "verify your account and confirm your password urgently, act now: http://192.168.0.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got.Reasons[0], "🤖 AI Model: 90.0% confidence PHISHING") {
		t.Errorf("first reason = %q", got.Reasons[0])
	}
	// Only the first 3 oracle factors survive.
	if got.Reasons[1] != "f1" || got.Reasons[2] != "f2" || got.Reasons[3] != "f3" {
		t.Errorf("AI factors not in positions 1-3: %v", got.Reasons)
	}
	if anyContains(got.Reasons, "f4") {
		t.Errorf("fourth AI factor leaked into reasons: %v", got.Reasons)
	}
	if len(got.Reasons) > 15 {
		t.Errorf("len(Reasons) = %d, want <= 15", len(got.Reasons))
	}
}
