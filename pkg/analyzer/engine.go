package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PhishGuardAI/phishguard/pkg/logger"
	"github.com/PhishGuardAI/phishguard/pkg/oracle"
	"github.com/PhishGuardAI/phishguard/pkg/rules"
)

// Risk levels, a pure function of the composite score.
const (
	RiskSafe       = "SAFE"       // score < 25
	RiskSuspicious = "SUSPICIOUS" // 25 <= score < 60
	RiskHighRisk   = "HIGH_RISK"  // score >= 60
)

const (
	highRiskThreshold   = 60
	suspiciousRiskLimit = 25
	maxScore            = 100
	maxReasons          = 15

	// corroboratingWeight scales heuristic layers when the oracle already
	// contributed score: heuristics corroborate, they do not dominate.
	corroboratingWeight = 0.3
)

// AnalysisResult is the externally visible output of one analysis call.
type AnalysisResult struct {
	Score        int      `json:"score"`
	RiskLevel    string   `json:"risk_level"`
	Reasons      []string `json:"reasons"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`
	AIPrediction string   `json:"ai_prediction,omitempty"` // "PHISHING" or "LEGITIMATE"
}

// Engine runs the four heuristic layers and the oracle, then aggregates.
// Safe for concurrent use: the rule set is read-only after construction and
// each call owns its intermediate state.
type Engine struct {
	oracle oracle.Oracle // nil disables the AI layer entirely
	rules  *rules.Set
	log    *logger.Logger
}

// NewEngine builds an engine. A nil rule set uses the built-in table; a nil
// logger discards; a nil oracle skips the AI layer and reports that in the
// reasons.
func NewEngine(o oracle.Oracle, set *rules.Set, log *logger.Logger) *Engine {
	if set == nil {
		set = rules.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		oracle: o,
		rules:  set,
		log:    log.WithComponent("analyzer"),
	}
}

// Analyze scores one message. Empty or whitespace-only input is an error;
// everything else produces a result, even when every layer degrades.
func (e *Engine) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message text is empty")
	}
	start := time.Now()

	kwScore, kwReasons := e.runLayer("keywords", func() (int, []string) {
		return ScanKeywords(e.rules, text)
	})
	urlScore, urlReasons := e.runLayer("urls", func() (int, []string) {
		return AnalyzeURLs(text)
	})
	behaviorScore, behaviorReasons := e.runLayer("behavior", func() (int, []string) {
		return AnalyzeBehavior(text)
	})
	anomalyScore, anomalyReasons := e.runLayer("anomaly", func() (int, []string) {
		return AnalyzeAnomalies(text)
	})

	var opinion *oracle.Opinion
	aiScore := 0
	if e.oracle != nil {
		op := e.oracle.Consult(ctx, text)
		opinion = &op
		if op.IsPhishing {
			aiScore = int(50 + op.Confidence*40)
		} else {
			aiScore = int((1 - op.Confidence) * 20)
		}
	}

	// Heuristics corroborate only when the oracle actually contributed
	// score. A fully confident legitimate verdict yields zero and restores
	// full heuristic weight.
	weight := 1.0
	if opinion != nil && aiScore > 0 {
		weight = corroboratingWeight
	}

	total := aiScore +
		int(float64(kwScore)*weight) +
		int(float64(urlScore)*weight) +
		int(float64(behaviorScore)*weight) +
		int(float64(anomalyScore)*weight)
	if total > maxScore {
		total = maxScore
	}

	reasons := make([]string, 0, maxReasons)
	if opinion != nil {
		if opinion.IsPhishing {
			reasons = append(reasons, fmt.Sprintf("🤖 AI Model: %.1f%% confidence PHISHING", opinion.Confidence*100))
		} else {
			reasons = append(reasons, fmt.Sprintf("✅ AI Model: %.1f%% confidence LEGITIMATE", opinion.Confidence*100))
		}
		reasons = append(reasons, capped(opinion.RiskFactors, 3)...)
	} else {
		reasons = append(reasons, "ℹ️ Using heuristic analysis (AI oracle not configured)")
	}
	reasons = append(reasons, capped(kwReasons, 3)...)
	reasons = append(reasons, capped(urlReasons, 3)...)
	reasons = append(reasons, capped(behaviorReasons, 2)...)
	reasons = append(reasons, capped(anomalyReasons, 2)...)
	reasons = capped(reasons, maxReasons)

	result := &AnalysisResult{
		Score:     total,
		RiskLevel: RiskLevelFor(total),
		Reasons:   reasons,
	}
	if opinion != nil {
		conf := opinion.Confidence
		result.AIConfidence = &conf
		if opinion.IsPhishing {
			result.AIPrediction = "PHISHING"
		} else {
			result.AIPrediction = "LEGITIMATE"
		}
	}

	e.log.Debug().
		Int("score", result.Score).
		Str("risk_level", result.RiskLevel).
		Int("reasons", len(result.Reasons)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return result, nil
}

// RiskLevelFor maps a composite score to its risk category.
func RiskLevelFor(score int) string {
	switch {
	case score >= highRiskThreshold:
		return RiskHighRisk
	case score >= suspiciousRiskLimit:
		return RiskSuspicious
	default:
		return RiskSafe
	}
}

// runLayer isolates a heuristic layer: a panicking layer contributes zero
// and logs, it never aborts the analysis.
func (e *Engine) runLayer(name string, fn func() (int, []string)) (score int, reasons []string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("layer", name).
				Msg("analysis layer failed, contributing zero")
			score, reasons = 0, nil
		}
	}()
	return fn()
}

func capped(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
