// Package oracle adapts an external language model into a second opinion for
// the analysis engine. Consult is total: any transport or parsing failure
// degrades to a deterministic keyword fallback, so analysis stays available
// when the model is down or unconfigured.
package oracle

import (
	"context"
	"unicode"
)

// MaxRiskFactors caps how many model-supplied factors survive into an Opinion.
const MaxRiskFactors = 8

// minMeaningfulChars is the smallest input the model is asked about. Below
// this, any verdict would be noise, so Consult short-circuits.
const minMeaningfulChars = 10

// Opinion is the oracle's verdict on one message.
type Opinion struct {
	IsPhishing  bool
	Confidence  float64  // 0.0-1.0
	RiskFactors []string // at most MaxRiskFactors entries
	Source      string   // "gemini", "openai", "ollama", "fallback", "offline"
}

// Oracle produces an Opinion for a message. Implementations never return an
// error; a degraded verdict is still a verdict.
type Oracle interface {
	Consult(ctx context.Context, text string) Opinion
}

// Offline is an Oracle that never touches the network. It runs the same
// deterministic signal scan the network client falls back to, which makes
// air-gapped deployments and tests behave like a degraded live deployment.
type Offline struct{}

func (Offline) Consult(_ context.Context, text string) Opinion {
	if tooShort(text) {
		return shortOpinion("offline")
	}
	op := Fallback(text)
	op.Source = "offline"
	return op
}

func tooShort(text string) bool {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
			if n >= minMeaningfulChars {
				return false
			}
		}
	}
	return true
}

func shortOpinion(source string) Opinion {
	return Opinion{
		IsPhishing:  false,
		Confidence:  0.5,
		RiskFactors: []string{"Text too short"},
		Source:      source,
	}
}
