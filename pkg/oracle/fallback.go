package oracle

import (
	"math"
	"strings"
)

// fallbackSignals are the coarse indicators the degraded path scores with.
// They deliberately overlap the heuristic layers: when the model is down the
// engine still needs an opinion shaped like the model's.
var fallbackSignals = []struct {
	terms  []string
	weight int
	factor string
}{
	{[]string{"verify", "suspended"}, 40, "Account verification or suspension language"},
	{[]string{"password"}, 30, "References passwords"},
	{[]string{"urgent", "immediately"}, 20, "Urgency pressure"},
	{[]string{"click here"}, 20, "Embedded call-to-action link"},
}

// Fallback derives a deterministic Opinion from coarse keyword signals.
// Same input always yields the same Opinion.
func Fallback(text string) Opinion {
	lowered := strings.ToLower(text)

	score := 0
	var factors []string
	for _, sig := range fallbackSignals {
		for _, term := range sig.terms {
			if strings.Contains(lowered, term) {
				score += sig.weight
				factors = append(factors, sig.factor)
				break
			}
		}
	}

	p := float64(score) / 100
	if p > 1 {
		p = 1
	}
	if len(factors) == 0 {
		factors = []string{"Fallback analysis"}
	}

	return Opinion{
		IsPhishing:  p >= 0.5,
		Confidence:  math.Abs(p-0.5) * 2,
		RiskFactors: factors,
		Source:      "fallback",
	}
}
