package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the YAML shape operators use to append site-local rules:
//
//	rules:
//	  - pattern: "internal payroll portal"
//	    weight: 20
//	    reason: "References the payroll portal, a frequent spearphish theme here"
//	  - pattern: '\bdocusign\b.*\bexpir'
//	    regex: true
//	    weight: 15
//	    reason: "Fake DocuSign expiry notice"
type overlayFile struct {
	Rules []overlayRule `yaml:"rules"`
}

type overlayRule struct {
	Pattern string `yaml:"pattern"`
	Regex   bool   `yaml:"regex"`
	Weight  int    `yaml:"weight"`
	Reason  string `yaml:"reason"`
}

// Load returns the built-in rules plus an optional YAML overlay.
// An empty path returns the built-in set unchanged. Invalid overlay entries
// are an error so misconfiguration fails at startup, not silently at scan time.
func Load(path string) (*Set, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules overlay: %w", err)
	}

	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules overlay %s: %w", path, err)
	}

	specs := make([]Rule, 0, len(file.Rules))
	for _, r := range file.Rules {
		specs = append(specs, Rule{
			Pattern: r.Pattern,
			IsRegex: r.Regex,
			Weight:  r.Weight,
			Reason:  r.Reason,
			Tier:    TierLocal,
		})
	}
	extra, err := compile(specs)
	if err != nil {
		return nil, fmt.Errorf("rules overlay %s: %w", path, err)
	}

	merged := make([]Rule, 0, base.Len()+extra.Len())
	merged = append(merged, base.rules...)
	merged = append(merged, extra.rules...)
	return &Set{rules: merged}, nil
}
