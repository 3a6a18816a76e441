package engine

import (
	"time"

	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// EvaluationResult is the outcome of one full evaluation pass. Results maps
// "<ruleID>_<triggerKind>" to the probe result for every rule touched, plus
// "<ruleID>_error" entries for rules that faulted internally.
type EvaluationResult struct {
	Matched        bool                    `json:"matched"`
	Rule           *rules.Rule             `json:"rule,omitempty"`
	ProfileID      string                  `json:"profileId,omitempty"`
	Results        map[string]probe.Result `json:"results"`
	EvaluationTime time.Duration           `json:"evaluationTime"` // wall clock, diagnostic only
}

// TestResult is the outcome of a single ad-hoc rule test.
type TestResult struct {
	Success bool                    `json:"success"`
	Results map[string]probe.Result `json:"results"`
	Error   string                  `json:"error,omitempty"`
}
