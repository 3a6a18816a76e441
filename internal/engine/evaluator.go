// Package engine decides which rule, if any, matches current network
// conditions. It owns no state beyond its collaborators: probes go through
// a Prober (normally the result cache), diagnostics go to a sink.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/diag"
	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
)

// Evaluator runs evaluation passes over a rule set.
type Evaluator struct {
	prober probe.Prober
	diag   *diag.Emitter
}

// New builds an evaluator probing through prober. sink may be nil.
func New(prober probe.Prober, sink diag.Sink) *Evaluator {
	return &Evaluator{
		prober: prober,
		diag:   diag.NewEmitter(sink, "evaluator"),
	}
}

// Evaluate scans the enabled rules in ascending priority order and stops at
// the first rule whose triggers all succeed. Within one rule every trigger
// is probed (no short-circuit) so diagnostics are complete; across rules the
// scan strictly stops at the first match. A rule that faults internally is
// recorded as "<ruleID>_error" and never aborts the pass.
func (ev *Evaluator) Evaluate(ctx context.Context, all []rules.Rule, enableCache bool) EvaluationResult {
	start := time.Now()
	result := EvaluationResult{Results: make(map[string]probe.Result)}

	enabled := make([]rules.Rule, 0, len(all))
	for _, r := range all {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	// Ties keep encounter order: stable sort is load-bearing here.
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	for _, r := range enabled {
		matched, err := ev.evaluateRule(ctx, r, enableCache, result.Results)
		if err != nil {
			result.Results[r.ID+"_error"] = probe.Result{
				Success:   false,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			}
			ev.diag.Error("rule evaluation fault", map[string]any{"rule": r.ID, "error": err.Error()})
			continue
		}
		if matched {
			rule := r
			result.Matched = true
			result.Rule = &rule
			result.ProfileID = r.Then.SetActiveProfile
			ev.diag.Info("rule matched", map[string]any{
				"rule":    r.ID,
				"name":    r.Name,
				"profile": result.ProfileID,
			})
			break
		}
	}

	result.EvaluationTime = time.Since(start)
	outcome := "no_match"
	if result.Matched {
		outcome = "matched"
	}
	telemetry.Evaluations.WithLabelValues(outcome).Inc()
	telemetry.EvaluationDur.Observe(result.EvaluationTime.Seconds())
	return result
}

// TestRule evaluates one ad-hoc rule with caching disabled. It never
// touches the persisted rule set or the cache contents.
func (ev *Evaluator) TestRule(ctx context.Context, r rules.Rule) TestResult {
	results := make(map[string]probe.Result)
	matched, err := ev.evaluateRule(ctx, r, false, results)
	if err != nil {
		return TestResult{Success: false, Results: results, Error: err.Error()}
	}
	return TestResult{Success: matched, Results: results}
}

// evaluateRule probes every trigger of one rule and reports whether all
// succeeded. Trigger probes run concurrently; the AND verdict is decided
// only after every result is collected. Panics anywhere inside the rule are
// converted to an error so one misconfigured rule cannot sink the pass.
func (ev *Evaluator) evaluateRule(ctx context.Context, r rules.Rule, enableCache bool, results map[string]probe.Result) (matched bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rule %s: internal fault: %v", r.ID, p)
		}
	}()

	triggers := r.When.Triggers()
	if len(triggers) == 0 {
		// No triggers configured, not "always true".
		ev.diag.Debug("rule has no triggers, skipping", map[string]any{"rule": r.ID})
		return false, nil
	}

	probed := make([]probe.Result, len(triggers))
	faults := make([]error, len(triggers))
	var wg sync.WaitGroup
	for i, t := range triggers {
		wg.Add(1)
		go func(i int, t rules.Trigger) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					faults[i] = fmt.Errorf("trigger %s panicked: %v", t.Kind(), p)
				}
			}()
			probed[i] = ev.prober.Probe(ctx, t, !enableCache)
		}(i, t)
	}
	wg.Wait()

	for _, fault := range faults {
		if fault != nil {
			return false, fault
		}
	}

	matched = true
	for i, t := range triggers {
		res := probed[i]
		results[r.ID+"_"+string(t.Kind())] = res
		if !res.Success {
			matched = false
		}
	}
	return matched, nil
}
