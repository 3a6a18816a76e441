// Package switcher coordinates a full auto-switch pass: gate on autoMode,
// evaluate the rule set, activate the winning profile, and persist the
// outcome. It is the only writer of the switch state during passes.
package switcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/diag"
	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/store"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
	"github.com/krzko/proxy-switcheroo/internal/webhook"
)

// Pass outcomes recorded in the switch state.
const (
	StatusMatched = "Matched"
	StatusNoMatch = "NoMatch"
	StatusError   = "Error"
	StatusSkipped = "Skipped"
)

// Aborter cancels in-flight probes. The probe executor satisfies it.
type Aborter interface {
	AbortAll()
}

// Notifier receives switch events. The webhook dispatcher satisfies it.
type Notifier interface {
	Dispatch(event webhook.Event)
}

// PassResult is the outcome of one orchestrated pass.
type PassResult struct {
	Status     string                  `json:"status"`
	Evaluation engine.EvaluationResult `json:"evaluation"`
	State      store.State             `json:"state"`
}

// Orchestrator runs evaluation passes end to end. Passes are serialized:
// a scheduler tick and an API-triggered pass never interleave.
type Orchestrator struct {
	store     store.Store
	evaluator *engine.Evaluator
	activator proxy.Activator
	aborter   Aborter
	notifier  Notifier
	diag      *diag.Emitter

	mu sync.Mutex
}

// New wires an orchestrator. aborter and sink may be nil.
func New(st store.Store, ev *engine.Evaluator, act proxy.Activator, aborter Aborter, sink diag.Sink) *Orchestrator {
	return &Orchestrator{
		store:     st,
		evaluator: ev,
		activator: act,
		aborter:   aborter,
		diag:      diag.NewEmitter(sink, "switcher"),
	}
}

// SetNotifier attaches an event notifier. Call before the first pass.
func (o *Orchestrator) SetNotifier(n Notifier) { o.notifier = n }

func (o *Orchestrator) notify(e webhook.Event) {
	if o.notifier != nil {
		e.Timestamp = time.Now().UTC()
		o.notifier.Dispatch(e)
	}
}

// RunPass executes one evaluation pass. With autoMode disabled the pass is
// skipped entirely (no probes run) unless force is set. The switch state is
// updated whatever the outcome; an activation failure both surfaces as an
// error and leaves the state marked Error.
func (o *Orchestrator) RunPass(ctx context.Context, force, enableCache bool) (res PassResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluation pass fault: %v", p)
			res.Status = StatusError
			o.recordOutcome(ctx, &res)
		}
	}()

	state, err := o.store.GetState(ctx)
	if err != nil {
		return PassResult{Status: StatusError}, fmt.Errorf("load state: %w", err)
	}
	if !state.AutoMode && !force {
		res = PassResult{Status: StatusSkipped, State: state}
		telemetry.Evaluations.WithLabelValues("skipped").Inc()
		o.diag.Debug("pass skipped, autoMode disabled", nil)
		return res, nil
	}

	ruleSet, err := o.store.GetRules(ctx)
	if err != nil {
		res.Status = StatusError
		o.recordOutcome(ctx, &res)
		return res, fmt.Errorf("load rules: %w", err)
	}

	res.Evaluation = o.evaluator.Evaluate(ctx, ruleSet, enableCache)
	if !res.Evaluation.Matched {
		res.Status = StatusNoMatch
		o.recordOutcome(ctx, &res)
		return res, nil
	}

	res.Status = StatusMatched
	if err := o.activator.SetActiveProfile(ctx, res.Evaluation.ProfileID); err != nil {
		res.Status = StatusError
		telemetry.Evaluations.WithLabelValues("error").Inc()
		o.recordOutcome(ctx, &res)
		o.notify(webhook.Event{
			Type:      webhook.EventPassFailed,
			RuleID:    res.Evaluation.Rule.ID,
			ProfileID: res.Evaluation.ProfileID,
			Status:    res.Status,
			Data:      map[string]any{"error": err.Error()},
		})
		return res, fmt.Errorf("activate profile %s: %w", res.Evaluation.ProfileID, err)
	}
	o.recordOutcome(ctx, &res)
	o.notify(webhook.Event{
		Type:      webhook.EventProfileSwitched,
		RuleID:    res.Evaluation.Rule.ID,
		ProfileID: res.Evaluation.ProfileID,
		Status:    res.Status,
	})
	return res, nil
}

// SetAutoMode flips the autoMode gate. Disabling it aborts any probes still
// in flight so a stale pass cannot switch profiles after the fact.
func (o *Orchestrator) SetAutoMode(ctx context.Context, enabled bool) (store.State, error) {
	if !enabled && o.aborter != nil {
		o.aborter.AbortAll()
	}
	state, err := o.store.UpdateState(ctx, store.StatePatch{AutoMode: &enabled})
	if err != nil {
		return store.State{}, fmt.Errorf("update autoMode: %w", err)
	}
	o.diag.Info("autoMode changed", map[string]any{"enabled": enabled})
	o.notify(webhook.Event{
		Type: webhook.EventAutoModeChanged,
		Data: map[string]any{"enabled": enabled},
	})
	return state, nil
}

// recordOutcome persists the pass result into the switch state and fills
// res.State with the post-update snapshot. Persistence failures are logged,
// not propagated: the pass outcome already stands.
func (o *Orchestrator) recordOutcome(ctx context.Context, res *PassResult) {
	now := time.Now().UTC()
	patch := store.StatePatch{
		LastCheckTime: &now,
		LastStatus:    &res.Status,
	}
	matched := ""
	if res.Evaluation.Rule != nil {
		matched = res.Evaluation.Rule.ID
	}
	patch.LastRuleMatched = &matched

	state, err := o.store.UpdateState(ctx, patch)
	if err != nil {
		o.diag.Error("failed to persist pass outcome", map[string]any{"error": err.Error()})
		return
	}
	res.State = state
}

// StateRecorder adapts a StateStore to the activator's Recorder interface.
type StateRecorder struct {
	Store store.StateStore
}

func (r StateRecorder) RecordActiveProfile(ctx context.Context, profileID string) error {
	_, err := r.Store.UpdateState(ctx, store.StatePatch{ActiveProfileID: &profileID})
	return err
}
