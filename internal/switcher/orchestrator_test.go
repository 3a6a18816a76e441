package switcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/store"
	"github.com/krzko/proxy-switcheroo/internal/webhook"
)

// stubProber answers every probe with a fixed verdict and counts calls.
type stubProber struct {
	success bool
	calls   atomic.Int64
}

func (s *stubProber) Probe(ctx context.Context, t rules.Trigger, bypassCache bool) probe.Result {
	s.calls.Add(1)
	return probe.Result{Success: s.success}
}

type stubAborter struct{ aborted atomic.Bool }

func (s *stubAborter) AbortAll() { s.aborted.Store(true) }

func seedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.UpsertProfile(ctx, proxy.Profile{
		ID:   "corp-proxy",
		Name: "Corporate proxy",
		Kind: proxy.KindManual,
		Host: "proxy.corp.example",
		Port: 3128,
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := st.UpsertRule(ctx, rules.Rule{
		ID:       "office",
		Name:     "Office network",
		Enabled:  true,
		Priority: 10,
		When:     rules.TriggerSet{ManualFlag: &rules.ManualFlagTrigger{Value: true}},
		Then:     rules.Action{SetActiveProfile: "corp-proxy"},
	}); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	return st
}

func newOrchestrator(st *store.MemoryStore, prober probe.Prober, aborter Aborter) *Orchestrator {
	ev := engine.New(prober, nil)
	act := proxy.NewStateActivator(st, StateRecorder{Store: st}, nil, nil)
	return New(st, ev, act, aborter, nil)
}

func TestRunPassMatched(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	o := newOrchestrator(st, &stubProber{success: true}, nil)

	res, err := o.RunPass(ctx, false, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if res.Status != StatusMatched {
		t.Fatalf("status = %q, want %q", res.Status, StatusMatched)
	}
	if res.Evaluation.ProfileID != "corp-proxy" {
		t.Errorf("profileID = %q", res.Evaluation.ProfileID)
	}

	state, _ := st.GetState(ctx)
	if state.LastStatus != StatusMatched || state.LastRuleMatched != "office" {
		t.Errorf("state = %+v", state)
	}
	if state.ActiveProfileID != "corp-proxy" {
		t.Errorf("activeProfileId = %q, want corp-proxy", state.ActiveProfileID)
	}
	if state.LastCheckTime == nil {
		t.Error("lastCheckTime not recorded")
	}
}

func TestRunPassNoMatch(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	o := newOrchestrator(st, &stubProber{success: false}, nil)

	res, err := o.RunPass(ctx, false, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if res.Status != StatusNoMatch {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoMatch)
	}
	state, _ := st.GetState(ctx)
	if state.LastStatus != StatusNoMatch || state.LastRuleMatched != "" {
		t.Errorf("state = %+v", state)
	}
}

func TestRunPassSkippedWhenAutoModeOff(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	prober := &stubProber{success: true}
	o := newOrchestrator(st, prober, nil)

	if _, err := o.SetAutoMode(ctx, false); err != nil {
		t.Fatalf("SetAutoMode: %v", err)
	}
	res, err := o.RunPass(ctx, false, true)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if res.Status != StatusSkipped {
		t.Fatalf("status = %q, want %q", res.Status, StatusSkipped)
	}
	if prober.calls.Load() != 0 {
		t.Errorf("probes ran during a skipped pass: %d", prober.calls.Load())
	}

	// A forced pass evaluates regardless of the gate.
	res, err = o.RunPass(ctx, true, true)
	if err != nil {
		t.Fatalf("RunPass (forced): %v", err)
	}
	if res.Status != StatusMatched {
		t.Errorf("forced status = %q, want %q", res.Status, StatusMatched)
	}
}

func TestRunPassActivationFailure(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	// Point the rule at a profile that does not exist.
	r, _ := st.GetRule(ctx, "office")
	r.Then.SetActiveProfile = "ghost"
	if err := st.UpsertRule(ctx, *r); err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}
	o := newOrchestrator(st, &stubProber{success: true}, nil)

	res, err := o.RunPass(ctx, false, true)
	if err == nil {
		t.Fatal("expected activation error")
	}
	if !errors.Is(err, proxy.ErrUnknownProfile) {
		t.Errorf("error = %v, want ErrUnknownProfile", err)
	}
	if res.Status != StatusError {
		t.Errorf("status = %q, want %q", res.Status, StatusError)
	}
	state, _ := st.GetState(ctx)
	if state.LastStatus != StatusError {
		t.Errorf("state status = %q, want %q", state.LastStatus, StatusError)
	}
	if state.ActiveProfileID != "" {
		t.Errorf("activeProfileId = %q, want empty", state.ActiveProfileID)
	}
}

type stubNotifier struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (n *stubNotifier) Dispatch(e webhook.Event) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *stubNotifier) byType(eventType string) []webhook.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []webhook.Event
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestRunPassNotifiesOnSwitch(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	o := newOrchestrator(st, &stubProber{success: true}, nil)
	n := &stubNotifier{}
	o.SetNotifier(n)

	if _, err := o.RunPass(ctx, false, true); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	got := n.byType(webhook.EventProfileSwitched)
	if len(got) != 1 {
		t.Fatalf("profile.switched events = %d, want 1", len(got))
	}
	if got[0].RuleID != "office" || got[0].ProfileID != "corp-proxy" {
		t.Errorf("event = %+v", got[0])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}

	if _, err := o.SetAutoMode(ctx, false); err != nil {
		t.Fatalf("SetAutoMode: %v", err)
	}
	if len(n.byType(webhook.EventAutoModeChanged)) != 1 {
		t.Error("autoMode change not notified")
	}
}

func TestSetAutoModeDisableAborts(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	ab := &stubAborter{}
	o := newOrchestrator(st, &stubProber{success: true}, ab)

	if _, err := o.SetAutoMode(ctx, false); err != nil {
		t.Fatalf("SetAutoMode(false): %v", err)
	}
	if !ab.aborted.Load() {
		t.Error("disabling autoMode must abort in-flight probes")
	}

	ab.aborted.Store(false)
	if _, err := o.SetAutoMode(ctx, true); err != nil {
		t.Fatalf("SetAutoMode(true): %v", err)
	}
	if ab.aborted.Load() {
		t.Error("enabling autoMode must not abort probes")
	}
}
