package proxy

import (
	"context"
	"fmt"

	"github.com/krzko/proxy-switcheroo/internal/diag"
)

// ProfileLookup is the slice of the profile store the activator needs.
type ProfileLookup interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
}

// Recorder persists which profile is currently active.
type Recorder interface {
	RecordActiveProfile(ctx context.Context, profileID string) error
}

// Applier pushes a validated profile into the environment (OS settings,
// PAC endpoint, downstream proxy). The daemon itself stays platform-free;
// integrations plug in here.
type Applier func(ctx context.Context, p Profile) error

// StateActivator validates the requested profile against the store, applies
// it, and records it as active. It is the default Activator wired into the
// orchestrator.
type StateActivator struct {
	profiles ProfileLookup
	recorder Recorder
	apply    Applier
	diag     *diag.Emitter
}

// NewStateActivator builds an activator. apply may be nil, in which case
// activation only validates and records. sink may be nil.
func NewStateActivator(profiles ProfileLookup, recorder Recorder, apply Applier, sink diag.Sink) *StateActivator {
	return &StateActivator{
		profiles: profiles,
		recorder: recorder,
		apply:    apply,
		diag:     diag.NewEmitter(sink, "activator"),
	}
}

// SetActiveProfile resolves profileID, applies it, and records the switch.
// A lookup failure (including a missing profile) propagates to the caller.
func (a *StateActivator) SetActiveProfile(ctx context.Context, profileID string) error {
	p, err := a.profiles.GetProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnknownProfile, profileID, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %s failed validation: %w", profileID, err)
	}
	if a.apply != nil {
		if err := a.apply(ctx, *p); err != nil {
			return fmt.Errorf("apply profile %s: %w", profileID, err)
		}
	}
	if a.recorder != nil {
		if err := a.recorder.RecordActiveProfile(ctx, profileID); err != nil {
			return fmt.Errorf("record active profile %s: %w", profileID, err)
		}
	}
	a.diag.Info("profile activated", map[string]any{"profile": profileID, "kind": string(p.Kind)})
	return nil
}
