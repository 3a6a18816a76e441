package store

import (
	"context"
	"errors"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// ErrNotFound is returned when a rule or profile does not exist.
var ErrNotFound = errors.New("not found")

// RuleStore persists condition rules. The engine only reads it; rules are
// managed by the API and CLI surfaces. Implementations must be safe for
// concurrent access.
type RuleStore interface {
	// GetRules returns all rules, unordered. The evaluator sorts by priority.
	GetRules(ctx context.Context) ([]rules.Rule, error)

	// GetRule returns a single rule by id, or ErrNotFound.
	GetRule(ctx context.Context, id string) (*rules.Rule, error)

	// UpsertRule creates or replaces a rule.
	UpsertRule(ctx context.Context, r rules.Rule) error

	// DeleteRule removes a rule by id. Idempotent.
	DeleteRule(ctx context.Context, id string) error
}

// ProfileStore persists proxy profiles.
type ProfileStore interface {
	GetProfiles(ctx context.Context) ([]proxy.Profile, error)
	GetProfile(ctx context.Context, id string) (*proxy.Profile, error)
	UpsertProfile(ctx context.Context, p proxy.Profile) error
	DeleteProfile(ctx context.Context, id string) error
}

// State is the engine's externally persisted switch state.
type State struct {
	AutoMode        bool       `json:"autoMode"`
	LastCheckTime   *time.Time `json:"lastCheckTime,omitempty"`
	LastRuleMatched string     `json:"lastRuleMatched,omitempty"`
	ActiveProfileID string     `json:"activeProfileId,omitempty"`
	LastStatus      string     `json:"lastStatus,omitempty"` // Matched, NoMatch, Error, Skipped
}

// StatePatch updates a subset of State fields; nil pointers leave the
// current value untouched.
type StatePatch struct {
	AutoMode        *bool
	LastCheckTime   *time.Time
	LastRuleMatched *string
	ActiveProfileID *string
	LastStatus      *string
}

// StateStore persists the switch state.
type StateStore interface {
	GetState(ctx context.Context) (State, error)
	UpdateState(ctx context.Context, patch StatePatch) (State, error)
}

// Store bundles the three stores plus resource cleanup.
type Store interface {
	RuleStore
	ProfileStore
	StateStore

	// Close releases any resources held by the store.
	Close() error
}
