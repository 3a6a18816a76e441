package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// MemoryStore is an in-memory implementation of Store. It uses maps with an
// RWMutex for thread-safe concurrent access and is suitable for tests and
// single-instance deployments without persistence requirements.
type MemoryStore struct {
	mu       sync.RWMutex
	rules    map[string]rules.Rule
	profiles map[string]proxy.Profile
	state    State
}

// NewMemoryStore creates an empty in-memory store with autoMode enabled.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:    make(map[string]rules.Rule),
		profiles: make(map[string]proxy.Profile),
		state:    State{AutoMode: true},
	}
}

func (m *MemoryStore) GetRules(ctx context.Context) ([]rules.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rules.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryStore) UpsertRule(ctx context.Context, r rules.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
	return nil
}

func (m *MemoryStore) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

func (m *MemoryStore) GetProfiles(ctx context.Context) ([]proxy.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]proxy.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*proxy.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, p proxy.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *MemoryStore) DeleteProfile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

func (m *MemoryStore) GetState(ctx context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, nil
}

func (m *MemoryStore) UpdateState(ctx context.Context, patch StatePatch) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = applyPatch(m.state, patch)
	return m.state, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error { return nil }

func applyPatch(s State, patch StatePatch) State {
	if patch.AutoMode != nil {
		s.AutoMode = *patch.AutoMode
	}
	if patch.LastCheckTime != nil {
		t := *patch.LastCheckTime
		s.LastCheckTime = &t
	}
	if patch.LastRuleMatched != nil {
		s.LastRuleMatched = *patch.LastRuleMatched
	}
	if patch.ActiveProfileID != nil {
		s.ActiveProfileID = *patch.ActiveProfileID
	}
	if patch.LastStatus != nil {
		s.LastStatus = *patch.LastStatus
	}
	return s
}
