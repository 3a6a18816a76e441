package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// PostgresStore is a PostgreSQL implementation of Store. Trigger sets and
// profiles are stored as JSONB payloads; rule ordering fields stay as
// columns so the rule list can be inspected with plain SQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS switch_rules (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			enabled       BOOLEAN NOT NULL DEFAULT TRUE,
			priority      INTEGER NOT NULL DEFAULT 100,
			triggers      JSONB NOT NULL DEFAULT '{}',
			profile_id    TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS proxy_profiles (
			id         TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS switch_state (
			singleton         BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			auto_mode         BOOLEAN NOT NULL DEFAULT TRUE,
			last_check_time   TIMESTAMPTZ,
			last_rule_matched TEXT NOT NULL DEFAULT '',
			active_profile_id TEXT NOT NULL DEFAULT '',
			last_status       TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT INTO switch_state (singleton) VALUES (TRUE) ON CONFLICT DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) GetRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, enabled, priority, triggers, profile_id FROM switch_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, name, enabled, priority, triggers, profile_id FROM switch_rules WHERE id = $1`, id)
	r, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStore) UpsertRule(ctx context.Context, r rules.Rule) error {
	triggers, err := json.Marshal(r.When)
	if err != nil {
		return fmt.Errorf("marshal triggers: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO switch_rules (id, name, enabled, priority, triggers, profile_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			triggers = EXCLUDED.triggers,
			profile_id = EXCLUDED.profile_id,
			updated_at = now()`,
		r.ID, r.Name, r.Enabled, r.Priority, triggers, r.Then.SetActiveProfile)
	return err
}

func (p *PostgresStore) DeleteRule(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM switch_rules WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) GetProfiles(ctx context.Context) ([]proxy.Profile, error) {
	rows, err := p.pool.Query(ctx, `SELECT payload FROM proxy_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []proxy.Profile
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var prof proxy.Profile
		if err := json.Unmarshal(payload, &prof); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
		out = append(out, prof)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetProfile(ctx context.Context, id string) (*proxy.Profile, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM proxy_profiles WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	var prof proxy.Profile
	if err := json.Unmarshal(payload, &prof); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &prof, nil
}

func (p *PostgresStore) UpsertProfile(ctx context.Context, prof proxy.Profile) error {
	payload, err := json.Marshal(prof)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO proxy_profiles (id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		prof.ID, payload)
	return err
}

func (p *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM proxy_profiles WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) GetState(ctx context.Context) (State, error) {
	var (
		s    State
		last *time.Time
	)
	err := p.pool.QueryRow(ctx, `
		SELECT auto_mode, last_check_time, last_rule_matched, active_profile_id, last_status
		FROM switch_state WHERE singleton`).
		Scan(&s.AutoMode, &last, &s.LastRuleMatched, &s.ActiveProfileID, &s.LastStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{AutoMode: true}, nil
		}
		return State{}, err
	}
	s.LastCheckTime = last
	return s, nil
}

func (p *PostgresStore) UpdateState(ctx context.Context, patch StatePatch) (State, error) {
	// Read-modify-write inside one transaction keeps patches atomic.
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return State{}, err
	}
	defer tx.Rollback(ctx)

	var (
		s    State
		last *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT auto_mode, last_check_time, last_rule_matched, active_profile_id, last_status
		FROM switch_state WHERE singleton FOR UPDATE`).
		Scan(&s.AutoMode, &last, &s.LastRuleMatched, &s.ActiveProfileID, &s.LastStatus)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return State{}, err
	}
	s.LastCheckTime = last
	s = applyPatch(s, patch)

	_, err = tx.Exec(ctx, `
		INSERT INTO switch_state (singleton, auto_mode, last_check_time, last_rule_matched, active_profile_id, last_status)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO UPDATE SET
			auto_mode = EXCLUDED.auto_mode,
			last_check_time = EXCLUDED.last_check_time,
			last_rule_matched = EXCLUDED.last_rule_matched,
			active_profile_id = EXCLUDED.active_profile_id,
			last_status = EXCLUDED.last_status`,
		s.AutoMode, s.LastCheckTime, s.LastRuleMatched, s.ActiveProfileID, s.LastStatus)
	if err != nil {
		return State{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return State{}, err
	}
	return s, nil
}

// Close releases the underlying pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// ruleRow abstracts pgx.Row and pgx.Rows for scanning.
type ruleRow interface {
	Scan(dest ...any) error
}

func scanRule(row ruleRow) (rules.Rule, error) {
	var (
		r        rules.Rule
		triggers []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Enabled, &r.Priority, &triggers, &r.Then.SetActiveProfile); err != nil {
		return rules.Rule{}, err
	}
	if len(triggers) > 0 {
		if err := json.Unmarshal(triggers, &r.When); err != nil {
			return rules.Rule{}, fmt.Errorf("unmarshal triggers for rule %s: %w", r.ID, err)
		}
	}
	return r, nil
}
