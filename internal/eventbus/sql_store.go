package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quietloop/aecore/internal/controller"
	"github.com/quietloop/aecore/pkg/events"
)

// SQLStore is a durable SessionStore backed by any database/sql driver
// speaking a Postgres-compatible dialect (github.com/lib/pq) or
// SQLite (modernc.org/sqlite) — the statements below use only ANSI SQL
// both dialects accept, grounded on the teacher's CockroachStore
// (prepared-statement-per-operation, session-keyed tables).
//
// Schema (created by EnsureSchema):
//
//	sessions(session_id TEXT PRIMARY KEY, agent_state TEXT, outputs TEXT, updated_at TIMESTAMP)
//	session_events(session_id TEXT, seq INTEGER, payload TEXT, PRIMARY KEY(session_id, seq))
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an already-open *sql.DB. Callers open the DB with
// either "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite) and pass it
// in here; SQLStore itself is driver-agnostic.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EnsureSchema creates the store's tables if they do not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			agent_state TEXT NOT NULL,
			outputs TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("eventbus: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, sessionID string) error {
	outputs, err := json.Marshal(map[string]any{})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, agent_state, outputs, updated_at) VALUES ($1, $2, $3, $4)`,
		sessionID, string(controller.StateInit), string(outputs), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("eventbus: create session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) ([]events.Envelope, StateSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT agent_state, outputs, updated_at FROM sessions WHERE session_id = $1`, sessionID)

	var agentState, outputsJSON string
	var updatedAt time.Time
	if err := row.Scan(&agentState, &outputsJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, StateSnapshot{}, ErrSessionNotFound
		}
		return nil, StateSnapshot{}, fmt.Errorf("eventbus: load session %s: %w", sessionID, err)
	}

	var outputs map[string]any
	if err := json.Unmarshal([]byte(outputsJSON), &outputs); err != nil {
		return nil, StateSnapshot{}, fmt.Errorf("eventbus: decode outputs for %s: %w", sessionID, err)
	}
	state := StateSnapshot{AgentState: controller.State(agentState), Outputs: outputs, UpdatedAt: updatedAt}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM session_events WHERE session_id = $1 ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, StateSnapshot{}, fmt.Errorf("eventbus: load events for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var log []events.Envelope
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, StateSnapshot{}, fmt.Errorf("eventbus: scan event for %s: %w", sessionID, err)
		}
		ev, err := events.Decode([]byte(payload))
		if err != nil {
			return nil, StateSnapshot{}, fmt.Errorf("eventbus: decode event for %s: %w", sessionID, err)
		}
		log = append(log, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, StateSnapshot{}, err
	}

	return log, state, nil
}

func (s *SQLStore) Append(ctx context.Context, sessionID string, ev events.Envelope) error {
	payload, err := events.Encode(ev)
	if err != nil {
		return fmt.Errorf("eventbus: encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, seq, payload) VALUES ($1, $2, $3)`,
		sessionID, ev.Base().ID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("eventbus: append event for %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLStore) SaveState(ctx context.Context, sessionID string, state StateSnapshot) error {
	outputs, err := json.Marshal(state.Outputs)
	if err != nil {
		return fmt.Errorf("eventbus: encode outputs: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET agent_state = $1, outputs = $2, updated_at = $3 WHERE session_id = $4`,
		string(state.AgentState), string(outputs), time.Now(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("eventbus: save state for %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_events WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("eventbus: delete events for %s: %w", sessionID, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("eventbus: delete session %s: %w", sessionID, err)
	}
	return nil
}
