package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quietloop/aecore/internal/controller"
	"github.com/quietloop/aecore/pkg/events"
)

// ErrSessionNotFound is returned by Load, Append, SaveState, and Delete
// when no session exists under the given id.
var ErrSessionNotFound = errors.New("eventbus: session not found")

// StateSnapshot is the durable form of spec §3.1's State entity: the
// controller's position in the loop plus free-form per-session scratch
// data, checkpointed opportunistically after each Observation (§3.3).
type StateSnapshot struct {
	AgentState controller.State
	Outputs    map[string]any
	UpdatedAt  time.Time
}

// SessionStore is the durable keyed-by-session-id store spec §4.8
// requires: the ordered event log plus the latest State checkpoint.
type SessionStore interface {
	Create(ctx context.Context, sessionID string) error
	Load(ctx context.Context, sessionID string) ([]events.Envelope, StateSnapshot, error)
	Append(ctx context.Context, sessionID string, ev events.Envelope) error
	SaveState(ctx context.Context, sessionID string, state StateSnapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-memory SessionStore, grounded on the teacher's
// sessions.MemoryStore (mutex-guarded maps keyed by session id), used for
// tests and single-process runs where durability across restarts is not
// required.
type MemoryStore struct {
	mu    sync.RWMutex
	logs  map[string][]events.Envelope
	state map[string]StateSnapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[string][]events.Envelope),
		state: make(map[string]StateSnapshot),
	}
}

func (m *MemoryStore) Create(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[sessionID]; ok {
		return nil
	}
	m.logs[sessionID] = nil
	m.state[sessionID] = StateSnapshot{AgentState: controller.StateInit, UpdatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]events.Envelope, StateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log, ok := m.logs[sessionID]
	if !ok {
		return nil, StateSnapshot{}, ErrSessionNotFound
	}
	out := make([]events.Envelope, len(log))
	copy(out, log)
	return out, m.state[sessionID], nil
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, ev events.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[sessionID]; !ok {
		return ErrSessionNotFound
	}
	m.logs[sessionID] = append(m.logs[sessionID], ev)
	return nil
}

func (m *MemoryStore) SaveState(_ context.Context, sessionID string, state StateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[sessionID]; !ok {
		return ErrSessionNotFound
	}
	state.UpdatedAt = time.Now()
	m.state[sessionID] = state
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, sessionID)
	delete(m.state, sessionID)
	return nil
}

// DurableConsumer adapts a SessionStore into a Consumer that appends every
// published event to the named session's durable log, satisfying spec
// §4.8's "durable event writer (append-only per session)". Append errors
// are swallowed rather than propagated: a Consumer has no caller to
// return an error to, and a write failure here must not be allowed to
// affect the controller (the session continues per §4.8).
type DurableConsumer struct {
	Store     SessionStore
	SessionID string
	OnError   func(error)
}

func (d *DurableConsumer) Consume(ctx context.Context, ev events.Envelope) {
	if err := d.Store.Append(ctx, d.SessionID, ev); err != nil && d.OnError != nil {
		d.OnError(err)
	}
}
