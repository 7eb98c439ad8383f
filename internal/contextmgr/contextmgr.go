// Package contextmgr implements the context manager (component C4): it
// keeps a session's projected history within a configured token budget via
// truncation and, optionally, LLM-assisted summarization (spec §4.4).
package contextmgr

import (
	"context"

	"github.com/quietloop/aecore/internal/history"
)

// Counter is the subset of internal/tokens.Counter the context manager
// needs; kept as an interface so strategies can be tested against a fake.
type Counter interface {
	CountTurn(history.Turn) int
	CountMessages([]history.Turn) int
}

// Strategy reduces a turn list to fit within budget tokens. It returns the
// reduced list and whether it successfully got under budget (false means
// the caller should fall back, per spec §4.4's summarization-failure
// clause).
type Strategy interface {
	Apply(ctx context.Context, turns []history.Turn, budget int) ([]history.Turn, bool)
}

// Manager applies a configured Strategy, honoring the contract in spec
// §4.4: apply(history) -> history' where count(history') <= token_budget
// whenever the head alone fits; if the head alone exceeds budget, the head
// is returned verbatim so the LLM client can surface the resulting error
// rather than the context manager silently dropping the user's question.
type Manager struct {
	counter  Counter
	strategy Strategy
	headSize int
}

// New returns a Manager using strategy, falling back internally to plain
// truncation if strategy fails to get under budget. headSize is the
// minimum number of most-recent turns that must never be summarized away
// (spec §4.4 default N=10).
func New(counter Counter, strategy Strategy, headSize int) *Manager {
	if headSize <= 0 {
		headSize = 10
	}
	return &Manager{counter: counter, strategy: strategy, headSize: headSize}
}

// Apply runs the configured strategy and guarantees the budget-safety
// property (spec §8, property 5): either the result is under budget, or it
// equals the configured head.
func (m *Manager) Apply(ctx context.Context, turns []history.Turn, budget int) []history.Turn {
	if m.counter.CountMessages(turns) <= budget {
		return turns
	}

	head := lastN(turns, m.headSize)
	if m.counter.CountMessages(head) > budget {
		// Even the protected head doesn't fit: return it verbatim and let
		// the LLM client surface the resulting error (spec §4.4).
		return head
	}

	if reduced, ok := m.strategy.Apply(ctx, turns, budget); ok {
		return reduced
	}

	// Strategy failed (e.g. summarization call errored): fall back to
	// truncation-only, which never fails to terminate.
	reduced, _ := (TruncationStrategy{Counter: m.counter}).Apply(ctx, turns, budget)
	return reduced
}

func lastN(turns []history.Turn, n int) []history.Turn {
	if n >= len(turns) {
		out := make([]history.Turn, len(turns))
		copy(out, turns)
		return out
	}
	out := make([]history.Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}
