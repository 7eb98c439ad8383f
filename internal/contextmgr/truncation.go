package contextmgr

import (
	"context"

	"github.com/quietloop/aecore/internal/history"
)

// TruncationStrategy implements spec §4.4's truncation-only strategy: drop
// the oldest non-user turns first, then the oldest user turns, stopping as
// soon as the result is under budget. It never drops the most recent user
// turn, the most recent assistant response, or either half of a
// ToolCall/ToolResult pair without the other (cut only on pair
// boundaries).
type TruncationStrategy struct {
	Counter Counter
}

// Apply implements Strategy. It always succeeds (returns ok=true): plain
// truncation cannot fail the way an LLM-backed summarization call can. If
// Counter is nil, it falls back to dropping the oldest droppable group
// repeatedly without re-measuring, since no budget oracle is available —
// callers should always construct it via New with a real Counter.
func (s TruncationStrategy) Apply(_ context.Context, turns []history.Turn, budget int) ([]history.Turn, bool) {
	if len(turns) == 0 {
		return turns, true
	}

	groups := groupByPair(turns)
	protected := protectedGroups(groups)

	kept := make([]bool, len(groups))
	for i := range kept {
		kept[i] = true
	}

	underBudget := func() bool {
		if s.Counter == nil {
			return false
		}
		return s.Counter.CountMessages(flatten(groups, kept)) <= budget
	}

	drop := func(i int) bool {
		kept[i] = false
		return underBudget()
	}

	// Pass 1: drop oldest non-user groups first.
	for i, g := range groups {
		if underBudget() {
			break
		}
		if !kept[i] || protected[i] || g.role == history.RoleUser {
			continue
		}
		if drop(i) {
			return flatten(groups, kept), true
		}
	}

	// Pass 2: drop oldest user groups.
	for i, g := range groups {
		if underBudget() {
			break
		}
		if !kept[i] || protected[i] || g.role != history.RoleUser {
			continue
		}
		if drop(i) {
			return flatten(groups, kept), true
		}
	}

	return flatten(groups, kept), true
}

// turnGroup is one or more turns that must be dropped together: an
// assistant turn carrying ToolCall blocks is grouped with every later turn
// that resolves one of those calls, so truncation only ever cuts on a pair
// boundary.
type turnGroup struct {
	turns []history.Turn
	role  history.Role
}

func groupByPair(turns []history.Turn) []turnGroup {
	groups := make([]turnGroup, 0, len(turns))
	consumed := make([]bool, len(turns))

	for i, t := range turns {
		if consumed[i] {
			continue
		}
		g := turnGroup{turns: []history.Turn{t}, role: t.Role}
		consumed[i] = true

		ids := t.toolCallIDs()
		if len(ids) > 0 {
			for j := i + 1; j < len(turns); j++ {
				if consumed[j] {
					continue
				}
				if sharesID(ids, turns[j].toolResultIDs()) {
					g.turns = append(g.turns, turns[j])
					consumed[j] = true
				}
			}
		}

		groups = append(groups, g)
	}

	return groups
}

func sharesID(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// protectedGroups marks the group containing the most recent user turn and
// the group containing the most recent assistant turn as undroppable.
func protectedGroups(groups []turnGroup) []bool {
	protected := make([]bool, len(groups))
	lastUser, lastAssistant := -1, -1
	for i, g := range groups {
		for _, t := range g.turns {
			if t.Role == history.RoleUser {
				lastUser = i
			}
			if t.Role == history.RoleAssistant {
				lastAssistant = i
			}
		}
	}
	if lastUser >= 0 {
		protected[lastUser] = true
	}
	if lastAssistant >= 0 {
		protected[lastAssistant] = true
	}
	return protected
}

func flatten(groups []turnGroup, kept []bool) []history.Turn {
	var out []history.Turn
	for i, g := range groups {
		if !kept[i] {
			continue
		}
		out = append(out, g.turns...)
	}
	return out
}
