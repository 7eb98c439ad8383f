// Package session defines Session, the shared value type describing a
// single agent conversation's durable identity: its id, workspace
// binding, and creation metadata. The reconstructable, checkpointed
// progress of a session (its event log and agent state) lives in
// internal/eventbus.StateSnapshot and internal/controller.State instead —
// this package only carries what identifies a session, not what it's
// doing.
package session

import "time"

// Session is the durable identity a State is bound to: a stable id, the
// filesystem root tools are chrooted to, and creation metadata. Session
// itself carries no behavior; it is a value record persisted by the
// session store (C8).
type Session struct {
	ID            string
	WorkspaceRoot string
	CreatedAt     time.Time
}

// Key mirrors the teacher's SessionKey helper: a stable string usable as a
// map/store key, kept distinct from ID in case callers namespace sessions
// by more than one dimension in the future.
func (s Session) Key() string {
	return s.ID
}
