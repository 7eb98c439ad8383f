// Package events defines the immutable value types that flow through an
// agent session's event log: Actions emitted by the agent and Observations
// produced by the environment in response.
package events

import (
	"time"
)

// Source identifies who or what produced an Event.
type Source string

const (
	SourceUser        Source = "user"
	SourceAgent       Source = "agent"
	SourceEnvironment Source = "environment"
)

// Kind discriminates the concrete Action/Observation variant carried by an
// Event when it is serialized. Every Event's wire encoding carries exactly
// one Kind value in its "type" field.
type Kind string

const (
	KindMessageAction        Kind = "message_action"
	KindToolCallAction       Kind = "tool_call_action"
	KindCompleteAction       Kind = "complete_action"
	KindFileReadAction       Kind = "file_read_action"
	KindFileWriteAction      Kind = "file_write_action"
	KindFileEditAction       Kind = "file_edit_action"
	KindCmdRunAction         Kind = "cmd_run_action"
	KindIPythonRunCellAction Kind = "ipython_run_cell_action"
	KindBrowseURLAction      Kind = "browse_url_action"
	KindBrowseInteractive    Kind = "browse_interactive_action"
	KindMCPAction            Kind = "mcp_action"
	KindSystemMessageAction  Kind = "system_message_action"

	KindUserMessageObservation Kind = "user_message_observation"
	KindToolResultObservation  Kind = "tool_result_observation"
	KindFileReadObservation    Kind = "file_read_observation"
	KindFileWriteObservation   Kind = "file_write_observation"
	KindFileEditObservation    Kind = "file_edit_observation"
	KindCmdRunObservation      Kind = "cmd_run_observation"
	KindBrowseObservation      Kind = "browse_observation"
	KindErrorObservation       Kind = "error_observation"
)

// SecurityRisk classifies how dangerous a runnable Action is believed to be.
// It is advisory: the controller does not block on it, but tools and policy
// layers may use it to decide whether to request approval.
type SecurityRisk string

const (
	SecurityRiskUnknown SecurityRisk = "unknown"
	SecurityRiskLow     SecurityRisk = "low"
	SecurityRiskMedium  SecurityRisk = "medium"
	SecurityRiskHigh    SecurityRisk = "high"
)

// Event is the common envelope every Action and Observation embeds. Events
// are immutable once appended to a session's event log: id ordering within
// a session is total and strictly increasing (invariant 1 in spec §3.2).
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
	Type      Kind      `json:"type"`

	// Hidden marks an event that should not be surfaced to external
	// observers (logs/UI) even though it is part of the durable log.
	Hidden bool `json:"hidden,omitempty"`
}

// Envelope is implemented by every Action and Observation so that generic
// event-log code (the sink, the store, the projector) can operate over the
// base Event fields without knowing the concrete variant.
type Envelope interface {
	Base() Event
	Kind() Kind
}

// Sequencer hands out strictly increasing event ids for a single session.
// It is intentionally not safe for concurrent use across sessions sharing
// one instance; each session owns its own Sequencer, matching the
// single-cooperative-task-per-session scheduling model (spec §5).
type Sequencer struct {
	next int64
}

// NewSequencer returns a Sequencer starting at 1.
func NewSequencer() *Sequencer {
	return &Sequencer{next: 1}
}

// Next returns the next id and advances the counter.
func (s *Sequencer) Next() int64 {
	id := s.next
	s.next++
	return id
}
