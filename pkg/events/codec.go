package events

import (
	"encoding/json"
	"fmt"
)

// kindProbe extracts only the discriminator field from a raw encoded
// Event, matching the wire format of spec §6.3 ("every emitted event is a
// JSON object with ... type (one of the variants in §3)").
type kindProbe struct {
	Type Kind `json:"type"`
}

// Encode serializes ev to its stable tagged JSON form (spec §4.1). Every
// concrete variant already embeds Event, so its "type" discriminator and
// common fields round-trip without any extra bookkeeping here.
func Encode(ev Envelope) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses raw into the concrete Envelope variant named by its "type"
// field. Unrecognized type values are returned as an error rather than
// silently coerced, since a forward-incompatible event should be surfaced
// to the caller (durable writer or remote consumer) to decide how to
// handle it, not misinterpreted as a different variant (spec §6.3 notes
// clients should be forward-compatible with new types, which for this
// store means "reject cleanly", not "guess").
func Decode(raw []byte) (Envelope, error) {
	var probe kindProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("events: decode discriminator: %w", err)
	}

	var target Envelope
	switch probe.Type {
	case KindMessageAction:
		target = &MessageAction{}
	case KindSystemMessageAction:
		target = &SystemMessageAction{}
	case KindToolCallAction:
		target = &ToolCallAction{}
	case KindCompleteAction:
		target = &CompleteAction{}
	case KindFileReadAction:
		target = &FileReadAction{}
	case KindFileWriteAction:
		target = &FileWriteAction{}
	case KindFileEditAction:
		target = &FileEditAction{}
	case KindCmdRunAction:
		target = &CmdRunAction{}
	case KindIPythonRunCellAction:
		target = &IPythonRunCellAction{}
	case KindBrowseURLAction:
		target = &BrowseURLAction{}
	case KindBrowseInteractive:
		target = &BrowseInteractiveAction{}
	case KindMCPAction:
		target = &MCPAction{}
	case KindUserMessageObservation:
		target = &UserMessageObservation{}
	case KindToolResultObservation:
		target = &ToolResultObservation{}
	case KindFileReadObservation:
		target = &FileReadObservation{}
	case KindFileWriteObservation:
		target = &FileWriteObservation{}
	case KindFileEditObservation:
		target = &FileEditObservation{}
	case KindCmdRunObservation:
		target = &CmdRunObservation{}
	case KindBrowseObservation:
		target = &BrowseObservation{}
	case KindErrorObservation:
		target = &ErrorObservation{}
	default:
		return nil, fmt.Errorf("events: unknown event type %q", probe.Type)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("events: decode %s: %w", probe.Type, err)
	}
	return dereference(target), nil
}

// dereference returns the pointed-to value for every Envelope variant
// Decode allocates, so callers receive the same value kinds (not
// pointers) that the rest of the codebase (history, controller) works
// with.
func dereference(target Envelope) Envelope {
	switch v := target.(type) {
	case *MessageAction:
		return *v
	case *SystemMessageAction:
		return *v
	case *ToolCallAction:
		return *v
	case *CompleteAction:
		return *v
	case *FileReadAction:
		return *v
	case *FileWriteAction:
		return *v
	case *FileEditAction:
		return *v
	case *CmdRunAction:
		return *v
	case *IPythonRunCellAction:
		return *v
	case *BrowseURLAction:
		return *v
	case *BrowseInteractiveAction:
		return *v
	case *MCPAction:
		return *v
	case *UserMessageObservation:
		return *v
	case *ToolResultObservation:
		return *v
	case *FileReadObservation:
		return *v
	case *FileWriteObservation:
		return *v
	case *FileEditObservation:
		return *v
	case *CmdRunObservation:
		return *v
	case *BrowseObservation:
		return *v
	case *ErrorObservation:
		return *v
	default:
		return target
	}
}
