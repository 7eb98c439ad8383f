package events

import "testing"

func TestEncodeDecode_RoundTrips(t *testing.T) {
	cases := []Envelope{
		MessageAction{Action: Action{Event: Event{ID: 1, Source: SourceAgent, Type: KindMessageAction}}, Content: "hi"},
		CompleteAction{Action: Action{Event: Event{ID: 2, Source: SourceAgent, Type: KindCompleteAction}}, FinalAnswer: "done"},
		ToolCallAction{Action: Action{Event: Event{ID: 3, Source: SourceAgent, Type: KindToolCallAction}}, ToolName: "echo", ToolCallID: "c1"},
		UserMessageObservation{Observation: Observation{Event: Event{ID: 4, Source: SourceUser, Type: KindUserMessageObservation}, Content: "hello"}},
		ToolResultObservation{Observation: Observation{Event: Event{ID: 5, Source: SourceEnvironment, Type: KindToolResultObservation}, Content: "ok", Cause: 3}, Success: true, ToolName: "echo", ToolCallID: "c1"},
		ErrorObservation{Observation: Observation{Event: Event{ID: 6, Source: SourceEnvironment, Type: KindErrorObservation}}, ErrorKind: "Timeout"},
	}

	for _, original := range cases {
		raw, err := Encode(original)
		if err != nil {
			t.Fatalf("Encode(%T): %v", original, err)
		}

		decoded, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%T): %v", original, err)
		}

		if decoded.Kind() != original.Kind() {
			t.Errorf("Kind mismatch: got %s, want %s", decoded.Kind(), original.Kind())
		}
		if decoded.Base().ID != original.Base().ID {
			t.Errorf("ID mismatch: got %d, want %d", decoded.Base().ID, original.Base().ID)
		}
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"something_new","id":1}`))
	if err == nil {
		t.Fatal("expected an error decoding an unrecognized event type")
	}
}
