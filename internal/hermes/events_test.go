package hermes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChunkEventParsing(t *testing.T) {
	raw := `{"session_id": "sess-001", "text": "We usually offer 6 LPA", "timestamp_ms": 1772445600000}`

	var evt ChunkEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("failed to parse ChunkEvent: %v", err)
	}

	if evt.SessionID != "sess-001" {
		t.Errorf("expected session_id 'sess-001', got '%s'", evt.SessionID)
	}
	if evt.Text != "We usually offer 6 LPA" {
		t.Errorf("unexpected text '%s'", evt.Text)
	}
	want := time.UnixMilli(1772445600000)
	if !evt.Time().Equal(want) {
		t.Errorf("expected time %v, got %v", want, evt.Time())
	}
}

func TestChunkEventMissingTimestamp(t *testing.T) {
	var evt ChunkEvent
	if err := json.Unmarshal([]byte(`{"session_id":"s","text":"hi"}`), &evt); err != nil {
		t.Fatal(err)
	}
	if !evt.Time().IsZero() {
		t.Errorf("expected zero time, got %v", evt.Time())
	}
}

func TestStateEventOmitsEmptyTactic(t *testing.T) {
	data, err := json.Marshal(StateEvent{SessionID: "s", Status: "running"})
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["tactic"]; ok {
		t.Error("tactic should be omitted when empty")
	}
	if fields["status"] != "running" {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestSubjectConstants(t *testing.T) {
	subjects := map[string]string{
		SubjectTranscriptChunk:  "parley.transcript.chunk",
		SubjectSessionState:     "parley.session.state",
		SubjectSessionFinalized: "parley.session.finalized",
		SubjectAgentRegistered:  "parley.agent.registered",
	}
	for got, want := range subjects {
		if got != want {
			t.Errorf("expected subject '%s', got '%s'", want, got)
		}
	}
}
