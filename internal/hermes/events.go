package hermes

import "time"

const (
	// SubjectTranscriptChunk carries transcribed speech into a live session.
	SubjectTranscriptChunk = "parley.transcript.chunk"
	// SubjectSessionState carries a snapshot after every state change.
	SubjectSessionState = "parley.session.state"
	// SubjectSessionFinalized carries the summary of a stopped session.
	SubjectSessionFinalized = "parley.session.finalized"
	// SubjectAgentRegistered announces the service on startup.
	SubjectAgentRegistered = "parley.agent.registered"
)

// ChunkEvent is one fragment of transcribed speech for a session.
type ChunkEvent struct {
	SessionID   string `json:"session_id"`
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`
}

// Time returns the chunk timestamp, or the zero time when none was sent.
func (e ChunkEvent) Time() time.Time {
	if e.TimestampMs <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.TimestampMs)
}

// StateEvent is the compact session snapshot published on every change.
type StateEvent struct {
	SessionID    string   `json:"session_id"`
	Status       string   `json:"status"`
	Scenario     string   `json:"scenario"`
	Tactic       string   `json:"tactic,omitempty"`
	Confidence   int      `json:"confidence"`
	Suggestions  []string `json:"suggestions,omitempty"`
	FocusScore   int      `json:"focus_score"`
	ElapsedMs    int64    `json:"elapsed_ms"`
	ChunkCount   int      `json:"chunk_count"`
	PatternCount int      `json:"pattern_count"`
	Error        string   `json:"error,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

// RegisteredEvent is published once the service is ready.
type RegisteredEvent struct {
	Timestamp string   `json:"timestamp"`
	Port      string   `json:"port"`
	Scenarios []string `json:"scenarios"`
}
