// Package session folds transcript chunks and classifier results into one
// coherent negotiation-session state.
//
// Reduce is the pure transition function. Session wraps it with the debounce
// timer, the duration tick and the generation guard that keeps late
// asynchronous results from touching a stopped session.
package session

import (
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
	"github.com/MikeSquared-Agency/parley/internal/strategy"
	"github.com/MikeSquared-Agency/parley/internal/transcript"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// State is the session aggregate. Slices inside a State are never mutated
// after the State is produced, so snapshots may share them.
type State struct {
	SessionID      string                       `json:"session_id"`
	Status         Status                       `json:"status"`
	Scenario       catalog.Scenario             `json:"scenario"`
	Chunks         []transcript.Chunk           `json:"chunks"`
	Patterns       []classifier.DetectedPattern `json:"patterns"`
	Tactic         catalog.Tactic               `json:"tactic,omitempty"`
	Confidence     int                          `json:"confidence"`
	Suggestions    []string                     `json:"suggestions"`
	ActiveStrategy *strategy.CounterStrategy    `json:"active_strategy,omitempty"`
	LastTacticAt   time.Time                    `json:"last_tactic_at"`
	StartedAt      time.Time                    `json:"started_at"`
	Elapsed        time.Duration                `json:"elapsed"`
	FocusScore     int                          `json:"focus_score"`
	Metrics        cognitive.Metrics            `json:"metrics"`
	AudioLevel     float64                      `json:"audio_level"`
	Error          string                       `json:"error,omitempty"`
}

// Initial returns the idle state for scenario.
func Initial(scenario catalog.Scenario) State {
	return State{
		Status:     StatusIdle,
		Scenario:   scenario,
		FocusScore: 100,
	}
}
