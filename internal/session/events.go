package session

import (
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
)

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

type StartSession struct {
	SessionID string
	Scenario  catalog.Scenario
	At        time.Time
}

type StopSession struct {
	At time.Time
}

type TranscriptChunk struct {
	ID   string
	Text string
	At   time.Time
}

// ClassificationResult carries one classification pass. Patterns holds at
// most one entry from the winner-take-all classifier, but any number is
// accepted.
type ClassificationResult struct {
	Patterns   []classifier.DetectedPattern
	FocusScore int
	Metrics    cognitive.Metrics
	At         time.Time
}

type TickDuration struct {
	Elapsed time.Duration
	Metrics *cognitive.Metrics
}

type TickAudioLevel struct {
	Level float64
}

type ErrorOccurred struct {
	Message string
}

type Reset struct{}

func (StartSession) isEvent()         {}
func (StopSession) isEvent()          {}
func (TranscriptChunk) isEvent()      {}
func (ClassificationResult) isEvent() {}
func (TickDuration) isEvent()         {}
func (TickAudioLevel) isEvent()       {}
func (ErrorOccurred) isEvent()        {}
func (Reset) isEvent()                {}
