package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
	"github.com/MikeSquared-Agency/parley/internal/strategy"
	"github.com/MikeSquared-Agency/parley/internal/transcript"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotRunning        = errors.New("session is not running")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrEngineUnavailable = errors.New("transcription engine unavailable")
)

const (
	DefaultDebounce     = 300 * time.Millisecond
	DefaultTickInterval = time.Second
	DefaultWindowChunks = 3
)

// Classifier is the tactic detector a session runs on its transcript window.
type Classifier interface {
	ClassifyWindow(segs []classifier.Segment, scenario catalog.Scenario, sensitivity float64) *classifier.DetectedPattern
}

// Sink receives every state change and the final summary. Calls are made
// while the session lock is held, in order; implementations must not call
// back into the session.
type Sink interface {
	OnStateChange(State)
	OnSessionFinalized(Summary)
}

type noopSink struct{}

func (noopSink) OnStateChange(State)        {}
func (noopSink) OnSessionFinalized(Summary) {}

// Config tunes a session's runtime behaviour.
type Config struct {
	Debounce     time.Duration
	TickInterval time.Duration
	WindowChunks int
	Sensitivity  float64
	Scenario     catalog.Scenario
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.WindowChunks <= 0 {
		c.WindowChunks = DefaultWindowChunks
	}
	c.Sensitivity = classifier.ClampSensitivity(c.Sensitivity)
	if c.Scenario == "" {
		c.Scenario = catalog.ScenarioGeneral
	}
	return c
}

// Session is one live negotiation. All state transitions go through Reduce
// under mu. Work started for one run carries the generation it was started
// in and is discarded if the generation has moved on by the time it lands.
type Session struct {
	id         string
	cfg        Config
	classifier Classifier
	sink       Sink
	logger     *slog.Logger
	now        func() time.Time
	gate       *strategy.Gate

	mu         sync.Mutex
	state      State
	started    bool
	generation uint64
	debounce   *time.Timer
	tickStop   chan struct{}
	tickDone   chan struct{}
	inflight   sync.WaitGroup
}

// New builds an idle session. A nil sink discards events.
func New(id string, cfg Config, cls Classifier, sink Sink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = noopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	st := Initial(cfg.Scenario)
	st.SessionID = id
	return &Session{
		id:         id,
		cfg:        cfg,
		classifier: cls,
		sink:       sink,
		logger:     logger.With("session_id", id),
		now:        time.Now,
		gate:       strategy.NewGate(),
		state:      st,
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves the session to running and starts the duration tick. A
// session runs at most once.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.generation++
	s.apply(StartSession{SessionID: s.id, Scenario: s.cfg.Scenario, At: s.now()})

	s.tickStop = make(chan struct{})
	s.tickDone = make(chan struct{})
	go s.tickLoop(s.generation, s.tickStop, s.tickDone)

	s.logger.Info("session started", "scenario", s.cfg.Scenario, "sensitivity", s.cfg.Sensitivity)
	return nil
}

// Ingest appends a transcript fragment and re-arms the classification
// debounce. Blank text is ignored.
func (s *Session) Ingest(text string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != StatusRunning {
		return ErrNotRunning
	}
	if at.IsZero() {
		at = s.now()
	}
	if !s.apply(TranscriptChunk{ID: uuid.New().String(), Text: text, At: at}) {
		return nil
	}
	s.armDebounce()
	return nil
}

// SetAudioLevel records the latest input level for display.
func (s *Session) SetAudioLevel(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(TickAudioLevel{Level: level})
}

// ReportError surfaces a collaborator failure on the session state.
func (s *Session) ReportError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ErrorOccurred{Message: msg})
}

// Stop ends the session, emits the final summary and returns it. Pending
// classification and tick work is cancelled and waited for.
func (s *Session) Stop() (Summary, error) {
	s.mu.Lock()
	if s.state.Status != StatusRunning {
		s.mu.Unlock()
		return Summary{}, ErrNotRunning
	}
	s.halt()
	now := s.now()
	s.apply(StopSession{At: now})
	summary := BuildSummary(s.state, now)
	s.sink.OnSessionFinalized(summary)
	done := s.tickDone
	s.mu.Unlock()

	s.wait(done)
	s.logger.Info("session stopped",
		"duration", summary.Duration,
		"patterns", len(summary.Patterns),
		"focus_score", summary.FocusScore)
	return summary, nil
}

// Cancel discards the session without producing a summary.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Status != StatusRunning {
		s.mu.Unlock()
		return
	}
	s.halt()
	s.apply(Reset{})
	done := s.tickDone
	s.mu.Unlock()

	s.wait(done)
	s.logger.Info("session cancelled")
}

// apply runs ev through Reduce and emits on change. Emitted snapshots always
// carry the session id, including the idle one a Reset leaves behind.
// Caller holds mu.
func (s *Session) apply(ev Event) bool {
	next, changed := Reduce(s.state, ev, s.gate)
	if !changed {
		return false
	}
	next.SessionID = s.id
	s.state = next
	s.sink.OnStateChange(next)
	return true
}

// halt bumps the generation so in-flight results are dropped, and stops the
// timers. Caller holds mu.
func (s *Session) halt() {
	s.generation++
	if s.debounce != nil && s.debounce.Stop() {
		s.inflight.Done()
	}
	s.debounce = nil
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

func (s *Session) wait(tickDone chan struct{}) {
	if tickDone != nil {
		<-tickDone
	}
	s.inflight.Wait()
}

// armDebounce restarts the classification timer. Caller holds mu.
func (s *Session) armDebounce() {
	if s.debounce != nil && s.debounce.Stop() {
		s.inflight.Done()
	}
	gen := s.generation
	s.inflight.Add(1)
	s.debounce = time.AfterFunc(s.cfg.Debounce, func() {
		defer s.inflight.Done()
		s.classify(gen)
	})
}

func (s *Session) classify(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.state.Status != StatusRunning {
		s.mu.Unlock()
		return
	}
	chunks := s.state.Chunks
	scenario := s.state.Scenario
	started := s.state.StartedAt
	s.mu.Unlock()

	window := transcript.Segments(chunks, s.cfg.WindowChunks)
	now := s.now()
	metrics := cognitive.Score(transcript.Samples(chunks), now.Sub(started))

	var patterns []classifier.DetectedPattern
	if s.classifier != nil {
		if p := s.classifier.ClassifyWindow(window, scenario, s.cfg.Sensitivity); p != nil {
			patterns = append(patterns, *p)
		}
	}

	s.deliver(gen, ClassificationResult{
		Patterns:   patterns,
		FocusScore: metrics.FocusScore,
		Metrics:    metrics,
		At:         now,
	})
}

// deliver applies an asynchronous result if its generation is still current.
func (s *Session) deliver(gen uint64, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("dropping late result", "event", eventName(ev))
		return
	}
	s.apply(ev)
}

func (s *Session) tickLoop(gen uint64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(gen)
		}
	}
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state.Status != StatusRunning {
		return
	}
	elapsed := s.now().Sub(s.state.StartedAt)
	metrics := cognitive.Score(transcript.Samples(s.state.Chunks), elapsed)
	s.apply(TickDuration{Elapsed: elapsed, Metrics: &metrics})
}

func eventName(ev Event) string {
	switch ev.(type) {
	case ClassificationResult:
		return "classification_result"
	case TickDuration:
		return "tick_duration"
	default:
		return "event"
	}
}
