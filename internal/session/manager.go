package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
)

// Settings are the persisted user preferences applied to new sessions.
type Settings struct {
	Sensitivity float64          `json:"sensitivity"`
	Scenario    catalog.Scenario `json:"scenario"`
}

// SettingsProvider loads the current settings.
type SettingsProvider interface {
	GetSettings(ctx context.Context) (Settings, error)
}

// Transcriber is the speech-to-text engine feeding a session. Text reaches
// the session through Manager.Ingest.
type Transcriber interface {
	Start(ctx context.Context, sessionID string) error
	Stop(sessionID string) error
}

// StartOptions override settings for one session. Zero values fall back to
// the provider, then to the manager defaults.
type StartOptions struct {
	Scenario    catalog.Scenario
	Sensitivity float64
}

// Manager owns the live sessions.
type Manager struct {
	defaults    Config
	classifier  Classifier
	sink        Sink
	settings    SettingsProvider
	transcriber Transcriber
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerOption func(*Manager)

func WithSettings(p SettingsProvider) ManagerOption {
	return func(m *Manager) { m.settings = p }
}

func WithTranscriber(t Transcriber) ManagerOption {
	return func(m *Manager) { m.transcriber = t }
}

// WithDefaults sets the runtime config new sessions start from.
func WithDefaults(cfg Config) ManagerOption {
	return func(m *Manager) { m.defaults = cfg }
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(cls Classifier, sink Sink, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		classifier: cls,
		sink:       sink,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates and starts a new session.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	cfg := m.defaults
	if m.settings != nil {
		st, err := m.settings.GetSettings(ctx)
		if err != nil {
			m.logger.Warn("failed to load settings, using defaults", "error", err)
		} else {
			if st.Scenario != "" {
				cfg.Scenario = st.Scenario
			}
			if st.Sensitivity > 0 {
				cfg.Sensitivity = st.Sensitivity
			}
		}
	}
	if opts.Scenario != "" {
		cfg.Scenario = opts.Scenario
	}
	if opts.Sensitivity > 0 {
		cfg.Sensitivity = opts.Sensitivity
	}

	id := uuid.New().String()
	if m.transcriber != nil {
		if err := m.transcriber.Start(ctx, id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
		}
	}

	s := New(id, cfg, m.classifier, m.sink, m.logger)
	s.now = m.now
	if err := s.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the ids of the live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ingest feeds text into session id.
func (m *Manager) Ingest(id, text string, at time.Time) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Ingest(text, at)
}

// Stop ends session id and returns its summary.
func (m *Manager) Stop(id string) (Summary, error) {
	s, err := m.take(id)
	if err != nil {
		return Summary{}, err
	}
	m.stopTranscriber(id)
	return s.Stop()
}

// Cancel discards session id without a summary.
func (m *Manager) Cancel(id string) error {
	s, err := m.take(id)
	if err != nil {
		return err
	}
	m.stopTranscriber(id)
	s.Cancel()
	return nil
}

// Shutdown stops every live session so their summaries are still emitted.
func (m *Manager) Shutdown() {
	for _, id := range m.List() {
		if _, err := m.Stop(id); err != nil {
			m.logger.Warn("failed to stop session on shutdown", "session_id", id, "error", err)
		}
	}
}

func (m *Manager) take(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *Manager) stopTranscriber(id string) {
	if m.transcriber == nil {
		return
	}
	if err := m.transcriber.Stop(id); err != nil {
		m.logger.Warn("failed to stop transcriber", "session_id", id, "error", err)
	}
}
