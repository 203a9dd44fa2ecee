package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/hermes"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

const persistTimeout = 30 * time.Second

type Publisher interface {
	Publish(subject string, data any) error
}

type SummaryWriter interface {
	WriteSessionSummary(ctx context.Context, sum session.Summary) error
}

type SummaryPoster interface {
	PostSessionSummary(ctx context.Context, sum session.Summary) (string, error)
}

// Ingester routes transcript text to a live session.
type Ingester interface {
	Ingest(id, text string, at time.Time) error
}

// Processor connects live sessions to the outside world: inbound transcript
// chunks from NATS, outbound snapshots and summaries to NATS, Postgres and
// Slack. It implements session.Sink.
type Processor struct {
	publisher Publisher
	store     SummaryWriter
	slack     SummaryPoster
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions Ingester

	wg sync.WaitGroup
}

// New builds a processor. Any of pub, st and sl may be nil.
func New(pub Publisher, st SummaryWriter, sl SummaryPoster, logger *slog.Logger) *Processor {
	return &Processor{
		publisher: pub,
		store:     st,
		slack:     sl,
		logger:    logger,
	}
}

// Attach sets the session router. The manager is built with the processor
// as its sink, so it is attached after construction.
func (p *Processor) Attach(sessions Ingester) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = sessions
}

// HandleTranscriptChunk is the NATS handler for parley.transcript.chunk.
func (p *Processor) HandleTranscriptChunk(subject string, data []byte) {
	var evt hermes.ChunkEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript chunk", "error", err)
		return
	}
	if evt.SessionID == "" {
		p.logger.Warn("transcript chunk without session id", "subject", subject)
		return
	}

	p.mu.RLock()
	sessions := p.sessions
	p.mu.RUnlock()
	if sessions == nil {
		p.logger.Warn("no session manager attached, dropping chunk", "session_id", evt.SessionID)
		return
	}

	err := sessions.Ingest(evt.SessionID, evt.Text, evt.Time())
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrNotRunning):
		p.logger.Debug("dropping chunk for inactive session", "session_id", evt.SessionID, "error", err)
	case err != nil:
		p.logger.Error("failed to ingest chunk", "session_id", evt.SessionID, "error", err)
	}
}

// OnStateChange publishes a compact snapshot. It runs under the session
// lock, so it only hands the message to the NATS client.
func (p *Processor) OnStateChange(st session.State) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(hermes.SubjectSessionState, stateEvent(st)); err != nil {
		p.logger.Warn("failed to publish session state", "session_id", st.SessionID, "error", err)
	}
}

// OnSessionFinalized publishes the summary and persists it in the
// background.
func (p *Processor) OnSessionFinalized(sum session.Summary) {
	if p.publisher != nil {
		if err := p.publisher.Publish(hermes.SubjectSessionFinalized, sum); err != nil {
			p.logger.Error("failed to publish session summary", "session_id", sum.SessionID, "error", err)
		}
	}
	if p.store == nil && p.slack == nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.persist(sum)
	}()
}

// Wait blocks until background persistence has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) persist(sum session.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if p.store != nil {
		if err := p.store.WriteSessionSummary(ctx, sum); err != nil {
			p.logger.Error("failed to store session summary", "session_id", sum.SessionID, "error", err)
		} else {
			p.logger.Info("session summary stored", "session_id", sum.SessionID, "patterns", len(sum.Patterns))
		}
	}

	if p.slack != nil {
		if _, err := p.slack.PostSessionSummary(ctx, sum); err != nil {
			p.logger.Error("slack post failed", "session_id", sum.SessionID, "error", err)
		}
	}
}

// stateEvent projects a session state onto the bus payload.
func stateEvent(st session.State) hermes.StateEvent {
	return hermes.StateEvent{
		SessionID:    st.SessionID,
		Status:       string(st.Status),
		Scenario:     string(st.Scenario),
		Tactic:       string(st.Tactic),
		Confidence:   st.Confidence,
		Suggestions:  st.Suggestions,
		FocusScore:   st.FocusScore,
		ElapsedMs:    st.Elapsed.Milliseconds(),
		ChunkCount:   len(st.Chunks),
		PatternCount: len(st.Patterns),
		Error:        st.Error,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}
