package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/hermes"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	written []session.Summary
	err     error
}

func (f *fakeStore) WriteSessionSummary(_ context.Context, sum session.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, sum)
	return f.err
}

type fakePoster struct {
	mu     sync.Mutex
	posted int
}

func (f *fakePoster) PostSessionSummary(context.Context, session.Summary) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted++
	return "ts", nil
}

type ingestCall struct {
	id, text string
	at       time.Time
}

type fakeIngester struct {
	calls []ingestCall
	err   error
}

func (f *fakeIngester) Ingest(id, text string, at time.Time) error {
	f.calls = append(f.calls, ingestCall{id, text, at})
	return f.err
}

func TestHandleTranscriptChunk(t *testing.T) {
	ing := &fakeIngester{}
	p := New(nil, nil, nil, discardLogger())
	p.Attach(ing)

	p.HandleTranscriptChunk(hermes.SubjectTranscriptChunk,
		[]byte(`{"session_id":"s1","text":"We usually offer 6 LPA","timestamp_ms":1772445600000}`))

	if len(ing.calls) != 1 {
		t.Fatalf("expected 1 ingest, got %d", len(ing.calls))
	}
	c := ing.calls[0]
	if c.id != "s1" || c.text != "We usually offer 6 LPA" || !c.at.Equal(time.UnixMilli(1772445600000)) {
		t.Errorf("unexpected ingest %+v", c)
	}
}

func TestHandleTranscriptChunk_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{not json`},
		{"missing session", `{"text":"hello"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{}
			p := New(nil, nil, nil, discardLogger())
			p.Attach(ing)

			p.HandleTranscriptChunk(hermes.SubjectTranscriptChunk, []byte(tt.data))

			if len(ing.calls) != 0 {
				t.Errorf("expected no ingest, got %d", len(ing.calls))
			}
		})
	}
}

func TestHandleTranscriptChunk_UnknownSessionIsQuiet(t *testing.T) {
	ing := &fakeIngester{err: session.ErrSessionNotFound}
	p := New(nil, nil, nil, discardLogger())
	p.Attach(ing)

	// Must not panic or block.
	p.HandleTranscriptChunk(hermes.SubjectTranscriptChunk, []byte(`{"session_id":"gone","text":"hi"}`))
}

func TestHandleTranscriptChunk_NoManager(t *testing.T) {
	p := New(nil, nil, nil, discardLogger())
	p.HandleTranscriptChunk(hermes.SubjectTranscriptChunk, []byte(`{"session_id":"s1","text":"hi"}`))
}

func TestOnStateChange_PublishesSnapshot(t *testing.T) {
	pub := &fakePublisher{}
	p := New(pub, nil, nil, discardLogger())

	st := session.Initial(catalog.ScenarioSalesCall)
	st.SessionID = "s1"
	st.Status = session.StatusRunning
	st.Tactic = catalog.Anchoring
	st.Confidence = 82
	st.Elapsed = 1500 * time.Millisecond

	p.OnStateChange(st)

	if len(pub.msgs) != 1 || pub.msgs[0].subject != hermes.SubjectSessionState {
		t.Fatalf("unexpected publishes %+v", pub.msgs)
	}
	evt, ok := pub.msgs[0].data.(hermes.StateEvent)
	if !ok {
		t.Fatalf("payload type %T", pub.msgs[0].data)
	}
	if evt.SessionID != "s1" || evt.Status != "running" || evt.Tactic != "anchoring" || evt.ElapsedMs != 1500 {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestOnSessionFinalized_FansOut(t *testing.T) {
	pub := &fakePublisher{}
	st := &fakeStore{}
	sl := &fakePoster{}
	p := New(pub, st, sl, discardLogger())

	p.OnSessionFinalized(session.Summary{SessionID: "s1"})
	p.Wait()

	if len(pub.msgs) != 1 || pub.msgs[0].subject != hermes.SubjectSessionFinalized {
		t.Errorf("unexpected publishes %+v", pub.msgs)
	}
	if len(st.written) != 1 || st.written[0].SessionID != "s1" {
		t.Errorf("store writes %+v", st.written)
	}
	if sl.posted != 1 {
		t.Errorf("slack posts %d", sl.posted)
	}
}

func TestOnSessionFinalized_StoreErrorStillPostsSlack(t *testing.T) {
	st := &fakeStore{err: errors.New("db down")}
	sl := &fakePoster{}
	p := New(nil, st, sl, discardLogger())

	p.OnSessionFinalized(session.Summary{SessionID: "s1"})
	p.Wait()

	if sl.posted != 1 {
		t.Errorf("slack should still be posted after a store failure")
	}
}
