package session

import (
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/strategy"
	"github.com/MikeSquared-Agency/parley/internal/transcript"
)

const (
	// AcceptThreshold is the confidence a new pattern needs to replace the
	// active strategy.
	AcceptThreshold = 70

	// TacticCooldown suppresses re-acceptance of the current tactic.
	TacticCooldown = 8 * time.Second
)

// Reduce applies ev to st and reports whether anything changed. The input
// state is never modified. gate is the session's cooldown tracker; it is
// consulted when a classification result is accepted and cleared on start
// and reset.
//
// Only StartSession (from idle) and Reset are accepted outside the running
// status. Everything else delivered to an idle or ended session is a no-op.
func Reduce(st State, ev Event, gate *strategy.Gate) (State, bool) {
	switch e := ev.(type) {
	case StartSession:
		if st.Status != StatusIdle {
			return st, false
		}
		if gate != nil {
			gate.ResetAll()
		}
		scenario := e.Scenario
		if scenario == "" {
			scenario = st.Scenario
		}
		next := Initial(scenario)
		next.SessionID = e.SessionID
		next.Status = StatusRunning
		next.StartedAt = e.At
		return next, true

	case Reset:
		if gate != nil {
			gate.ResetAll()
		}
		return Initial(st.Scenario), true
	}

	if st.Status != StatusRunning {
		return st, false
	}

	switch e := ev.(type) {
	case StopSession:
		st.Status = StatusEnded
		if !e.At.IsZero() && !st.StartedAt.IsZero() {
			st.Elapsed = e.At.Sub(st.StartedAt)
		}
		return st, true

	case TranscriptChunk:
		if strings.TrimSpace(e.Text) == "" {
			return st, false
		}
		st.Chunks = transcript.Append(st.Chunks, e.ID, e.Text, e.At)
		return st, true

	case ClassificationResult:
		return applyClassification(st, e, gate), true

	case TickDuration:
		st.Elapsed = e.Elapsed
		if e.Metrics != nil {
			st.Metrics = *e.Metrics
			st.FocusScore = e.Metrics.FocusScore
		}
		return st, true

	case TickAudioLevel:
		if e.Level == st.AudioLevel {
			return st, false
		}
		st.AudioLevel = e.Level
		return st, true

	case ErrorOccurred:
		st.Error = e.Message
		return st, true
	}

	return st, false
}

func applyClassification(st State, e ClassificationResult, gate *strategy.Gate) State {
	st.FocusScore = e.FocusScore
	st.Metrics = e.Metrics

	seen := make(map[string]struct{}, len(st.Patterns))
	for _, p := range st.Patterns {
		seen[p.ID] = struct{}{}
	}
	var fresh []classifier.DetectedPattern
	for _, p := range e.Patterns {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return st
	}

	patterns := make([]classifier.DetectedPattern, 0, len(st.Patterns)+len(fresh))
	patterns = append(patterns, st.Patterns...)
	patterns = append(patterns, fresh...)
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Confidence > patterns[j].Confidence
	})
	st.Patterns = patterns
	st.Chunks = flagChunks(st.Chunks, fresh)

	top := fresh[0]
	for _, p := range fresh[1:] {
		if p.Confidence > top.Confidence {
			top = p
		}
	}
	if top.Confidence < AcceptThreshold {
		return st
	}
	if st.Tactic == top.Tactic && !st.LastTacticAt.IsZero() && e.At.Sub(st.LastTacticAt) < TacticCooldown {
		return st
	}
	if gate == nil {
		return st
	}
	cs := gate.Generate(top.Tactic, top.Confidence, e.At,
		strategy.WithCooldown(TacticCooldown),
		strategy.WithThreshold(AcceptThreshold))
	if cs == nil {
		return st
	}

	st.Tactic = top.Tactic
	st.Confidence = top.Confidence
	st.Suggestions = cs.Suggestions
	st.ActiveStrategy = cs
	st.LastTacticAt = e.At
	return st
}

// flagChunks marks the chunks a new pattern drew its evidence from.
func flagChunks(chunks []transcript.Chunk, fresh []classifier.DetectedPattern) []transcript.Chunk {
	ids := make(map[string]struct{})
	for _, p := range fresh {
		for _, id := range p.ChunkIDs {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return chunks
	}

	var out []transcript.Chunk
	for i, c := range chunks {
		if c.HasPattern {
			continue
		}
		if _, ok := ids[c.ID]; !ok {
			continue
		}
		if out == nil {
			out = make([]transcript.Chunk, len(chunks))
			copy(out, chunks)
		}
		out[i].HasPattern = true
	}
	if out == nil {
		return chunks
	}
	return out
}
