package replay

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
	"github.com/MikeSquared-Agency/parley/internal/session"
	"github.com/MikeSquared-Agency/parley/internal/strategy"
	"github.com/MikeSquared-Agency/parley/internal/transcript"
)

// Config holds the replay options.
type Config struct {
	SessionID    string
	Scenario     catalog.Scenario
	Sensitivity  float64
	Debounce     time.Duration
	WindowChunks int
	Seed         uint64
	Scenarios    catalog.Matrices
}

// Result is the outcome of a replay.
type Result struct {
	Summary         session.Summary
	State           session.State
	Classifications int
}

// Run folds lines through the session reducer. A classification pass runs
// wherever the next line is more than the debounce interval away, and at
// the end, which is where a live session's debounce timer would fire.
// The same input and seed always produce the same result.
func Run(lines []Line, cfg Config, logger *slog.Logger) (Result, error) {
	if len(lines) == 0 {
		return Result{}, fmt.Errorf("no transcript lines")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "replay"
	}
	if cfg.Scenario == "" {
		cfg.Scenario = catalog.ScenarioGeneral
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = session.DefaultDebounce
	}
	if cfg.WindowChunks <= 0 {
		cfg.WindowChunks = session.DefaultWindowChunks
	}
	sensitivity := classifier.ClampSensitivity(cfg.Sensitivity)

	opts := []classifier.Option{classifier.WithRand(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)))}
	if cfg.Scenarios != nil {
		opts = append(opts, classifier.WithScenarios(cfg.Scenarios))
	}
	cls := classifier.New(opts...)
	gate := strategy.NewGate()

	start := lines[0].Timestamp
	st, _ := session.Reduce(session.Initial(cfg.Scenario), session.StartSession{
		SessionID: cfg.SessionID,
		Scenario:  cfg.Scenario,
		At:        start,
	}, gate)

	res := Result{}
	for i, line := range lines {
		st, _ = session.Reduce(st, session.TranscriptChunk{
			ID:   fmt.Sprintf("chunk-%d", i),
			Text: line.Text,
			At:   line.Timestamp,
		}, gate)

		if i+1 < len(lines) && lines[i+1].Timestamp.Sub(line.Timestamp) <= cfg.Debounce {
			continue
		}

		fireAt := line.Timestamp.Add(cfg.Debounce)
		window := transcript.Segments(st.Chunks, cfg.WindowChunks)
		metrics := cognitive.Score(transcript.Samples(st.Chunks), fireAt.Sub(start))

		var patterns []classifier.DetectedPattern
		if p := cls.ClassifyWindow(window, cfg.Scenario, sensitivity); p != nil {
			patterns = append(patterns, *p)
			logger.Debug("pattern detected", "tactic", p.Tactic, "confidence", p.Confidence, "id", p.ID)
		}
		st, _ = session.Reduce(st, session.ClassificationResult{
			Patterns:   patterns,
			FocusScore: metrics.FocusScore,
			Metrics:    metrics,
			At:         fireAt,
		}, gate)
		res.Classifications++
	}

	end := lines[len(lines)-1].Timestamp.Add(cfg.Debounce)
	st, _ = session.Reduce(st, session.StopSession{At: end}, gate)

	res.State = st
	res.Summary = session.BuildSummary(st, end)
	logger.Info("replay finished",
		"lines", len(lines),
		"classifications", res.Classifications,
		"patterns", len(st.Patterns))
	return res, nil
}
