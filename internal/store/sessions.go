package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/session"
)

// WriteSessionSummary persists a finished session and its detections in one
// transaction. Writing the same session twice replaces the earlier row.
func (s *Store) WriteSessionSummary(ctx context.Context, sum session.Summary) error {
	metrics, err := json.Marshal(sum.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Upsert session
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, scenario, started_at, ended_at, duration_ms, focus_score, chunk_count,
			objection_count, positive_signal_count, tactical_suggestions, key_insights, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			duration_ms = EXCLUDED.duration_ms,
			focus_score = EXCLUDED.focus_score,
			chunk_count = EXCLUDED.chunk_count,
			objection_count = EXCLUDED.objection_count,
			positive_signal_count = EXCLUDED.positive_signal_count,
			tactical_suggestions = EXCLUDED.tactical_suggestions,
			key_insights = EXCLUDED.key_insights,
			metrics = EXCLUDED.metrics`,
		sum.SessionID, string(sum.Scenario), sum.StartedAt, sum.EndedAt, sum.Duration.Milliseconds(),
		sum.FocusScore, sum.ChunkCount, sum.ObjectionCount, sum.PositiveSignalCount,
		nonNil(sum.TacticalSuggestions), nonNil(sum.KeyInsights), string(metrics),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	// 2. Replace detections
	if _, err := tx.Exec(ctx, `DELETE FROM session_detections WHERE session_id = $1`, sum.SessionID); err != nil {
		return fmt.Errorf("clear detections: %w", err)
	}
	for _, p := range sum.Patterns {
		_, err = tx.Exec(ctx, `
			INSERT INTO session_detections (id, session_id, pattern_id, tactic, confidence, severity, suggestion, matched_context, detected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), sum.SessionID, p.ID, string(p.Tactic), p.Confidence, string(p.Severity),
			p.Suggestion, p.MatchedContext, p.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type SessionRow struct {
	ID                  string
	Scenario            string
	StartedAt           time.Time
	EndedAt             time.Time
	DurationMs          int64
	FocusScore          int
	ChunkCount          int
	ObjectionCount      int
	PositiveSignalCount int
	TacticalSuggestions []string
	KeyInsights         []string
}

type DetectionRow struct {
	PatternID      string
	Tactic         string
	Confidence     int
	Severity       string
	Suggestion     string
	MatchedContext string
	DetectedAt     time.Time
}

// GetSession fetches a stored session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, scenario, started_at, ended_at, duration_ms, focus_score, chunk_count,
			objection_count, positive_signal_count, tactical_suggestions, key_insights
		FROM sessions WHERE id = $1`, id)

	var r SessionRow
	err := row.Scan(&r.ID, &r.Scenario, &r.StartedAt, &r.EndedAt, &r.DurationMs, &r.FocusScore, &r.ChunkCount,
		&r.ObjectionCount, &r.PositiveSignalCount, &r.TacticalSuggestions, &r.KeyInsights)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListDetections returns a session's detections, highest confidence first.
func (s *Store) ListDetections(ctx context.Context, sessionID string) ([]DetectionRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pattern_id, tactic, confidence, severity, suggestion, matched_context, detected_at
		FROM session_detections
		WHERE session_id = $1
		ORDER BY confidence DESC, detected_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []DetectionRow
	for rows.Next() {
		var d DetectionRow
		if err := rows.Scan(&d.PatternID, &d.Tactic, &d.Confidence, &d.Severity, &d.Suggestion, &d.MatchedContext, &d.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
