package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
	"github.com/MikeSquared-Agency/parley/internal/strategy"
)

const (
	maxMoments     = 3
	maxSuggestions = 3
	maxInsights    = 4
)

// Summary is the post-session report produced when a session stops.
type Summary struct {
	SessionID           string                       `json:"session_id"`
	Scenario            catalog.Scenario             `json:"scenario"`
	StartedAt           time.Time                    `json:"started_at"`
	EndedAt             time.Time                    `json:"ended_at"`
	Duration            time.Duration                `json:"duration"`
	FocusScore          int                          `json:"focus_score"`
	Metrics             cognitive.Metrics            `json:"metrics"`
	ChunkCount          int                          `json:"chunk_count"`
	Patterns            []classifier.DetectedPattern `json:"patterns"`
	TacticCounts        map[catalog.Tactic]int       `json:"tactic_counts"`
	LeverageMoments     []classifier.DetectedPattern `json:"leverage_moments"`
	MissedOpportunities []classifier.DetectedPattern `json:"missed_opportunities"`
	ObjectionCount      int                          `json:"objection_count"`
	PositiveSignalCount int                          `json:"positive_signal_count"`
	TacticalSuggestions []string                     `json:"tactical_suggestions"`
	KeyInsights         []string                     `json:"key_insights"`
}

var (
	objectionTactics = []catalog.Tactic{catalog.BudgetObjection, catalog.NegativeSignal}
	leverageTactics  = []catalog.Tactic{catalog.PositiveSignal, catalog.CommitmentLanguage}
	missedTactics    = []catalog.Tactic{catalog.Deflection, catalog.NegativeSignal}
)

// BuildSummary derives the report from a final state. st.Patterns is
// expected in confidence order, which Reduce maintains.
func BuildSummary(st State, endedAt time.Time) Summary {
	counts := make(map[catalog.Tactic]int)
	for _, p := range st.Patterns {
		counts[p.Tactic]++
	}

	s := Summary{
		SessionID:           st.SessionID,
		Scenario:            st.Scenario,
		StartedAt:           st.StartedAt,
		EndedAt:             endedAt,
		Duration:            st.Elapsed,
		FocusScore:          st.FocusScore,
		Metrics:             st.Metrics,
		ChunkCount:          len(st.Chunks),
		Patterns:            st.Patterns,
		TacticCounts:        counts,
		LeverageMoments:     topOf(st.Patterns, leverageTactics, maxMoments),
		MissedOpportunities: topOf(st.Patterns, missedTactics, maxMoments),
		ObjectionCount:      sumCounts(counts, objectionTactics),
		PositiveSignalCount: counts[catalog.PositiveSignal],
	}
	s.TacticalSuggestions = tacticalSuggestions(counts)
	s.KeyInsights = keyInsights(s, counts)
	return s
}

func topOf(patterns []classifier.DetectedPattern, tactics []catalog.Tactic, n int) []classifier.DetectedPattern {
	out := []classifier.DetectedPattern{}
	for _, p := range patterns {
		if len(out) == n {
			break
		}
		if contains(tactics, p.Tactic) {
			out = append(out, p)
		}
	}
	return out
}

func sumCounts(counts map[catalog.Tactic]int, tactics []catalog.Tactic) int {
	n := 0
	for _, t := range tactics {
		n += counts[t]
	}
	return n
}

// rankTactics orders detected tactics by count, ties in catalog order.
func rankTactics(counts map[catalog.Tactic]int) []catalog.Tactic {
	var ranked []catalog.Tactic
	for _, t := range catalog.All() {
		if counts[t] > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	return ranked
}

func tacticalSuggestions(counts map[catalog.Tactic]int) []string {
	out := []string{}
	for _, t := range rankTactics(counts) {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, strategy.Lookup(t).Suggestions[0])
	}
	return out
}

func keyInsights(s Summary, counts map[catalog.Tactic]int) []string {
	var out []string
	add := func(format string, args ...any) {
		if len(out) < maxInsights {
			out = append(out, fmt.Sprintf(format, args...))
		}
	}

	if len(s.Patterns) == 0 {
		add("No negotiation tactics were detected in this session.")
	}

	switch {
	case s.PositiveSignalCount > s.ObjectionCount:
		add("Positive signals outnumbered objections (%d vs %d).", s.PositiveSignalCount, s.ObjectionCount)
	case s.ObjectionCount > s.PositiveSignalCount:
		add("Objections outnumbered positive signals (%d vs %d). Lead with value earlier next time.", s.ObjectionCount, s.PositiveSignalCount)
	}

	if counts[catalog.Anchoring] > 0 {
		add("The other side anchored on a number. Prepare a counter-anchor before the next round.")
	}

	switch {
	case s.FocusScore >= 80:
		add("Your delivery stayed focused (focus score %d).", s.FocusScore)
	case s.FocusScore < 50:
		add("Pauses and filler words pulled your focus score down to %d.", s.FocusScore)
	}

	if ranked := rankTactics(counts); len(ranked) > 0 {
		top := ranked[0]
		add("%s was the most frequent tactic (%d detections).", catalog.Lookup(top).Name, counts[top])
	}

	if counts[catalog.CommitmentLanguage] > 0 {
		add("Commitment language came up. Confirm the agreed terms in writing.")
	}

	if out == nil {
		out = []string{}
	}
	return out
}

func contains(ts []catalog.Tactic, t catalog.Tactic) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}
