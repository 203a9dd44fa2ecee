package replay

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_Formats(t *testing.T) {
	input := strings.Join([]string{
		`{"text":"Hello there.","timestamp_ms":1772445600000}`,
		`{"text":"Second line.","timestamp":"2026-03-02T10:00:05Z"}`,
		`{"text":"No timestamp."}`,
		``,
		`not json`,
		`{"text":"   "}`,
	}, "\n")

	lines, skipped, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", skipped)
	}
	if !lines[0].Timestamp.Equal(time.UnixMilli(1772445600000)) {
		t.Errorf("line 0 timestamp %v", lines[0].Timestamp)
	}
	if !lines[1].Timestamp.Equal(time.Date(2026, 3, 2, 10, 0, 5, 0, time.UTC)) {
		t.Errorf("line 1 timestamp %v", lines[1].Timestamp)
	}
	if !lines[2].Timestamp.Equal(lines[1].Timestamp.Add(time.Second)) {
		t.Errorf("missing timestamp should follow the previous line, got %v", lines[2].Timestamp)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.jsonl")
	if err := os.WriteFile(path, []byte(`{"text":"Hello.","timestamp_ms":1000}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, _, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].Text != "Hello." {
		t.Errorf("unexpected lines %+v", lines)
	}

	if _, _, err := ParseFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func recording() []Line {
	return []Line{
		{Text: "Thanks for making the time today.", Timestamp: t0},
		{Text: "I need to check with my manager before making any decision.", Timestamp: t0.Add(5 * time.Second)},
		{Text: "Let me get back to you.", Timestamp: t0.Add(20 * time.Second)},
	}
}

func TestRun_OneObjectionCountedOnce(t *testing.T) {
	lines := []Line{
		{Text: "This is way too expensive for us.", Timestamp: t0.Add(time.Second)},
		{Text: "Okay.", Timestamp: t0.Add(3 * time.Second)},
		{Text: "Go on.", Timestamp: t0.Add(5 * time.Second)},
	}

	res, err := Run(lines, Config{Seed: 1}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.Classifications != 3 {
		t.Fatalf("classifications = %d, want 3", res.Classifications)
	}
	if res.Summary.ObjectionCount != 1 {
		t.Errorf("objections = %d, want 1", res.Summary.ObjectionCount)
	}
	if got := res.Summary.TacticCounts[catalog.BudgetObjection]; got != 1 {
		t.Errorf("budget objection count = %d, want 1", got)
	}
	flagged := 0
	for _, c := range res.State.Chunks {
		if c.HasPattern {
			flagged++
		}
	}
	if flagged != 1 || !res.State.Chunks[0].HasPattern {
		t.Errorf("flagged chunks = %d, want only the objection", flagged)
	}
}

func TestRun_DetectsTactics(t *testing.T) {
	res, err := Run(recording(), Config{Scenario: catalog.ScenarioSalesCall, Seed: 1}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if res.State.Status != session.StatusEnded {
		t.Errorf("expected ended state, got %s", res.State.Status)
	}
	if res.Classifications != 3 {
		t.Errorf("expected 3 classification passes, got %d", res.Classifications)
	}
	if res.Summary.TacticCounts[catalog.AuthorityPressure] == 0 {
		t.Errorf("expected authority pressure in %+v", res.Summary.TacticCounts)
	}
	if res.Summary.ChunkCount != 3 {
		t.Errorf("expected 3 chunks, got %d", res.Summary.ChunkCount)
	}
	if res.Summary.Duration != 20*time.Second+session.DefaultDebounce {
		t.Errorf("unexpected duration %v", res.Summary.Duration)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := Config{Scenario: catalog.ScenarioSalesCall, Seed: 42}
	a, err := Run(recording(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(recording(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two replays with the same seed differ")
	}
}

func TestRun_DebounceCoalesces(t *testing.T) {
	lines := []Line{
		{Text: "We usually offer", Timestamp: t0},
		{Text: "around 6 LPA", Timestamp: t0.Add(100 * time.Millisecond)},
		{Text: "for this position.", Timestamp: t0.Add(200 * time.Millisecond)},
	}
	res, err := Run(lines, Config{Scenario: catalog.ScenarioJobInterview}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.Classifications != 1 {
		t.Errorf("expected 1 classification pass, got %d", res.Classifications)
	}
	if len(res.State.Chunks) != 1 {
		t.Errorf("expected fragments merged into 1 chunk, got %d", len(res.State.Chunks))
	}
}

func TestRun_Empty(t *testing.T) {
	if _, err := Run(nil, Config{}, discardLogger()); err == nil {
		t.Error("expected error for empty transcript")
	}
}
