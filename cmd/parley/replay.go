package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/replay"
)

var replayFlags struct {
	scenario     string
	sensitivity  float64
	debounceMs   int
	window       int
	seed         uint64
	scenarioFile string
	logLevel     string
}

var replayCmd = &cobra.Command{
	Use:   "replay <transcript.jsonl>",
	Short: "Run a recorded transcript offline and print the session summary",
	Long: `Reads a JSONL transcript, one {"text": ..., "timestamp_ms": ...} object per
line (or an RFC3339 "timestamp"), runs it through the classifier and session
reducer, and prints the resulting summary as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayFlags.scenario, "scenario", string(catalog.ScenarioGeneral), "Negotiation scenario")
	f.Float64Var(&replayFlags.sensitivity, "sensitivity", 1.0, "Classifier sensitivity (0.5-1.5)")
	f.IntVar(&replayFlags.debounceMs, "debounce-ms", 300, "Simulated classification debounce")
	f.IntVar(&replayFlags.window, "window", 3, "Chunks per classification window")
	f.Uint64Var(&replayFlags.seed, "seed", 1, "Seed for suggestion selection")
	f.StringVar(&replayFlags.scenarioFile, "scenario-file", "", "YAML file overriding the scenario matrices (default $PARLEY_SCENARIO_FILE)")
	f.StringVar(&replayFlags.logLevel, "log-level", "warn", "Log level")
}

func runReplay(cmd *cobra.Command, args []string) error {
	setupLogging(replayFlags.logLevel)

	matrices, err := loadMatrices(scenarioFileOrEnv(replayFlags.scenarioFile))
	if err != nil {
		return err
	}
	scenario := catalog.Scenario(replayFlags.scenario)
	if _, ok := matrices[scenario]; !ok {
		return fmt.Errorf("unknown scenario %q", replayFlags.scenario)
	}

	lines, skipped, err := replay.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("parse transcript: %w", err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed transcript lines", "count", skipped)
	}

	res, err := replay.Run(lines, replay.Config{
		Scenario:     scenario,
		Sensitivity:  replayFlags.sensitivity,
		Debounce:     time.Duration(replayFlags.debounceMs) * time.Millisecond,
		WindowChunks: replayFlags.window,
		Seed:         replayFlags.seed,
		Scenarios:    matrices,
	}, slog.Default())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Summary)
}
