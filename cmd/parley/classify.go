package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
)

var classifyFlags struct {
	scenario     string
	sensitivity  float64
	scores       bool
	scenarioFile string
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify a single utterance and print the detected tactic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyFlags.scenario, "scenario", string(catalog.ScenarioGeneral), "Negotiation scenario")
	f.Float64Var(&classifyFlags.sensitivity, "sensitivity", 1.0, "Classifier sensitivity (0.5-1.5)")
	f.BoolVar(&classifyFlags.scores, "scores", false, "Print the per-tactic score breakdown")
	f.StringVar(&classifyFlags.scenarioFile, "scenario-file", "", "YAML file overriding the scenario matrices (default $PARLEY_SCENARIO_FILE)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	scenario := catalog.Scenario(classifyFlags.scenario)
	matrices, err := loadMatrices(scenarioFileOrEnv(classifyFlags.scenarioFile))
	if err != nil {
		return err
	}
	cls := classifier.New(classifier.WithScenarios(matrices))
	if _, ok := cls.Scenarios()[scenario]; !ok {
		return fmt.Errorf("unknown scenario %q", classifyFlags.scenario)
	}

	out := cmd.OutOrStdout()
	p := cls.Classify(text, scenario, classifyFlags.sensitivity, time.Now())
	if p == nil {
		fmt.Fprintln(out, "No tactic detected.")
	} else {
		fmt.Fprintf(out, "Tactic:     %s\n", p.Name)
		fmt.Fprintf(out, "Confidence: %d\n", p.Confidence)
		fmt.Fprintf(out, "Severity:   %s\n", p.Severity)
		fmt.Fprintf(out, "Suggestion: %s\n", p.Suggestion)
	}

	if classifyFlags.scores {
		fmt.Fprintln(out, "Scores:")
		for _, s := range cls.Scores(text, scenario, classifyFlags.sensitivity) {
			fmt.Fprintf(out, "  %-20s %3d  (structural %.2f, topic %.2f, adjustment %+.2f, negated %v)\n",
				s.Tactic, s.Confidence, s.Structural, s.Topic, s.Adjustment, s.Negated)
		}
	}
	return nil
}
