package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// Scenario is the negotiation context that re-weights tactic scoring.
type Scenario string

const (
	ScenarioGeneral           Scenario = "general"
	ScenarioJobInterview      Scenario = "job_interview"
	ScenarioSalaryNegotiation Scenario = "salary_negotiation"
	ScenarioSalesCall         Scenario = "sales_call"
	ScenarioVendorNegotiation Scenario = "vendor_negotiation"
	ScenarioClientMeeting     Scenario = "client_meeting"
)

const (
	boostAdjustment    = 0.15
	suppressAdjustment = -0.15
)

// Matrix splits the tactics into boosted, neutral and suppressed sets for
// one scenario. A tactic is in exactly one of the three.
type Matrix struct {
	Boosted    []Tactic `json:"boosted" yaml:"boosted"`
	Neutral    []Tactic `json:"neutral" yaml:"neutral"`
	Suppressed []Tactic `json:"suppressed" yaml:"suppressed"`
}

// Adjustment returns the additive score adjustment for t.
func (m Matrix) Adjustment(t Tactic) float64 {
	for _, b := range m.Boosted {
		if b == t {
			return boostAdjustment
		}
	}
	for _, s := range m.Suppressed {
		if s == t {
			return suppressAdjustment
		}
	}
	return 0
}

// Matrices is the full scenario table.
type Matrices map[Scenario]Matrix

// ScenarioConfig returns the matrix for s. Unknown scenarios are neutral
// across the board.
func (ms Matrices) ScenarioConfig(s Scenario) Matrix {
	if m, ok := ms[s]; ok {
		return m
	}
	return Matrix{Neutral: All()}
}

// Scenarios lists the configured scenarios, sorted.
func (ms Matrices) Scenarios() []Scenario {
	out := make([]Scenario, 0, len(ms))
	for s := range ms {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type scenariosDoc struct {
	Scenarios map[Scenario]Matrix `yaml:"scenarios"`
}

var defaultMatrices = mustLoadMatrices(scenariosYAML)

// DefaultMatrices returns a copy of the embedded scenario table.
func DefaultMatrices() Matrices {
	out := make(Matrices, len(defaultMatrices))
	for s, m := range defaultMatrices {
		out[s] = m
	}
	return out
}

// LoadScenarioFile reads a scenario table from path and layers it over the
// embedded defaults. Scenarios named in the file replace the default entry
// wholesale.
func LoadScenarioFile(path string) (Matrices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	overrides, err := parseMatrices(data)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	out := DefaultMatrices()
	for s, m := range overrides {
		out[s] = m
	}
	return out, nil
}

func mustLoadMatrices(data []byte) Matrices {
	ms, err := parseMatrices(data)
	if err != nil {
		panic(fmt.Sprintf("load scenarios.yaml: %v", err))
	}
	return ms
}

func parseMatrices(data []byte) (Matrices, error) {
	var doc scenariosDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	out := make(Matrices, len(doc.Scenarios))
	for s, m := range doc.Scenarios {
		normalized, err := normalizeMatrix(m)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s, err)
		}
		out[s] = normalized
	}
	return out, nil
}

// normalizeMatrix checks that the sets are disjoint and only name known
// tactics, then fills Neutral with every tactic not otherwise placed.
func normalizeMatrix(m Matrix) (Matrix, error) {
	placed := make(map[Tactic]string, len(allTactics))
	place := func(set string, ts []Tactic) error {
		for _, t := range ts {
			if !t.Valid() {
				return fmt.Errorf("unknown tactic %q in %s", t, set)
			}
			if prev, ok := placed[t]; ok {
				return fmt.Errorf("tactic %q in both %s and %s", t, prev, set)
			}
			placed[t] = set
		}
		return nil
	}
	if err := place("boosted", m.Boosted); err != nil {
		return Matrix{}, err
	}
	if err := place("suppressed", m.Suppressed); err != nil {
		return Matrix{}, err
	}
	if err := place("neutral", m.Neutral); err != nil {
		return Matrix{}, err
	}

	out := Matrix{
		Boosted:    append([]Tactic(nil), m.Boosted...),
		Neutral:    append([]Tactic(nil), m.Neutral...),
		Suppressed: append([]Tactic(nil), m.Suppressed...),
	}
	for _, t := range allTactics {
		if _, ok := placed[t]; !ok {
			out.Neutral = append(out.Neutral, t)
		}
	}
	return out, nil
}
