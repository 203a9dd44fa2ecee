// Package strategy maps an accepted tactic to ready-made counter-suggestions
// and gates repeats of the same tactic behind a per-tactic cooldown.
package strategy

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
)

//go:embed strategies.yaml
var strategiesYAML []byte

// Entry is the static counter advice for one tactic.
type Entry struct {
	Name        string   `yaml:"name" json:"name"`
	Explanation string   `yaml:"explanation" json:"explanation"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"`
}

type strategiesDoc struct {
	Strategies map[catalog.Tactic]Entry `yaml:"strategies"`
}

var entries = mustLoadEntries(strategiesYAML)

// Lookup returns the counter advice for t. Panics on a tactic the document
// does not cover.
func Lookup(t catalog.Tactic) Entry {
	e, ok := entries[t]
	if !ok {
		panic(fmt.Sprintf("strategy: no entry for tactic %q", t))
	}
	return e
}

func mustLoadEntries(data []byte) map[catalog.Tactic]Entry {
	var doc strategiesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		panic(fmt.Sprintf("load strategies.yaml: %v", err))
	}
	for t, e := range doc.Strategies {
		if !t.Valid() {
			panic(fmt.Sprintf("load strategies.yaml: unknown tactic %q", t))
		}
		if len(e.Suggestions) == 0 {
			panic(fmt.Sprintf("load strategies.yaml: tactic %q has no suggestions", t))
		}
	}
	for _, t := range catalog.All() {
		if _, ok := doc.Strategies[t]; !ok {
			panic(fmt.Sprintf("load strategies.yaml: tactic %q missing", t))
		}
	}
	return doc.Strategies
}
