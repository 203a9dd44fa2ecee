// Package catalog holds the static negotiation-tactic rules and the
// per-scenario weight matrix the classifier scores against.
//
// Both are embedded YAML documents. A rule document that fails to parse,
// names an unknown tactic, or leaves a tactic undefined is a programming
// error and panics at package load.
package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Definition is the rule set for one tactic.
type Definition struct {
	Tactic         Tactic
	Name           string
	Weight         float64
	Severity       Severity
	RequiresNumber bool
	Structural     []*regexp.Regexp
	Topics         []string
	Negatives      []string
	Suggestions    []string

	topicREs []*regexp.Regexp
}

type rawDefinition struct {
	Tactic         Tactic   `yaml:"tactic"`
	Name           string   `yaml:"name"`
	Weight         float64  `yaml:"weight"`
	Severity       Severity `yaml:"severity"`
	RequiresNumber bool     `yaml:"requires_number"`
	Structural     []string `yaml:"structural"`
	Topics         []string `yaml:"topics"`
	Negatives      []string `yaml:"negatives"`
	Suggestions    []string `yaml:"suggestions"`
}

type patternsDoc struct {
	Tactics []rawDefinition `yaml:"tactics"`
}

var definitions = mustLoadDefinitions(patternsYAML)

// Lookup returns the definition for t. Every enumerated tactic has one, so a
// miss means the enum and the rule document disagree and Lookup panics.
func Lookup(t Tactic) *Definition {
	d, ok := definitions[t]
	if !ok {
		panic(fmt.Sprintf("catalog: no pattern definition for tactic %q", t))
	}
	return d
}

// Definitions returns every definition in catalog order.
func Definitions() []*Definition {
	out := make([]*Definition, 0, len(allTactics))
	for _, t := range allTactics {
		out = append(out, Lookup(t))
	}
	return out
}

// MatchStructural reports whether any structural phrase matches. text must
// already be lower-cased.
func (d *Definition) MatchStructural(text string) bool {
	for _, re := range d.Structural {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// TopicHits counts the distinct topic terms present in text.
func (d *Definition) TopicHits(text string) int {
	hits := 0
	for _, re := range d.topicREs {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}

// Negated reports whether any negating phrase is present in text.
func (d *Definition) Negated(text string) bool {
	for _, n := range d.Negatives {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func mustLoadDefinitions(data []byte) map[Tactic]*Definition {
	defs, err := parseDefinitions(data)
	if err != nil {
		panic(fmt.Sprintf("load patterns.yaml: %v", err))
	}
	return defs
}

func parseDefinitions(data []byte) (map[Tactic]*Definition, error) {
	var doc patternsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	defs := make(map[Tactic]*Definition, len(doc.Tactics))
	for _, raw := range doc.Tactics {
		if !raw.Tactic.Valid() {
			return nil, fmt.Errorf("unknown tactic %q", raw.Tactic)
		}
		if _, dup := defs[raw.Tactic]; dup {
			return nil, fmt.Errorf("tactic %q defined twice", raw.Tactic)
		}
		if raw.Weight < 0 || raw.Weight > 1 {
			return nil, fmt.Errorf("tactic %q: weight %v outside [0,1]", raw.Tactic, raw.Weight)
		}
		if !raw.Severity.valid() {
			return nil, fmt.Errorf("tactic %q: unknown severity %q", raw.Tactic, raw.Severity)
		}
		if len(raw.Suggestions) == 0 {
			return nil, fmt.Errorf("tactic %q: no suggestions", raw.Tactic)
		}

		d := &Definition{
			Tactic:         raw.Tactic,
			Name:           raw.Name,
			Weight:         raw.Weight,
			Severity:       raw.Severity,
			RequiresNumber: raw.RequiresNumber,
			Topics:         raw.Topics,
			Negatives:      lowerAll(raw.Negatives),
			Suggestions:    raw.Suggestions,
		}
		for _, expr := range raw.Structural {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("tactic %q: structural %q: %w", raw.Tactic, expr, err)
			}
			d.Structural = append(d.Structural, re)
		}
		for _, term := range raw.Topics {
			d.topicREs = append(d.topicREs, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(term))+`\b`))
		}
		defs[raw.Tactic] = d
	}

	for _, t := range allTactics {
		if _, ok := defs[t]; !ok {
			return nil, fmt.Errorf("tactic %q has no definition", t)
		}
	}
	return defs, nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
