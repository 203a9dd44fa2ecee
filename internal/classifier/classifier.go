// Package classifier scores a transcript window against every tactic in the
// catalog and surfaces at most one winner per call.
package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
)

const (
	// DefaultThreshold is the minimum confidence (0-100) a winner needs.
	DefaultThreshold = 60

	topicHitWeight   = 0.5
	topicWeight      = 0.25
	numericWeight    = 0.10
	negativePenalty  = 0.25
	topicOnlyFactor  = 0.7
	matchedContextSz = 100

	minSensitivity = 0.5
	maxSensitivity = 1.5
)

var numberRE = regexp.MustCompile(`\d|\b(one|two|three|four|five|six|seven|eight|nine|ten|hundred|thousand|million|lakh|crore)\b`)

// DetectedPattern is a single classifier hit. It is immutable once built.
type DetectedPattern struct {
	ID             string           `json:"id"`
	Tactic         catalog.Tactic   `json:"tactic"`
	Name           string           `json:"name"`
	Confidence     int              `json:"confidence"`
	Suggestion     string           `json:"suggestion"`
	Severity       catalog.Severity `json:"severity"`
	Timestamp      time.Time        `json:"timestamp"`
	SourceText     string           `json:"source_text"`
	MatchedContext string           `json:"matched_context"`
	ChunkIDs       []string         `json:"chunk_ids,omitempty"`
}

// Segment is one transcript chunk of a classification window.
type Segment struct {
	ID   string
	Text string
	At   time.Time
}

// Score is the per-tactic breakdown behind a classification.
type Score struct {
	Tactic     catalog.Tactic `json:"tactic"`
	Structural float64        `json:"structural"`
	Topic      float64        `json:"topic"`
	Negated    bool           `json:"negated"`
	Raw        float64        `json:"raw"`
	Adjustment float64        `json:"adjustment"`
	Confidence int            `json:"confidence"`
}

// Rand is the random source used to pick a suggestion.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Classifier is safe for concurrent use.
type Classifier struct {
	scenarios catalog.Matrices
	threshold int

	mu  sync.Mutex
	rng Rand
}

type Option func(*Classifier)

// WithScenarios replaces the embedded scenario table.
func WithScenarios(ms catalog.Matrices) Option {
	return func(c *Classifier) { c.scenarios = ms }
}

// WithRand injects the suggestion picker, e.g. a seeded *rand.Rand in tests.
func WithRand(r Rand) Option {
	return func(c *Classifier) { c.rng = r }
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(n int) Option {
	return func(c *Classifier) { c.threshold = n }
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		scenarios: catalog.DefaultMatrices(),
		threshold: DefaultThreshold,
		rng:       globalRand{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scenarios returns the scenario table the classifier weights against.
func (c *Classifier) Scenarios() catalog.Matrices {
	return c.scenarios
}

// Scores evaluates every tactic against text and returns the ones that were
// not discarded, in catalog order.
func (c *Classifier) Scores(text string, scenario catalog.Scenario, sensitivity float64) []Score {
	lower := normalize(text)
	if lower == "" {
		return nil
	}
	matrix := c.scenarios.ScenarioConfig(scenario)
	sensitivity = ClampSensitivity(sensitivity)
	hasNumber := numberRE.MatchString(lower)

	var out []Score
	for _, def := range catalog.Definitions() {
		s := Score{Tactic: def.Tactic}
		if def.MatchStructural(lower) {
			s.Structural = 1
		}
		s.Topic = math.Min(1, topicHitWeight*float64(def.TopicHits(lower)))
		if s.Structural == 0 && s.Topic == 0 {
			continue
		}
		if def.RequiresNumber && !hasNumber {
			continue
		}
		s.Negated = def.Negated(lower)

		primary := def.Weight
		if s.Structural == 0 {
			primary = topicOnlyFactor * def.Weight
		}
		s.Raw = primary + topicWeight*s.Topic
		if def.RequiresNumber {
			s.Raw += numericWeight
		}
		if s.Negated {
			s.Raw -= negativePenalty
		}
		s.Adjustment = matrix.Adjustment(def.Tactic)
		s.Confidence = int(math.Round(clamp((s.Raw+s.Adjustment)*sensitivity) * 100))
		out = append(out, s)
	}
	return out
}

// Classify returns the single strongest tactic in text, or nil when nothing
// clears the threshold. Ties go to the earlier tactic in catalog order.
func (c *Classifier) Classify(text string, scenario catalog.Scenario, sensitivity float64, at time.Time) *DetectedPattern {
	scores := c.Scores(text, scenario, sensitivity)
	if len(scores) == 0 {
		return nil
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	if best.Confidence < c.threshold {
		return nil
	}

	def := catalog.Lookup(best.Tactic)
	trimmed := strings.TrimSpace(text)
	return &DetectedPattern{
		ID:             PatternID(best.Tactic, at),
		Tactic:         best.Tactic,
		Name:           def.Name,
		Confidence:     best.Confidence,
		Suggestion:     c.pick(def.Suggestions),
		Severity:       def.Severity,
		Timestamp:      at,
		SourceText:     trimmed,
		MatchedContext: prefix(trimmed, matchedContextSz),
	}
}

// ClassifyWindow classifies the joined text of segs. The detection is keyed
// to the newest segment that carries evidence for the winning tactic on its
// own, so later passes over a window that still holds the same utterance
// produce the same id. ChunkIDs lists the segments with evidence, or every
// segment when the evidence only appears across them.
func (c *Classifier) ClassifyWindow(segs []Segment, scenario catalog.Scenario, sensitivity float64) *DetectedPattern {
	if len(segs) == 0 {
		return nil
	}
	texts := make([]string, len(segs))
	for i, seg := range segs {
		texts[i] = seg.Text
	}
	newest := segs[len(segs)-1].At
	p := c.Classify(strings.Join(texts, " "), scenario, sensitivity, newest)
	if p == nil {
		return nil
	}

	def := catalog.Lookup(p.Tactic)
	anchor := -1
	for i, seg := range segs {
		if hasEvidence(def, seg.Text) {
			p.ChunkIDs = append(p.ChunkIDs, seg.ID)
			anchor = i
		}
	}
	if anchor < 0 {
		for _, seg := range segs {
			p.ChunkIDs = append(p.ChunkIDs, seg.ID)
		}
		anchor = len(segs) - 1
	}
	p.Timestamp = segs[anchor].At
	p.ID = PatternID(p.Tactic, p.Timestamp)
	return p
}

func hasEvidence(def *catalog.Definition, text string) bool {
	lower := normalize(text)
	return lower != "" && (def.MatchStructural(lower) || def.TopicHits(lower) > 0)
}

// PatternID builds the dedup key for a detection.
func PatternID(t catalog.Tactic, at time.Time) string {
	return fmt.Sprintf("%s-%d", t, at.UnixMilli())
}

// ClampSensitivity maps a user sensitivity into [0.5, 1.5]. Zero means unset
// and becomes 1.0.
func ClampSensitivity(s float64) float64 {
	if s == 0 {
		return 1
	}
	return math.Max(minSensitivity, math.Min(maxSensitivity, s))
}

func (c *Classifier) pick(options []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.rng.IntN(len(options))]
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "’", "'")
	return strings.ToLower(strings.TrimSpace(text))
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
