package classifier

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
)

var at = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

var corpus = []string{
	"We usually offer around 6 LPA for this position.",
	"I need to check with my manager before making any decision.",
	"Honestly that's too expensive for us, we can't afford it.",
	"The offer expires at the end of the week.",
	"Good question, but let's come back to that later.",
	"That sounds great, I really like this approach.",
	"I'm a bit worried this won't work for our team.",
	"Let's move forward, send over the contract.",
	"We have other offers on the table and ten years of experience.",
	"Our budget is fixed at 50k for the whole quarter.",
	"We usually offer a good package for this position.",
	"The weather is nice today.",
}

func TestClassify_AnchoringExample(t *testing.T) {
	c := New()
	got := c.Classify("We usually offer around 6 LPA for this position.", catalog.ScenarioJobInterview, 1.0, at)
	if got == nil {
		t.Fatal("expected a detection")
	}
	if got.Tactic != catalog.Anchoring {
		t.Errorf("tactic = %s, want anchoring", got.Tactic)
	}
	if got.Confidence < 60 {
		t.Errorf("confidence = %d, want >= 60", got.Confidence)
	}
	if got.Severity != catalog.SeverityHigh {
		t.Errorf("severity = %s, want high", got.Severity)
	}
	if got.ID != PatternID(catalog.Anchoring, at) {
		t.Errorf("id = %q", got.ID)
	}
}

func TestClassify_AuthorityExample(t *testing.T) {
	c := New()
	got := c.Classify("I need to check with my manager before making any decision.", catalog.ScenarioGeneral, 1.0, at)
	if got == nil {
		t.Fatal("expected a detection")
	}
	if got.Tactic != catalog.AuthorityPressure {
		t.Errorf("tactic = %s, want authority_pressure", got.Tactic)
	}
	if got.Confidence < 80 {
		t.Errorf("confidence = %d, want >= 80", got.Confidence)
	}
}

func TestClassify_NumericRequirementIsHard(t *testing.T) {
	c := New()
	texts := []string{
		"We usually offer a good package for this position.",
		"What is the standard rate is for this role? The going salary range is what I want.",
		"Our starting offer for the position is competitive.",
	}
	for _, text := range texts {
		for _, s := range catalog.DefaultMatrices().Scenarios() {
			for _, sens := range []float64{0.5, 1.0, 1.5} {
				if got := c.Classify(text, s, sens, at); got != nil && got.Tactic == catalog.Anchoring {
					t.Errorf("anchoring detected without a number: %q (%s, %.1f)", text, s, sens)
				}
				for _, score := range c.Scores(text, s, sens) {
					if score.Tactic == catalog.Anchoring {
						t.Errorf("anchoring scored without a number: %q", text)
					}
				}
			}
		}
	}
}

func TestClassify_NumberWords(t *testing.T) {
	c := New()
	got := c.Classify("We usually offer around five lakh for this position.", catalog.ScenarioJobInterview, 1.0, at)
	if got == nil || got.Tactic != catalog.Anchoring {
		t.Fatalf("expected anchoring with spelled-out number, got %+v", got)
	}
}

func TestClassify_NegationPenalty(t *testing.T) {
	c := New()

	plain := c.Classify("The offer expires at the end of the week.", catalog.ScenarioGeneral, 1.0, at)
	if plain == nil || plain.Tactic != catalog.TimePressure {
		t.Fatalf("expected time pressure, got %+v", plain)
	}

	var plainScore, negScore int
	for _, s := range c.Scores("The offer expires at the end of the week.", catalog.ScenarioGeneral, 1.0) {
		if s.Tactic == catalog.TimePressure {
			plainScore = s.Confidence
		}
	}
	for _, s := range c.Scores("No rush. The offer expires at the end of the week.", catalog.ScenarioGeneral, 1.0) {
		if s.Tactic == catalog.TimePressure {
			negScore = s.Confidence
			if !s.Negated {
				t.Error("expected negated flag")
			}
		}
	}
	if diff := plainScore - negScore; diff < 24 || diff > 26 {
		t.Errorf("negation should cost 25 points, plain=%d negated=%d", plainScore, negScore)
	}
}

func TestClassify_TopicOnlyIsWeaker(t *testing.T) {
	c := New()
	var structural, topicOnly int
	for _, s := range c.Scores("Honestly that is too expensive.", catalog.ScenarioGeneral, 1.0) {
		if s.Tactic == catalog.BudgetObjection {
			structural = s.Confidence
		}
	}
	for _, s := range c.Scores("Honestly the expensive part.", catalog.ScenarioGeneral, 1.0) {
		if s.Tactic == catalog.BudgetObjection {
			topicOnly = s.Confidence
			if s.Structural != 0 {
				t.Error("expected no structural match")
			}
		}
	}
	if topicOnly >= structural {
		t.Errorf("topic-only score %d should be below structural score %d", topicOnly, structural)
	}
}

func TestClassify_SensitivityScales(t *testing.T) {
	c := New()
	text := "The offer expires at the end of the week."
	if got := c.Classify(text, catalog.ScenarioGeneral, 0.5, at); got != nil {
		t.Errorf("expected nothing at low sensitivity, got %s (%d)", got.Tactic, got.Confidence)
	}
	if got := c.Classify(text, catalog.ScenarioGeneral, 1.5, at); got == nil || got.Confidence != 100 {
		t.Errorf("expected a saturated detection at high sensitivity, got %+v", got)
	}
}

func TestClassify_AtMostOne(t *testing.T) {
	c := New()
	for _, text := range corpus {
		got := c.Classify(text, catalog.ScenarioGeneral, 1.0, at)
		if got == nil {
			continue
		}
		best := 0
		for _, s := range c.Scores(text, catalog.ScenarioGeneral, 1.0) {
			if s.Confidence > best {
				best = s.Confidence
			}
		}
		if got.Confidence != best {
			t.Errorf("%q: winner %d is not the max score %d", text, got.Confidence, best)
		}
	}
}

func TestClassify_SuppressedNeverExceedsNeutral(t *testing.T) {
	c := New()
	ms := catalog.DefaultMatrices()
	for _, scenario := range ms.Scenarios() {
		m := ms.ScenarioConfig(scenario)
		for _, text := range corpus {
			neutral := scoresByTactic(c.Scores(text, catalog.ScenarioGeneral, 1.0))
			for tactic, score := range scoresByTactic(c.Scores(text, scenario, 1.0)) {
				if slices.Contains(m.Suppressed, tactic) && score > neutral[tactic] {
					t.Errorf("%s/%s: suppressed score %d > neutral %d for %q", scenario, tactic, score, neutral[tactic], text)
				}
			}
		}
	}
}

func TestClassify_BelowThreshold(t *testing.T) {
	c := New()
	if got := c.Classify("The weather is nice today.", catalog.ScenarioGeneral, 1.0, at); got != nil {
		t.Errorf("expected nil, got %s (%d)", got.Tactic, got.Confidence)
	}
	if got := c.Classify("   ", catalog.ScenarioGeneral, 1.0, at); got != nil {
		t.Errorf("expected nil for blank text, got %+v", got)
	}
}

func TestClassify_SuggestionFromDefinition(t *testing.T) {
	c := New(WithRand(rand.New(rand.NewPCG(7, 11))))
	def := catalog.Lookup(catalog.AuthorityPressure)
	for i := 0; i < 20; i++ {
		got := c.Classify("I need to check with my manager before making any decision.", catalog.ScenarioGeneral, 1.0, at)
		if got == nil {
			t.Fatal("expected a detection")
		}
		if !slices.Contains(def.Suggestions, got.Suggestion) {
			t.Errorf("suggestion %q not in definition", got.Suggestion)
		}
	}
}

func TestClassify_MatchedContextPrefix(t *testing.T) {
	c := New()
	long := "I need to check with my manager before making any decision. " +
		"There are a lot of stakeholders involved and the timeline is not clear to any of us yet."
	got := c.Classify(long, catalog.ScenarioGeneral, 1.0, at)
	if got == nil {
		t.Fatal("expected a detection")
	}
	if n := len([]rune(got.MatchedContext)); n != matchedContextSz {
		t.Errorf("matched context length = %d, want %d", n, matchedContextSz)
	}
	if got.SourceText != long {
		t.Error("source text should be the full window")
	}
}

func TestClampSensitivity(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{0.2, 0.5},
		{0.8, 0.8},
		{3, 1.5},
	}
	for _, tt := range tests {
		if got := ClampSensitivity(tt.in); got != tt.want {
			t.Errorf("ClampSensitivity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func scoresByTactic(scores []Score) map[catalog.Tactic]int {
	out := make(map[catalog.Tactic]int, len(scores))
	for _, s := range scores {
		out[s.Tactic] = s.Confidence
	}
	return out
}

func TestClassifyWindow_KeyedToEvidenceChunk(t *testing.T) {
	c := New()
	objection := Segment{ID: "a", Text: "This is way too expensive for us.", At: at.Add(time.Second)}
	okay := Segment{ID: "b", Text: "Okay.", At: at.Add(3 * time.Second)}
	goOn := Segment{ID: "c", Text: "Go on.", At: at.Add(5 * time.Second)}

	windows := [][]Segment{
		{objection},
		{objection, okay},
		{objection, okay, goOn},
	}
	want := PatternID(catalog.BudgetObjection, objection.At)
	for i, w := range windows {
		got := c.ClassifyWindow(w, catalog.ScenarioGeneral, 1.0)
		if got == nil {
			t.Fatalf("window %d: expected a detection", i)
		}
		if got.ID != want {
			t.Errorf("window %d: id = %q, want %q", i, got.ID, want)
		}
		if !got.Timestamp.Equal(objection.At) {
			t.Errorf("window %d: timestamp = %v", i, got.Timestamp)
		}
		if !slices.Equal(got.ChunkIDs, []string{"a"}) {
			t.Errorf("window %d: chunk ids = %v", i, got.ChunkIDs)
		}
	}
}

func TestClassifyWindow_NewUtteranceNewID(t *testing.T) {
	c := New()
	first := Segment{ID: "a", Text: "This is way too expensive for us.", At: at}
	second := Segment{ID: "b", Text: "We cannot afford that either.", At: at.Add(2 * time.Second)}

	got := c.ClassifyWindow([]Segment{first, second}, catalog.ScenarioGeneral, 1.0)
	if got == nil || got.Tactic != catalog.BudgetObjection {
		t.Fatalf("got %+v", got)
	}
	if got.ID != PatternID(catalog.BudgetObjection, second.At) {
		t.Errorf("id = %q, want keyed to the newest objection", got.ID)
	}
	if !slices.Equal(got.ChunkIDs, []string{"a", "b"}) {
		t.Errorf("chunk ids = %v", got.ChunkIDs)
	}
}

func TestClassifyWindow_Empty(t *testing.T) {
	if got := New().ClassifyWindow(nil, catalog.ScenarioGeneral, 1.0); got != nil {
		t.Errorf("got %+v", got)
	}
}
