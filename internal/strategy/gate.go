package strategy

import (
	"sync"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
)

const (
	DefaultCooldown  = 10 * time.Second
	DefaultThreshold = 70
)

// CounterStrategy is the advice surfaced for an accepted tactic.
type CounterStrategy struct {
	Tactic      catalog.Tactic `json:"tactic"`
	DisplayName string         `json:"display_name"`
	Confidence  int            `json:"confidence"`
	Suggestions []string       `json:"suggestions"`
	Explanation string         `json:"explanation"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Gate is the per-session cooldown tracker. It remembers when each tactic
// last produced a strategy. The zero value is not usable; use NewGate.
type Gate struct {
	mu   sync.Mutex
	last map[catalog.Tactic]time.Time
}

func NewGate() *Gate {
	return &Gate{last: make(map[catalog.Tactic]time.Time)}
}

type generateOptions struct {
	cooldown  time.Duration
	threshold int
}

type Option func(*generateOptions)

func resolve(opts []Option) generateOptions {
	o := generateOptions{cooldown: DefaultCooldown, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCooldown overrides DefaultCooldown for one call.
func WithCooldown(d time.Duration) Option {
	return func(o *generateOptions) { o.cooldown = d }
}

// WithThreshold overrides DefaultThreshold for one call.
func WithThreshold(n int) Option {
	return func(o *generateOptions) { o.threshold = n }
}

// Generate returns a counter strategy for t, or nil when confidence is under
// the threshold or t fired within the cooldown before now. A returned
// strategy stamps the tracker with now.
func (g *Gate) Generate(t catalog.Tactic, confidence int, now time.Time, opts ...Option) *CounterStrategy {
	o := resolve(opts)
	if confidence < o.threshold {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onCooldown(t, now, o.cooldown) {
		return nil
	}

	e := Lookup(t)
	g.last[t] = now
	return &CounterStrategy{
		Tactic:      t,
		DisplayName: e.Name,
		Confidence:  confidence,
		Suggestions: append([]string(nil), e.Suggestions...),
		Explanation: e.Explanation,
		Timestamp:   now,
	}
}

// IsOnCooldown reports whether t fired within the cooldown before now. It
// takes the same options as Generate; only WithCooldown matters here.
func (g *Gate) IsOnCooldown(t catalog.Tactic, now time.Time, opts ...Option) bool {
	o := resolve(opts)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.onCooldown(t, now, o.cooldown)
}

// ResetAll forgets every trigger. Called at session start.
func (g *Gate) ResetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = make(map[catalog.Tactic]time.Time)
}

func (g *Gate) onCooldown(t catalog.Tactic, now time.Time, cooldown time.Duration) bool {
	last, ok := g.last[t]
	if !ok {
		return false
	}
	return now.Sub(last) < cooldown
}
