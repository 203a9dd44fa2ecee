package catalog

// Tactic is a negotiation behaviour the classifier can detect.
type Tactic string

const (
	Anchoring          Tactic = "anchoring"
	BudgetObjection    Tactic = "budget_objection"
	AuthorityPressure  Tactic = "authority_pressure"
	TimePressure       Tactic = "time_pressure"
	Deflection         Tactic = "deflection"
	PositiveSignal     Tactic = "positive_signal"
	NegativeSignal     Tactic = "negative_signal"
	CommitmentLanguage Tactic = "commitment_language"
	StrengthSignal     Tactic = "strength_signal"
)

var allTactics = []Tactic{
	Anchoring,
	BudgetObjection,
	AuthorityPressure,
	TimePressure,
	Deflection,
	PositiveSignal,
	NegativeSignal,
	CommitmentLanguage,
	StrengthSignal,
}

// All returns every tactic in catalog order. Catalog order is also the
// classifier's tie-break order.
func All() []Tactic {
	out := make([]Tactic, len(allTactics))
	copy(out, allTactics)
	return out
}

// Valid reports whether t is one of the enumerated tactics.
func (t Tactic) Valid() bool {
	for _, known := range allTactics {
		if t == known {
			return true
		}
	}
	return false
}

// Severity ranks how much a tactic should worry the user.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}
