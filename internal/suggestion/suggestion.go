package suggestion

// Type classifies what kind of issue a suggestion addresses.
type Type string

const (
	TypeGrammar     Type = "grammar"
	TypeSpelling    Type = "spelling"
	TypePunctuation Type = "punctuation"
	TypeStyle       Type = "style"
	TypePassive     Type = "passive"
)

// Category groups suggestion types for presentation.
type Category string

const (
	CategoryCorrectness Category = "correctness"
	CategoryClarity     Category = "clarity"
	CategoryEngagement  Category = "engagement"
	CategoryDelivery    Category = "delivery"
)

// Severity indicates how strongly a suggestion should be surfaced.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Range is a half-open [Start, End) interval in UTF-16 code units of a
// specific text snapshot.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the range is well-formed for a text of textLen
// code units.
func (r Range) Valid(textLen int) bool {
	return r.Start >= 0 && r.Start < r.End && r.End <= textLen
}

// Len returns the range width in code units.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two half-open ranges share at least one offset.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether offset falls inside the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Suggestion is one proposed edit against a specific text snapshot.
// Original must equal the snapshot slice at Range when the suggestion was
// produced; that invariant decays as the document mutates and is
// re-validated before any mark is materialized or reused.
type Suggestion struct {
	ID            string   `json:"id"`
	Range         Range    `json:"range"`
	Type          Type     `json:"type"`
	Category      Category `json:"category"`
	Original      string   `json:"original"`
	Proposed      string   `json:"proposed"`
	Explanation   string   `json:"explanation"`
	Confidence    float64  `json:"confidence"`
	Severity      Severity `json:"severity"`
	CanRegenerate bool     `json:"canRegenerate"`
}

// EditorSuggestion carries the in-editor lifecycle flags on top of the
// analyzer output. Owned by the reconciler, never persisted.
type EditorSuggestion struct {
	Suggestion
	MarkID      string
	Region      Range
	IsVisible   bool
	IsHovered   bool
	IsDismissed bool
}

// CategoryFor maps a suggestion type to its presentation category.
func CategoryFor(t Type) Category {
	switch t {
	case TypeSpelling, TypeGrammar, TypePunctuation:
		return CategoryCorrectness
	case TypePassive:
		return CategoryClarity
	case TypeStyle:
		return CategoryEngagement
	default:
		return CategoryCorrectness
	}
}

// SeverityFor maps a suggestion type to its default severity.
func SeverityFor(t Type) Severity {
	switch t {
	case TypeSpelling:
		return SeverityHigh
	case TypeGrammar, TypePunctuation:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Options selects which analyses run and how aggressively the engine may
// escalate to the remote path. The zero value means balanced local checks
// for an unconstrained user.
type Options struct {
	Language        string   `json:"language"`
	IncludeSpelling bool     `json:"includeSpelling"`
	IncludeGrammar  bool     `json:"includeGrammar"`
	IncludeStyle    bool     `json:"includeStyle"`
	Priority        Priority `json:"priority"`
	Tier            Tier     `json:"tier"`
}

// Priority is the caller's latency/quality preference.
type Priority string

const (
	PriorityFast     Priority = "fast"
	PriorityBalanced Priority = "balanced"
	PriorityQuality  Priority = "quality"
)

// Tier is the user's plan tier, used only for cost gating.
type Tier string

const (
	TierConstrained Tier = "constrained"
	TierStandard    Tier = "standard"
)

// DefaultOptions enables spelling and grammar with balanced priority.
func DefaultOptions() Options {
	return Options{
		Language:        "en",
		IncludeSpelling: true,
		IncludeGrammar:  true,
		Priority:        PriorityBalanced,
		Tier:            TierStandard,
	}
}
