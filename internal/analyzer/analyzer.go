// Package analyzer runs the fast local rule pipeline: spelling against a
// loaded dictionary, grammar heuristics, indefinite articles, passive
// voice, and style intensifiers. It is the cheap half of the hybrid
// processing model; the remote refiner is the expensive half.
//
// The pipeline never fails the caller. A rule that errors or panics is
// logged and skipped; grammar checking is an enhancement and must not
// block editing.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"redline.app/engine/common/id"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// Doc is the per-analysis view rules operate on: the normalized snapshot,
// its position map, and the tokenized words with code-unit ranges.
type Doc struct {
	Text  string
	Map   *textpos.Map
	Words []Word
}

// Rule is one local check. Rules report ranges in code-unit offsets of
// doc.Text and may assume doc is immutable for the duration of the call.
type Rule interface {
	Name() string
	Enabled(opts suggestion.Options) bool
	Check(ctx context.Context, doc *Doc) ([]suggestion.Raw, error)
}

// Analyzer is the local rule pipeline. Construct once, share freely; all
// state is immutable after New except the lazily loaded dictionary, which
// guards itself.
type Analyzer struct {
	rules []Rule
	newID func() string
}

// New builds the default pipeline.
func New() *Analyzer {
	return &Analyzer{
		rules: []Rule{
			NewSpellingRule(),
			&grammarRule{},
			&articleRule{},
			&passiveRule{},
			&intensifierRule{},
		},
		newID: id.String,
	}
}

// NewWithRules builds a pipeline with an explicit rule set and id source.
func NewWithRules(rules []Rule, newID func() string) *Analyzer {
	return &Analyzer{rules: rules, newID: newID}
}

// Analyze normalizes text (NFC) and runs every enabled rule against the
// normalized snapshot. Returned ranges are code-unit offsets into the
// normalized string; callers are responsible for keeping the snapshot
// they show the user consistent with it.
func (a *Analyzer) Analyze(ctx context.Context, text string, opts suggestion.Options) []suggestion.Suggestion {
	normalized := textpos.Normalize(text)
	doc := &Doc{
		Text:  normalized,
		Map:   textpos.Build(normalized),
		Words: Tokenize(normalized),
	}

	var raws []suggestion.Raw
	for _, rule := range a.rules {
		if !rule.Enabled(opts) {
			continue
		}
		findings, err := a.runRule(ctx, rule, doc)
		if err != nil {
			slog.WarnContext(ctx, "analysis rule failed, skipping",
				"rule", rule.Name(), "error", err)
			continue
		}
		raws = append(raws, findings...)
	}

	return suggestion.Sanitize(ctx, raws, doc.Map, a.newID)
}

// runRule isolates a single rule: a panic inside one check must not take
// down the pipeline.
func (a *Analyzer) runRule(ctx context.Context, rule Rule, doc *Doc) (findings []suggestion.Raw, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Check(ctx, doc)
}
