package analyzer

import (
	"context"
	"strings"

	"redline.app/engine/internal/suggestion"
)

var intensifiers = map[string]bool{
	"very":       true,
	"really":     true,
	"extremely":  true,
	"absolutely": true,
	"basically":  true,
	"actually":   true,
	"literally":  true,
}

// intensifierRule flags intensifier + word pairs as style suggestions,
// proposing the bare word. Low confidence: often the intensifier belongs.
type intensifierRule struct{}

func (r *intensifierRule) Name() string { return "intensifier" }

func (r *intensifierRule) Enabled(opts suggestion.Options) bool { return opts.IncludeStyle }

func (r *intensifierRule) Check(_ context.Context, doc *Doc) ([]suggestion.Raw, error) {
	var findings []suggestion.Raw

	for i, w := range doc.Words {
		if !intensifiers[w.Lower] || i+1 >= len(doc.Words) {
			continue
		}
		next := doc.Words[i+1]
		between, err := doc.Map.Slice(w.Range.End, next.Range.Start)
		if err != nil || strings.TrimSpace(between) != "" {
			continue
		}

		rng := suggestion.Range{Start: w.Range.Start, End: next.Range.End}
		original, err := doc.Map.Slice(rng.Start, rng.End)
		if err != nil {
			continue
		}
		findings = append(findings, suggestion.Raw{
			Range:       &rng,
			Type:        string(suggestion.TypeStyle),
			Original:    original,
			Proposed:    next.Text,
			Explanation: "Intensifiers often weaken the sentence. Consider dropping it.",
			Confidence:  0.5,
		})
	}

	return findings, nil
}
