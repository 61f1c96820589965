package analyzer

import (
	"context"
	"strings"

	"redline.app/engine/internal/suggestion"
)

var beVerbs = map[string]bool{
	"am":    true,
	"is":    true,
	"are":   true,
	"was":   true,
	"were":  true,
	"be":    true,
	"been":  true,
	"being": true,
}

// Irregular past participles that don't end in -ed.
var irregularParticiples = map[string]bool{
	"written": true,
	"taken":   true,
	"given":   true,
	"done":    true,
	"made":    true,
	"seen":    true,
	"known":   true,
	"found":   true,
	"told":    true,
	"shown":   true,
	"built":   true,
	"sent":    true,
	"kept":    true,
	"held":    true,
	"left":    true,
	"lost":    true,
	"paid":    true,
	"put":     true,
	"read":    true,
	"said":    true,
	"sold":    true,
	"chosen":  true,
	"broken":  true,
	"spoken":  true,
	"thrown":  true,
	"caught":  true,
	"bought":  true,
	"brought": true,
	"driven":  true,
	"eaten":   true,
}

type passiveRule struct{}

func (r *passiveRule) Name() string { return "passive" }

// Passive voice is a clarity affordance; it rides with grammar checks
// rather than the style flag because the hybrid escalation keys on style.
func (r *passiveRule) Enabled(opts suggestion.Options) bool { return opts.IncludeGrammar }

func (r *passiveRule) Check(_ context.Context, doc *Doc) ([]suggestion.Raw, error) {
	var findings []suggestion.Raw

	for i, w := range doc.Words {
		if !beVerbs[w.Lower] || i+1 >= len(doc.Words) {
			continue
		}
		next := doc.Words[i+1]
		if !isParticiple(next.Lower) {
			continue
		}
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
			Type:        string(suggestion.TypePassive),
			Original:    original,
			Explanation: "This sentence uses passive voice. Consider an active construction.",
			Confidence:  0.6,
		})
	}

	return findings, nil
}

func isParticiple(lower string) bool {
	if irregularParticiples[lower] {
		return true
	}
	return len(lower) > 4 && strings.HasSuffix(lower, "ed")
}
