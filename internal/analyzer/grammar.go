package analyzer

import (
	"context"
	"strings"
	"unicode"

	"redline.app/engine/internal/suggestion"
)

// contractionFixes maps apostrophe-less contractions to their corrected
// form. Kept conservative: only unambiguous misspellings.
var contractionFixes = map[string]string{
	"dont":      "don't",
	"cant":      "can't",
	"wont":      "won't",
	"isnt":      "isn't",
	"arent":     "aren't",
	"wasnt":     "wasn't",
	"werent":    "weren't",
	"doesnt":    "doesn't",
	"didnt":     "didn't",
	"couldnt":   "couldn't",
	"shouldnt":  "shouldn't",
	"wouldnt":   "wouldn't",
	"hasnt":     "hasn't",
	"havent":    "haven't",
	"hadnt":     "hadn't",
	"youre":     "you're",
	"theyre":    "they're",
}

// thirdPersonSingular subjects force "doesn't" over "don't".
var thirdPersonSingular = map[string]bool{
	"he":  true,
	"she": true,
	"it":  true,
}

type grammarRule struct{}

func (r *grammarRule) Name() string { return "grammar" }

func (r *grammarRule) Enabled(opts suggestion.Options) bool { return opts.IncludeGrammar }

func (r *grammarRule) Check(_ context.Context, doc *Doc) ([]suggestion.Raw, error) {
	var findings []suggestion.Raw

	for i, w := range doc.Words {
		if fix, ok := contractionFixes[w.Lower]; ok {
			if w.Lower == "dont" && i > 0 && thirdPersonSingular[doc.Words[i-1].Lower] {
				fix = "doesn't"
			}
			rng := w.Range
			findings = append(findings, suggestion.Raw{
				Range:       &rng,
				Type:        string(suggestion.TypeGrammar),
				Original:    w.Text,
				Proposed:    matchCase(w.Text, fix),
				Explanation: "This contraction is missing an apostrophe.",
				Confidence:  0.8,
			})
			continue
		}

		// Repeated word ("the the").
		if i > 0 && w.Lower == doc.Words[i-1].Lower && isAlphabetic(w.Lower) {
			rng := suggestion.Range{Start: doc.Words[i-1].Range.Start, End: w.Range.End}
			original, err := doc.Map.Slice(rng.Start, rng.End)
			if err != nil {
				continue
			}
			findings = append(findings, suggestion.Raw{
				Range:       &rng,
				Type:        string(suggestion.TypeGrammar),
				Original:    original,
				Proposed:    doc.Words[i-1].Text,
				Explanation: "This word appears twice in a row.",
				Confidence:  0.85,
			})
		}
	}

	return findings, nil
}

// matchCase carries the original's leading capitalization onto the fix.
func matchCase(original, fix string) string {
	if original == "" || fix == "" {
		return fix
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		runes := []rune(fix)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return fix
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0 && !strings.ContainsAny(s, "'’")
}
