package analyzer

import (
	"context"
	"strings"

	"redline.app/engine/internal/suggestion"
)

// Words where spelling and vowel sound disagree.
var (
	consonantSoundExceptions = map[string]bool{
		"university": true,
		"user":       true,
		"useful":     true,
		"unique":     true,
		"unit":       true,
		"union":      true,
		"uniform":    true,
		"european":   true,
		"one":        true,
		"once":       true,
	}
	vowelSoundExceptions = map[string]bool{
		"hour":   true,
		"honest": true,
		"honor":  true,
		"heir":   true,
	}
)

type articleRule struct{}

func (r *articleRule) Name() string { return "article" }

func (r *articleRule) Enabled(opts suggestion.Options) bool { return opts.IncludeGrammar }

func (r *articleRule) Check(_ context.Context, doc *Doc) ([]suggestion.Raw, error) {
	var findings []suggestion.Raw

	for i, w := range doc.Words {
		if i+1 >= len(doc.Words) {
			break
		}
		next := doc.Words[i+1]
		// Only adjacent words: an intervening sentence boundary or
		// punctuation breaks the article/noun relationship.
		between, err := doc.Map.Slice(w.Range.End, next.Range.Start)
		if err != nil || strings.TrimSpace(between) != "" {
			continue
		}

		switch w.Lower {
		case "a":
			if startsWithVowelSound(next.Lower) {
				findings = append(findings, articleFinding(w, "an"))
			}
		case "an":
			if !startsWithVowelSound(next.Lower) {
				findings = append(findings, articleFinding(w, "a"))
			}
		}
	}

	return findings, nil
}

func articleFinding(w Word, proposed string) suggestion.Raw {
	rng := w.Range
	return suggestion.Raw{
		Range:       &rng,
		Type:        string(suggestion.TypeGrammar),
		Original:    w.Text,
		Proposed:    matchCase(w.Text, proposed),
		Explanation: "The indefinite article should match the following word's sound.",
		Confidence:  0.8,
	}
}

func startsWithVowelSound(lower string) bool {
	if lower == "" {
		return false
	}
	if consonantSoundExceptions[lower] {
		return false
	}
	if vowelSoundExceptions[lower] {
		return true
	}
	switch lower[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
