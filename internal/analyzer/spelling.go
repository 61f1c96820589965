package analyzer

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/sajari/fuzzy"

	"redline.app/engine/internal/suggestion"
)

//go:embed dictionary/words.txt
var dictionaryData string

// SpellingRule checks words against a fuzzy dictionary model. The model
// loads lazily on first use and only once; construction stays cheap so
// the pipeline can be built in tests without paying for training.
type SpellingRule struct {
	once    sync.Once
	model   *fuzzy.Model
	known   map[string]bool
	initErr error
}

func NewSpellingRule() *SpellingRule {
	return &SpellingRule{}
}

func (r *SpellingRule) Name() string { return "spelling" }

func (r *SpellingRule) Enabled(opts suggestion.Options) bool { return opts.IncludeSpelling }

func (r *SpellingRule) load() {
	model := fuzzy.NewModel()
	// Depth 2 trades a little accuracy for much faster training.
	model.SetDepth(2)

	known := make(map[string]bool)
	for _, word := range strings.Split(dictionaryData, "\n") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		model.TrainWord(word)
		known[word] = true
	}

	if len(known) == 0 {
		r.initErr = fmt.Errorf("embedded dictionary is empty")
		return
	}
	r.model = model
	r.known = known
}

func (r *SpellingRule) Check(_ context.Context, doc *Doc) ([]suggestion.Raw, error) {
	r.once.Do(r.load)
	if r.initErr != nil {
		return nil, r.initErr
	}

	var findings []suggestion.Raw
	for _, w := range doc.Words {
		if !r.checkable(w) {
			continue
		}
		if r.known[w.Lower] {
			continue
		}

		corrected := r.model.SpellCheck(w.Lower)
		if corrected == "" || corrected == w.Lower {
			// No confident correction; flagging without a proposal would
			// just be noise.
			continue
		}

		rng := w.Range
		findings = append(findings, suggestion.Raw{
			Range:       &rng,
			Type:        string(suggestion.TypeSpelling),
			Original:    w.Text,
			Proposed:    matchCase(w.Text, corrected),
			Explanation: fmt.Sprintf("%q is not in the dictionary. Did you mean %q?", w.Text, corrected),
			Confidence:  0.9,
		})
	}

	return findings, nil
}

// checkable filters tokens the dictionary cannot judge: short words,
// contractions (the grammar rule owns those), acronyms and camel-case,
// and non-ASCII words the embedded dictionary does not cover.
func (r *SpellingRule) checkable(w Word) bool {
	if len(w.Lower) < 4 {
		return false
	}
	if strings.ContainsAny(w.Text, "'’") {
		return false
	}
	if _, ok := contractionFixes[w.Lower]; ok {
		return false
	}
	for i, ch := range w.Text {
		if ch > unicode.MaxASCII {
			return false
		}
		if i > 0 && unicode.IsUpper(ch) {
			return false
		}
	}
	return true
}
