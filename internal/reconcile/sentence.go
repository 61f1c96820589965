package reconcile

import (
	"unicode"
	"unicode/utf16"

	"redline.app/engine/internal/suggestion"
)

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '\n':
		return true
	}
	return false
}

// widenToSentence expands a code-unit range to the enclosing sentence:
// from just after the previous terminator (leading whitespace trimmed)
// through the next terminator inclusive. Passive-voice and style
// suggestions are wrapped at this granularity so the highlight covers a
// rewritable unit rather than a verb pair.
func widenToSentence(text string, r suggestion.Range) suggestion.Range {
	start := 0
	end := -1
	cu := 0
	for _, ru := range text {
		w := utf16.RuneLen(ru)
		if w < 0 {
			w = 1
		}
		if isTerminator(ru) {
			if cu < r.Start {
				start = cu + w
			}
			if cu+w >= r.End && end < 0 {
				end = cu + w
			}
		}
		cu += w
	}
	if end < 0 {
		end = cu
	}

	// Trim whitespace between the previous terminator and the sentence.
	trimmed := start
	cu = 0
	for _, ru := range text {
		w := utf16.RuneLen(ru)
		if w < 0 {
			w = 1
		}
		if cu >= start {
			if cu >= end || !unicode.IsSpace(ru) {
				break
			}
			trimmed = cu + w
		}
		cu += w
	}
	start = trimmed
	if start > r.Start {
		start = r.Start
	}
	if end < r.End {
		end = r.End
	}
	return suggestion.Range{Start: start, End: end}
}
