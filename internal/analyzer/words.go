package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"redline.app/engine/internal/suggestion"
)

// Word is one token with its code-unit range in the normalized snapshot.
type Word struct {
	Text  string
	Lower string
	Range suggestion.Range
}

// Tokenize splits text into words. A word is a run of letters and
// apostrophes (straight or curly), so contractions stay whole. Offsets
// are UTF-16 code units.
func Tokenize(text string) []Word {
	var words []Word
	var current strings.Builder
	start := 0
	offset := 0
	inWord := false

	flush := func(end int) {
		if !inWord {
			return
		}
		w := current.String()
		words = append(words, Word{
			Text:  w,
			Lower: strings.ToLower(w),
			Range: suggestion.Range{Start: start, End: end},
		})
		current.Reset()
		inWord = false
	}

	for _, r := range text {
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		if unicode.IsLetter(r) || r == '\'' || r == '’' {
			if !inWord {
				start = offset
				inWord = true
			}
			current.WriteRune(r)
		} else {
			flush(offset)
		}
		offset += width
	}
	flush(offset)
	return words
}
