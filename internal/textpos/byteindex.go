package textpos

import (
	"fmt"
	"unicode/utf16"
)

// ByteIndex returns the byte index of code-unit offset cu within s.
// The end-of-string offset is valid. Offsets that would split a surrogate
// pair are rejected.
func ByteIndex(s string, cu int) (int, error) {
	if cu < 0 {
		return 0, fmt.Errorf("negative code-unit offset %d", cu)
	}
	n := 0
	for i, r := range s {
		if n == cu {
			return i, nil
		}
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		if n+width > cu {
			return 0, fmt.Errorf("code-unit offset %d splits a surrogate pair", cu)
		}
		n += width
	}
	if n == cu {
		return len(s), nil
	}
	return 0, fmt.Errorf("code-unit offset %d out of range [0,%d]", cu, n)
}
