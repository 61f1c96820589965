// Package textpos builds bidirectional indexes between grapheme clusters,
// UTF-16 code units, and byte offsets for a single text snapshot.
//
// Analyzers report ranges in code-unit space; selection and cursor APIs
// speak in graphemes. The map lets callers translate between the two
// without re-scanning the text. A Map is immutable and keyed to the exact
// snapshot it was built from: rebuild on every change, never mutate.
package textpos

import (
	"fmt"
	"unicode/utf16"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Entry records the position of one grapheme cluster in all three spaces.
type Entry struct {
	Grapheme int
	CodeUnit int
	Byte     int
}

// Map is the derived position index for one text snapshot.
type Map struct {
	text      string
	entries   []Entry // one per grapheme cluster; does not include the end sentinel
	cuToByte  []int   // byte offset for every code-unit boundary, len = codeUnits+1
	codeUnits int
}

// Build scans text once and produces its position map. Combining
// sequences, surrogate-pair code points, and emoji ZWJ sequences with
// modifiers each count as a single grapheme. Empty text yields an empty
// map where only offset 0 is valid.
func Build(text string) *Map {
	m := &Map{text: text}

	state := -1
	rest := text
	byteOff := 0
	cuOff := 0
	grapheme := 0

	for len(rest) > 0 {
		cluster, tail, _, newState := uniseg.StepString(rest, state)
		m.entries = append(m.entries, Entry{Grapheme: grapheme, CodeUnit: cuOff, Byte: byteOff})

		clusterByte := byteOff
		for _, r := range cluster {
			width := utf16.RuneLen(r)
			if width < 0 {
				width = 1
			}
			for i := 0; i < width; i++ {
				// Interior code units of a surrogate pair are not valid
				// boundaries; round them down to the rune start.
				m.cuToByte = append(m.cuToByte, clusterByte)
			}
			clusterByte += len(string(r))
			cuOff += width
		}

		byteOff += len(cluster)
		grapheme++
		rest = tail
		state = newState
	}

	m.codeUnits = cuOff
	m.cuToByte = append(m.cuToByte, byteOff)
	return m
}

// Graphemes returns the grapheme-cluster count of the snapshot.
func (m *Map) Graphemes() int {
	return len(m.entries)
}

// CodeUnits returns the snapshot length in UTF-16 code units.
func (m *Map) CodeUnits() int {
	return m.codeUnits
}

// Entries returns the per-grapheme position rows in order.
func (m *Map) Entries() []Entry {
	return m.entries
}

// CodeUnitToGrapheme maps a code-unit offset to the index of the grapheme
// containing it. The end-of-text offset is valid and maps to the grapheme
// count. Offsets inside a multi-unit grapheme resolve to that grapheme.
func (m *Map) CodeUnitToGrapheme(offset int) (int, error) {
	if offset < 0 || offset > m.codeUnits {
		return 0, fmt.Errorf("code-unit offset %d out of range [0,%d]", offset, m.codeUnits)
	}
	if offset == m.codeUnits {
		return len(m.entries), nil
	}

	// Greatest entry whose CodeUnit <= offset.
	lo, hi := 0, len(m.entries)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.entries[mid].CodeUnit <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return m.entries[lo].Grapheme, nil
}

// GraphemeToCodeUnit maps a grapheme index to the code-unit offset of its
// first code unit. The grapheme count itself is valid and maps to the
// end-of-text offset.
func (m *Map) GraphemeToCodeUnit(index int) (int, error) {
	if index < 0 || index > len(m.entries) {
		return 0, fmt.Errorf("grapheme index %d out of range [0,%d]", index, len(m.entries))
	}
	if index == len(m.entries) {
		return m.codeUnits, nil
	}
	return m.entries[index].CodeUnit, nil
}

// CodeUnitToByte maps a code-unit offset to the byte offset of the same
// position. The end-of-text offset maps to len(text).
func (m *Map) CodeUnitToByte(offset int) (int, error) {
	if offset < 0 || offset >= len(m.cuToByte) {
		return 0, fmt.Errorf("code-unit offset %d out of range [0,%d]", offset, m.codeUnits)
	}
	return m.cuToByte[offset], nil
}

// ByteToCodeUnit maps a byte offset at a code-unit boundary back to its
// code-unit offset.
func (m *Map) ByteToCodeUnit(byteOff int) (int, error) {
	if byteOff < 0 || byteOff > len(m.text) {
		return 0, fmt.Errorf("byte offset %d out of range [0,%d]", byteOff, len(m.text))
	}
	lo, hi := 0, len(m.cuToByte)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if m.cuToByte[mid] < byteOff {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if m.cuToByte[lo] != byteOff {
		return 0, fmt.Errorf("byte offset %d is not a code-unit boundary", byteOff)
	}
	return lo, nil
}

// Slice returns the snapshot text between two code-unit offsets.
func (m *Map) Slice(start, end int) (string, error) {
	if start > end {
		return "", fmt.Errorf("inverted slice [%d,%d)", start, end)
	}
	bs, err := m.CodeUnitToByte(start)
	if err != nil {
		return "", err
	}
	be, err := m.CodeUnitToByte(end)
	if err != nil {
		return "", err
	}
	return m.text[bs:be], nil
}

// Text returns the snapshot the map was built from.
func (m *Map) Text() string {
	return m.text
}

// CodeUnitLen returns the UTF-16 code-unit length of s without building a
// full map.
func CodeUnitLen(s string) int {
	n := 0
	for _, r := range s {
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		n += width
	}
	return n
}

// Normalize applies Unicode canonical composition (NFC). All analysis
// runs against the normalized form so that combining sequences compare
// equal regardless of input encoding.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
