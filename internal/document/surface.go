// Package document models the live rich-text document as an arena of
// nodes addressed by stable integer ids. Parent/child relationships are
// index references, so splitting, wrapping, and unwrapping are plain
// slice and map edits with no dangling-pointer risk.
//
// All offsets are UTF-16 code units, matching analyzer output.
package document

import (
	"strings"

	"redline.app/engine/internal/suggestion"
)

// Segment is one run of leaf text with its absolute offsets. MarkID is
// empty for plain text.
type Segment struct {
	Node     NodeID
	Start    int
	End      int
	Text     string
	MarkID   string
	MarkType suggestion.Type
}

// Surface is the capability interface the reconciler is written against.
// Any rich-text framework exposing these five operations can host the
// engine; Tree is the in-process reference implementation.
type Surface interface {
	// Segments enumerates leaf text runs in document order with absolute
	// code-unit offsets.
	Segments() []Segment
	// SplitAt splits the leaf containing offset at that offset. Splitting
	// at an existing boundary is a no-op.
	SplitAt(offset int) error
	// WrapRange wraps [start, end) in a mark tagged with the suggestion's
	// id and type. The range must cover whole, unmarked leaves; callers
	// split first.
	WrapRange(start, end int, markID string, markType suggestion.Type) error
	// Unwrap replaces the mark's region with its own text content,
	// merging back into plain text. Lossless.
	Unwrap(markID string) error
	// Selection returns the current anchor and focus offsets.
	Selection() (anchor, focus int)
	// SetSelection restores a selection.
	SetSelection(anchor, focus int)
}

// Editor is the text-mutation capability. It is separate from Surface
// because mark reconciliation never edits text; only suggestion
// application and user keystrokes do.
type Editor interface {
	// ReplaceRange splices replacement over [start, end), returning the
	// ids of marks that overlapped the edit and were dropped. Marks after
	// the edit shift; marks before it are untouched.
	ReplaceRange(start, end int, replacement string) (removedMarks []string, err error)
}

// Text concatenates a surface's segments into the full document text.
func Text(s Surface) string {
	var b strings.Builder
	for _, seg := range s.Segments() {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// MarkRegion returns the absolute range covered by a mark, or ok=false if
// the mark is not present.
func MarkRegion(s Surface, markID string) (suggestion.Range, bool) {
	var r suggestion.Range
	found := false
	for _, seg := range s.Segments() {
		if seg.MarkID != markID {
			continue
		}
		if !found {
			r.Start = seg.Start
			found = true
		}
		r.End = seg.End
	}
	return r, found
}
