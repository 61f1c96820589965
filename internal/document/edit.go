package document

import (
	"fmt"

	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

type markInfo struct {
	id     string
	typ    suggestion.Type
	region suggestion.Range
}

// ReplaceRange splices replacement over [start, end) in code-unit space.
// Marks overlapping the edited interior are dropped (their ids are
// returned so the reconciler can invalidate the matching suggestions);
// marks entirely after the edit shift by the length delta. The selection
// collapses to the end of the inserted text.
//
// An insertion (start == end) at a mark boundary does not drop the mark:
// typing immediately before or after a highlight shifts it, only typing
// inside it invalidates it.
func (t *Tree) ReplaceRange(start, end int, replacement string) ([]string, error) {
	length := t.Len()
	if start < 0 || start > end || end > length {
		return nil, fmt.Errorf("replace range [%d,%d) out of bounds for length %d", start, end, length)
	}

	text := t.Text()
	pm := textpos.Build(text)
	bs, err := pm.CodeUnitToByte(start)
	if err != nil {
		return nil, err
	}
	be, err := pm.CodeUnitToByte(end)
	if err != nil {
		return nil, err
	}

	newText := text[:bs] + replacement + text[be:]
	delta := textpos.CodeUnitLen(replacement) - (end - start)
	edited := suggestion.Range{Start: start, End: end}

	var kept []markInfo
	var removed []string
	for _, childID := range t.nodes[t.root].children {
		child := t.nodes[childID]
		if child.kind != kindMark {
			continue
		}
		region, ok := MarkRegion(t, child.markID)
		if !ok {
			continue
		}
		switch {
		case region.Overlaps(edited):
			removed = append(removed, child.markID)
		case region.Start >= end:
			region.Start += delta
			region.End += delta
			kept = append(kept, markInfo{id: child.markID, typ: child.markType, region: region})
		default:
			kept = append(kept, markInfo{id: child.markID, typ: child.markType, region: region})
		}
	}

	if err := t.rebuild(newText, kept); err != nil {
		return nil, err
	}

	caret := start + textpos.CodeUnitLen(replacement)
	t.selAnchor, t.selFocus = caret, caret
	return removed, nil
}

// InsertText inserts s at offset.
func (t *Tree) InsertText(offset int, s string) ([]string, error) {
	return t.ReplaceRange(offset, offset, s)
}

// DeleteRange removes [start, end).
func (t *Tree) DeleteRange(start, end int) ([]string, error) {
	return t.ReplaceRange(start, end, "")
}

// rebuild replaces the root's content with newText, re-creating the kept
// marks at their (already shifted) regions. Old nodes are tombstoned, not
// recycled.
func (t *Tree) rebuild(newText string, marks []markInfo) error {
	pm := textpos.Build(newText)

	for _, id := range t.nodes[t.root].children {
		t.killSubtree(id)
	}
	t.nodes[t.root].children = nil

	var children []NodeID
	cursor := 0
	for _, m := range marks {
		if m.region.Start < cursor || !m.region.Valid(pm.CodeUnits()) {
			return fmt.Errorf("mark %s region [%d,%d) invalid after edit", m.id, m.region.Start, m.region.End)
		}
		if m.region.Start > cursor {
			plain, err := pm.Slice(cursor, m.region.Start)
			if err != nil {
				return err
			}
			children = append(children, t.alloc(node{kind: kindText, parent: t.root, text: plain}))
		}
		marked, err := pm.Slice(m.region.Start, m.region.End)
		if err != nil {
			return err
		}
		markNode := t.alloc(node{kind: kindMark, parent: t.root, markID: m.id, markType: m.typ})
		leaf := t.alloc(node{kind: kindText, parent: markNode, text: marked})
		t.nodes[markNode].children = []NodeID{leaf}
		children = append(children, markNode)
		cursor = m.region.End
	}
	if cursor < pm.CodeUnits() {
		plain, err := pm.Slice(cursor, pm.CodeUnits())
		if err != nil {
			return err
		}
		children = append(children, t.alloc(node{kind: kindText, parent: t.root, text: plain}))
	}

	t.nodes[t.root].children = children
	return nil
}

func (t *Tree) killSubtree(id NodeID) {
	for _, child := range t.nodes[id].children {
		t.killSubtree(child)
	}
	t.nodes[id].alive = false
	t.nodes[id].children = nil
}
