package document

import (
	"fmt"

	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// NodeID addresses a node in the arena. Ids are stable for the lifetime
// of the node; freed slots are never reused within one tree.
type NodeID int

const invalidNode NodeID = -1

type kind int

const (
	kindRoot kind = iota
	kindText
	kindMark
)

type node struct {
	kind     kind
	parent   NodeID
	children []NodeID // root and mark nodes
	text     string   // text leaves
	markID   string   // mark nodes
	markType suggestion.Type
	alive    bool
}

// Tree is the arena-backed document. The root's children are text leaves
// and mark nodes; mark nodes contain only text leaves. Marks never nest
// and never overlap; the reconciler resolves overlaps so the wrap calls
// it issues are disjoint.
type Tree struct {
	nodes     []node
	root      NodeID
	selAnchor int
	selFocus  int
}

// New builds a tree holding the given text as a single plain leaf.
func New(text string) *Tree {
	t := &Tree{root: 0}
	t.nodes = append(t.nodes, node{kind: kindRoot, parent: invalidNode, alive: true})
	if text != "" {
		leaf := t.alloc(node{kind: kindText, parent: t.root, text: text})
		t.nodes[t.root].children = []NodeID{leaf}
	}
	return t
}

func (t *Tree) alloc(n node) NodeID {
	n.alive = true
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Len returns the document length in code units.
func (t *Tree) Len() int {
	n := 0
	for _, seg := range t.Segments() {
		n += seg.End - seg.Start
	}
	return n
}

func (t *Tree) Segments() []Segment {
	var segs []Segment
	offset := 0
	for _, childID := range t.nodes[t.root].children {
		child := t.nodes[childID]
		switch child.kind {
		case kindText:
			width := textpos.CodeUnitLen(child.text)
			segs = append(segs, Segment{Node: childID, Start: offset, End: offset + width, Text: child.text})
			offset += width
		case kindMark:
			for _, leafID := range child.children {
				leaf := t.nodes[leafID]
				width := textpos.CodeUnitLen(leaf.text)
				segs = append(segs, Segment{
					Node:     leafID,
					Start:    offset,
					End:      offset + width,
					Text:     leaf.text,
					MarkID:   child.markID,
					MarkType: child.markType,
				})
				offset += width
			}
		}
	}
	return segs
}

func (t *Tree) Text() string {
	return Text(t)
}

func (t *Tree) Selection() (int, int) {
	return t.selAnchor, t.selFocus
}

func (t *Tree) SetSelection(anchor, focus int) {
	t.selAnchor = anchor
	t.selFocus = focus
}

func (t *Tree) SplitAt(offset int) error {
	if offset < 0 || offset > t.Len() {
		return fmt.Errorf("split offset %d out of range [0,%d]", offset, t.Len())
	}

	for _, seg := range t.Segments() {
		if offset <= seg.Start || offset >= seg.End {
			continue
		}
		// Offset is strictly inside this leaf.
		byteAt, err := textpos.ByteIndex(seg.Text, offset-seg.Start)
		if err != nil {
			return fmt.Errorf("splitting leaf: %w", err)
		}

		parentID := t.nodes[seg.Node].parent
		left, right := seg.Text[:byteAt], seg.Text[byteAt:]

		// alloc may grow the arena; index again afterwards rather than
		// holding pointers across the append.
		rightID := t.alloc(node{kind: kindText, parent: parentID, text: right})
		t.nodes[seg.Node].text = left

		parent := &t.nodes[parentID]
		for i, id := range parent.children {
			if id == seg.Node {
				parent.children = append(parent.children[:i+1], append([]NodeID{rightID}, parent.children[i+1:]...)...)
				break
			}
		}
		return nil
	}
	return nil // boundary split is a no-op
}

func (t *Tree) WrapRange(start, end int, markID string, markType suggestion.Type) error {
	if start < 0 || start >= end || end > t.Len() {
		return fmt.Errorf("wrap range [%d,%d) out of bounds for length %d", start, end, t.Len())
	}
	if err := t.SplitAt(start); err != nil {
		return err
	}
	if err := t.SplitAt(end); err != nil {
		return err
	}

	// Collect the root-level leaves covered by [start, end). After the
	// splits these align exactly with the range boundaries.
	var covered []NodeID
	for _, seg := range t.Segments() {
		if seg.Start >= end || seg.End <= start {
			continue
		}
		if seg.MarkID != "" {
			return fmt.Errorf("range [%d,%d) overlaps existing mark %s", start, end, seg.MarkID)
		}
		covered = append(covered, seg.Node)
	}
	if len(covered) == 0 {
		return fmt.Errorf("no leaves cover range [%d,%d)", start, end)
	}

	markNode := t.alloc(node{kind: kindMark, parent: t.root, markID: markID, markType: markType, children: covered})

	root := &t.nodes[t.root]
	newChildren := make([]NodeID, 0, len(root.children))
	inserted := false
	for _, id := range root.children {
		if containsNode(covered, id) {
			if !inserted {
				newChildren = append(newChildren, markNode)
				inserted = true
			}
			t.nodes[id].parent = markNode
			continue
		}
		newChildren = append(newChildren, id)
	}
	root.children = newChildren
	return nil
}

func (t *Tree) Unwrap(markID string) error {
	markNode := t.findMark(markID)
	if markNode == invalidNode {
		return fmt.Errorf("mark %s not found", markID)
	}

	mark := t.nodes[markNode]
	root := &t.nodes[t.root]
	newChildren := make([]NodeID, 0, len(root.children)+len(mark.children)-1)
	for _, id := range root.children {
		if id != markNode {
			newChildren = append(newChildren, id)
			continue
		}
		for _, leafID := range mark.children {
			t.nodes[leafID].parent = t.root
			newChildren = append(newChildren, leafID)
		}
	}
	root.children = newChildren
	t.nodes[markNode].alive = false
	t.nodes[markNode].children = nil

	t.mergeAdjacentText()
	return nil
}

// HasMark reports whether a mark with the given id is present.
func (t *Tree) HasMark(markID string) bool {
	return t.findMark(markID) != invalidNode
}

// MarkIDs returns the ids of all marks in document order.
func (t *Tree) MarkIDs() []string {
	var ids []string
	for _, childID := range t.nodes[t.root].children {
		if child := t.nodes[childID]; child.kind == kindMark {
			ids = append(ids, child.markID)
		}
	}
	return ids
}

func (t *Tree) findMark(markID string) NodeID {
	for _, childID := range t.nodes[t.root].children {
		if child := t.nodes[childID]; child.kind == kindMark && child.markID == markID {
			return childID
		}
	}
	return invalidNode
}

// mergeAdjacentText coalesces neighboring root-level text leaves so
// repeated wrap/unwrap cycles do not fragment the tree.
func (t *Tree) mergeAdjacentText() {
	root := &t.nodes[t.root]
	var merged []NodeID
	for _, id := range root.children {
		n := t.nodes[id]
		if n.kind == kindText && len(merged) > 0 {
			prevID := merged[len(merged)-1]
			if prev := &t.nodes[prevID]; prev.kind == kindText {
				prev.text += n.text
				t.nodes[id].alive = false
				continue
			}
		}
		merged = append(merged, id)
	}
	root.children = merged
}

func containsNode(ids []NodeID, id NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
