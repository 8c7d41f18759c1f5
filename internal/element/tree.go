package element

import (
	"github.com/google/uuid"
)

// Orphan records an element that referenced a parent missing from the
// input list. Orphans are excluded from the tree rather than failing the
// whole build; a template with stray nodes should still render what it can.
type Orphan struct {
	ElementID uuid.UUID
	ParentID  uuid.UUID
}

// BuildTree links a flat, document-ordered element list into a tree.
//
// Two linear passes: the first indexes every element by id, the second
// appends each element to its parent's children (or to the root list when
// ParentID is nil), preserving input order. Elements whose parent id is
// absent from the list are returned as orphans and left out of the tree.
func BuildTree(elements []Element) ([]*Node, []Orphan) {
	index := make(map[uuid.UUID]*Node, len(elements))
	for _, el := range elements {
		index[el.ID] = &Node{Element: el}
	}

	roots := make([]*Node, 0, len(elements))
	var orphans []Orphan

	for _, el := range elements {
		node := index[el.ID]
		if el.ParentID == nil {
			roots = append(roots, node)
			continue
		}

		parent, ok := index[*el.ParentID]
		if !ok {
			orphans = append(orphans, Orphan{ElementID: el.ID, ParentID: *el.ParentID})
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots, orphans
}

// Flatten walks the tree depth-first and returns the elements in render
// order. Building a tree and flattening it yields exactly the valid subset
// of the original list (orphans excluded).
func Flatten(roots []*Node) []Element {
	var out []Element
	var walk func(node *Node)
	walk = func(node *Node) {
		out = append(out, node.Element)
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out
}
