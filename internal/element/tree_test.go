package element

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestElement(t Type, parent *uuid.UUID, props Properties) Element {
	return Element{
		ID:         uuid.New(),
		Type:       t,
		ParentID:   parent,
		Properties: props,
	}
}

func TestBuildTreeLinksChildrenInOrder(t *testing.T) {
	root := newTestElement(TypeComposite, nil, Properties{})
	first := newTestElement(TypeText, &root.ID, Properties{Data: "first"})
	second := newTestElement(TypeText, &root.ID, Properties{Data: "second"})

	roots, orphans := BuildTree([]Element{root, first, second})

	require.Empty(t, orphans)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 2)
	require.Equal(t, "first", roots[0].Children[0].Properties.Data)
	require.Equal(t, "second", roots[0].Children[1].Properties.Data)
}

func TestBuildTreeDropsOrphans(t *testing.T) {
	a := newTestElement(TypeText, nil, Properties{Data: "a"})
	missing := uuid.New()
	b := newTestElement(TypeText, &missing, Properties{Data: "b"})

	roots, orphans := BuildTree([]Element{a, b})

	require.Len(t, roots, 1)
	require.Equal(t, a.ID, roots[0].ID)
	require.Len(t, orphans, 1)
	require.Equal(t, b.ID, orphans[0].ElementID)
	require.Equal(t, missing, orphans[0].ParentID)
}

func TestBuildTreeFlattenRoundTrip(t *testing.T) {
	root := newTestElement(TypeTable, nil, Properties{})
	row := newTestElement(TypeRow, &root.ID, Properties{})
	cell := newTestElement(TypeCell, &row.ID, Properties{})
	text := newTestElement(TypeText, &cell.ID, Properties{Data: "cell text"})
	orphan := newTestElement(TypeText, ptr(uuid.New()), Properties{Data: "stray"})

	input := []Element{root, row, cell, text, orphan}
	roots, orphans := BuildTree(input)
	require.Len(t, orphans, 1)

	flattened := Flatten(roots)

	seen := make(map[uuid.UUID]bool, len(flattened))
	for _, el := range flattened {
		seen[el.ID] = true
	}

	require.Len(t, flattened, len(input)-1)
	for _, el := range []Element{root, row, cell, text} {
		require.True(t, seen[el.ID], "element %s missing after round trip", el.ID)
	}
	require.False(t, seen[orphan.ID])
}

func TestHeaderRankClamping(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{level: 0, want: DefaultHeaderLevel},
		{level: -2, want: DefaultHeaderLevel},
		{level: 1, want: 1},
		{level: 6, want: 6},
		{level: 9, want: MaxHeaderLevel},
	}

	for _, tc := range cases {
		el := Element{Type: TypeHeader, Properties: Properties{HeaderLevel: tc.level}}
		require.Equal(t, tc.want, el.HeaderRank(), "headerLevel %d", tc.level)
	}
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
