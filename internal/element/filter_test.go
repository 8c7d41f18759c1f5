package element

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyFilterByMode(t *testing.T) {
	always := newTestElement(TypeText, nil, Properties{DisplayMode: DisplayAlways})
	prefer := newTestElement(TypeText, nil, Properties{DisplayMode: DisplayPrefer})
	unset := newTestElement(TypeText, nil, Properties{})
	elements := []Element{always, prefer, unset}

	require.Len(t, ApplyFilter(FilterAll, elements), 3)

	preferred := ApplyFilter(FilterPrefer, elements)
	require.Len(t, preferred, 2)
	require.Equal(t, always.ID, preferred[0].ID)
	require.Equal(t, prefer.ID, preferred[1].ID)

	minimal := ApplyFilter(FilterAlways, elements)
	require.Len(t, minimal, 1)
	require.Equal(t, always.ID, minimal[0].ID)
}

func TestApplyFilterReparentsSurvivingChildren(t *testing.T) {
	grandparent := newTestElement(TypeComposite, nil, Properties{DisplayMode: DisplayAlways})
	parent := newTestElement(TypeComposite, &grandparent.ID, Properties{DisplayMode: DisplayPrefer})
	child := newTestElement(TypeText, &parent.ID, Properties{DisplayMode: DisplayAlways})

	kept := ApplyFilter(FilterAlways, []Element{grandparent, parent, child})

	require.Len(t, kept, 2)
	require.Nil(t, kept[0].ParentID)
	require.NotNil(t, kept[1].ParentID)
	require.Equal(t, grandparent.ID, *kept[1].ParentID)

	roots, orphans := BuildTree(kept)
	require.Empty(t, orphans)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	require.Equal(t, child.ID, roots[0].Children[0].ID)
}

func TestApplyFilterPromotesToRootWhenNoAncestorSurvives(t *testing.T) {
	parent := newTestElement(TypeComposite, nil, Properties{})
	child := newTestElement(TypeText, &parent.ID, Properties{DisplayMode: DisplayAlways})

	kept := ApplyFilter(FilterAlways, []Element{parent, child})

	require.Len(t, kept, 1)
	require.Nil(t, kept[0].ParentID)
}

func TestParseFilterModeAliases(t *testing.T) {
	require.Equal(t, FilterAll, ParseFilterMode("full"))
	require.Equal(t, FilterAll, ParseFilterMode(""))
	require.Equal(t, FilterPrefer, ParseFilterMode("preferred"))
	require.Equal(t, FilterPrefer, ParseFilterMode("prefer"))
	require.Equal(t, FilterAlways, ParseFilterMode("minimal"))
	require.Equal(t, FilterAlways, ParseFilterMode("ALWAYS"))
}
