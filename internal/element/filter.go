package element

import (
	"strings"

	"github.com/google/uuid"
)

// FilterMode selects how much of a template a condensed view keeps.
type FilterMode string

const (
	// FilterAll keeps every element.
	FilterAll FilterMode = "all"
	// FilterPrefer keeps elements tagged prefer or always.
	FilterPrefer FilterMode = "prefer"
	// FilterAlways keeps only elements tagged always.
	FilterAlways FilterMode = "always"
)

// ParseFilterMode maps the mode names used by the report views onto a
// FilterMode. The full/preferred/minimal aliases come from the viewer UI;
// anything unrecognised falls back to FilterAll.
func ParseFilterMode(raw string) FilterMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prefer", "preferred":
		return FilterPrefer
	case "always", "minimal":
		return FilterAlways
	default:
		return FilterAll
	}
}

// Keep reports whether an element with the given display mode survives the
// filter.
func (m FilterMode) Keep(mode DisplayMode) bool {
	switch m {
	case FilterPrefer:
		return mode == DisplayPrefer || mode == DisplayAlways
	case FilterAlways:
		return mode == DisplayAlways
	default:
		return true
	}
}

// ApplyFilter selects the elements visible under the given mode. It
// operates on the flat list, before tree building, and deliberately does
// not enforce visibility transitively: a filtered-out parent still
// contributes any child that passes the predicate on its own. Surviving
// children are re-attached to their nearest surviving ancestor, or become
// roots when none is left.
func ApplyFilter(mode FilterMode, elements []Element) []Element {
	if mode == FilterAll || mode == "" {
		return elements
	}

	parents := make(map[uuid.UUID]*uuid.UUID, len(elements))
	survives := make(map[uuid.UUID]bool, len(elements))
	for _, el := range elements {
		parents[el.ID] = el.ParentID
		survives[el.ID] = mode.Keep(el.Properties.DisplayMode)
	}

	kept := make([]Element, 0, len(elements))
	for _, el := range elements {
		if !survives[el.ID] {
			continue
		}
		el.ParentID = nearestSurvivor(el.ParentID, parents, survives)
		kept = append(kept, el)
	}
	return kept
}

func nearestSurvivor(parentID *uuid.UUID, parents map[uuid.UUID]*uuid.UUID, survives map[uuid.UUID]bool) *uuid.UUID {
	for parentID != nil {
		if survives[*parentID] {
			return parentID
		}
		next, ok := parents[*parentID]
		if !ok {
			// Dangling reference: leave it for the tree builder to report.
			return parentID
		}
		parentID = next
	}
	return nil
}
