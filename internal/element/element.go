// Package element holds the template element model: the typed content
// nodes a lab report template is made of, the flat-to-tree builder, the
// display-mode filter and the weight-to-score arithmetic.
package element

import (
	"github.com/google/uuid"
)

// Type discriminates the template element union.
type Type string

const (
	TypeText      Type = "text"
	TypeImage     Type = "image"
	TypeHeader    Type = "header"
	TypeQuestion  Type = "question"
	TypeAnswer    Type = "answer"
	TypeTable     Type = "table"
	TypeRow       Type = "row"
	TypeCell      Type = "cell"
	TypeComposite Type = "composite"
)

// DisplayMode tags an element with its visibility under condensed views.
type DisplayMode string

const (
	// DisplayAlways marks elements visible in every view.
	DisplayAlways DisplayMode = "always"
	// DisplayPrefer marks elements visible in the preferred and full views.
	DisplayPrefer DisplayMode = "prefer"
)

// AnswerKind selects the pre-grading strategy for an answer element.
type AnswerKind string

const (
	AnswerSimple AnswerKind = "simple"
	AnswerParam  AnswerKind = "param"
	AnswerArg    AnswerKind = "arg"
)

const (
	// MinWeight and MaxWeight bound the point value of a single answer.
	MinWeight = 0.0
	MaxWeight = 20.0

	// MaxHeaderLevel is the deepest heading rank a header element may carry.
	MaxHeaderLevel = 6
	// DefaultHeaderLevel is used when a header carries no explicit rank.
	DefaultHeaderLevel = 3
)

// Properties is the type-specific payload of an element. Only the fields
// relevant to the element's Type are populated; the rest stay zero.
type Properties struct {
	// Data carries the scalar payload: text for text/header/question
	// elements, the resource URL for images, the teacher-authored hint
	// for answers. Container elements keep their children as separate
	// rows and leave Data empty.
	Data string `json:"data,omitempty"`

	NumberingBulletText string      `json:"numberingBulletText,omitempty"`
	NestingLevel        int         `json:"nestingLevel,omitempty"`
	DisplayMode         DisplayMode `json:"displayMode,omitempty"`

	// Header only.
	HeaderLevel int `json:"headerLevel,omitempty"`

	// Answer only.
	CustomID  string     `json:"customId,omitempty"`
	Weight    float64    `json:"weight,omitempty"`
	Simple    bool       `json:"simple,omitempty"`
	Kind      AnswerKind `json:"answerType,omitempty"`
	RefAnswer string     `json:"refAnswer,omitempty"`
	// EditNow is a transient flag set while a grader edits the answer's
	// settings in place; it never persists.
	EditNow bool `json:"editNow,omitempty"`

	// Cell only. Rows and Cols are span counts honoured when Merged is set.
	Merged bool `json:"merged,omitempty"`
	Rows   int  `json:"rows,omitempty"`
	Cols   int  `json:"cols,omitempty"`
}

// Element is one flat template node as stored and transported: document
// order is the slice order, hierarchy is expressed through ParentID.
type Element struct {
	ID         uuid.UUID  `json:"element_id"`
	Type       Type       `json:"element_type"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Order      int        `json:"order"`
	Properties Properties `json:"properties"`
}

// IsRoot reports whether the element sits at the top of the hierarchy.
func (e Element) IsRoot() bool {
	return e.ParentID == nil
}

// HeaderRank returns the element's heading rank clamped to [1, MaxHeaderLevel],
// falling back to DefaultHeaderLevel when none is set.
func (e Element) HeaderRank() int {
	level := e.Properties.HeaderLevel
	if level < 1 {
		return DefaultHeaderLevel
	}
	if level > MaxHeaderLevel {
		return MaxHeaderLevel
	}
	return level
}

// Node is an element linked into its rendered hierarchy.
type Node struct {
	Element
	Children []*Node
}

// FindChild returns the first direct child of the given type, or nil.
func (n *Node) FindChild(t Type) *Node {
	for _, child := range n.Children {
		if child.Type == t {
			return child
		}
	}
	return nil
}
