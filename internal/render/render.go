// Package render turns an element tree into sanitized HTML. Each element
// type has its own NodeRenderer; dispatch goes through a registry keyed by
// the type tag, with a children-or-nothing fallback for unknown types.
package render

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/element"
)

// ViewMode selects which variant of the answer controls is rendered.
type ViewMode string

const (
	// ViewTemplateEdit is the grading-setup context: answers render as a
	// "configure answer" control instead of a response field.
	ViewTemplateEdit ViewMode = "template-edit"
	// ViewStudent renders editable response inputs with teacher hints.
	ViewStudent ViewMode = "student"
	// ViewGrader renders pre-grade hints and correct/incorrect toggles.
	ViewGrader ViewMode = "grader"
	// ViewReadOnly renders responses and computed scores without controls.
	ViewReadOnly ViewMode = "readonly"
)

// ParseViewMode normalises a query-supplied view name; unknown names fall
// back to the read-only view.
func ParseViewMode(raw string) ViewMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ViewTemplateEdit), "edit":
		return ViewTemplateEdit
	case string(ViewStudent), "respond":
		return ViewStudent
	case string(ViewGrader), "grade":
		return ViewGrader
	default:
		return ViewReadOnly
	}
}

// Context carries the per-render collaborators down the tree. The answer
// store is injected here rather than looked up ambiently, so nested answer
// controls read and write through one explicit dependency.
type Context struct {
	View    ViewMode
	Answers answers.Store
	Scale   *element.WeightScale
}

// ChildFunc renders a single child at the given depth, letting each
// renderer decide its own children layout.
type ChildFunc func(b *strings.Builder, child *element.Node, depth int)

// NodeRenderer renders one element type.
type NodeRenderer interface {
	Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc)
}

// Engine dispatches nodes to their renderers.
type Engine struct {
	registry  map[element.Type]NodeRenderer
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewEngine builds an engine with the default renderer per element type
// registered.
func NewEngine(logger zerolog.Logger) *Engine {
	e := &Engine{
		registry:  make(map[element.Type]NodeRenderer),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "render_engine").Logger(),
	}

	base := baseRenderer{policy: e.sanitizer}
	e.Register(element.TypeText, textRenderer{base})
	e.Register(element.TypeHeader, headerRenderer{base})
	e.Register(element.TypeImage, imageRenderer{base})
	e.Register(element.TypeQuestion, questionRenderer{base})
	e.Register(element.TypeAnswer, answerRenderer{base})
	e.Register(element.TypeTable, tableRenderer{base})
	e.Register(element.TypeRow, rowRenderer{base})
	e.Register(element.TypeCell, cellRenderer{base})
	e.Register(element.TypeComposite, compositeRenderer{base})

	return e
}

// Register installs (or replaces) the renderer for a type tag.
func (e *Engine) Register(t element.Type, renderer NodeRenderer) {
	e.registry[t] = renderer
}

// Render walks the roots and returns the assembled HTML.
func (e *Engine) Render(rc *Context, roots []*element.Node) string {
	var b strings.Builder
	for _, root := range roots {
		e.renderNode(&b, rc, root, 0)
	}
	return b.String()
}

func (e *Engine) renderNode(b *strings.Builder, rc *Context, node *element.Node, depth int) {
	renderChild := func(b *strings.Builder, child *element.Node, childDepth int) {
		e.renderNode(b, rc, child, childDepth)
	}

	if renderer, ok := e.registry[node.Type]; ok {
		renderer.Render(b, rc, node, depth, renderChild)
		return
	}

	// Unknown type: render children in a transparent group when there are
	// any, otherwise nothing.
	if len(node.Children) > 0 {
		for _, child := range node.Children {
			e.renderNode(b, rc, child, depth+1)
		}
		return
	}

	e.logger.Warn().
		Str("element_id", node.ID.String()).
		Str("element_type", string(node.Type)).
		Msg("no renderer registered for element type")
}
