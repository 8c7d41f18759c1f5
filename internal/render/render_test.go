package render

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/element"
)

func node(t element.Type, props element.Properties, children ...*element.Node) *element.Node {
	return &element.Node{
		Element:  element.Element{ID: uuid.New(), Type: t, Properties: props},
		Children: children,
	}
}

func TestRenderLabScenario(t *testing.T) {
	header := node(element.TypeHeader, element.Properties{Data: "Lab 1", HeaderLevel: 1})
	answer := node(element.TypeAnswer, element.Properties{Weight: 10, Simple: true})
	question := node(element.TypeQuestion, element.Properties{Data: "2+2="}, answer)
	roots := []*element.Node{header, question}

	store := answers.NewMemoryStore()
	scale := element.NewWeightScale(roots, 10)
	engine := NewEngine(zerolog.Nop())

	// Student view: heading, question line, empty input.
	html := engine.Render(&Context{View: ViewStudent, Answers: store, Scale: scale}, roots)
	require.Contains(t, html, "<h1>Lab 1</h1>")
	require.Contains(t, html, "2+2=")
	require.Contains(t, html, `<input class="answer" name="`+answer.ID.String()+`"`)

	// The student submits "4" and a grader marks it correct.
	text := "4"
	score := 1.0
	store.Update(answer.ID, answers.Partial{Text: &text})
	store.Update(answer.ID, answers.Partial{Score: &score})

	graded := engine.Render(&Context{View: ViewGrader, Answers: store, Scale: scale}, roots)
	require.Contains(t, graded, `class="answer correct"`)
	require.Contains(t, graded, `<span class="answer-score">10.00</span>`)
	require.Equal(t, "10.00", scale.CalcFinalScore(10))
}

func TestRenderUnknownTypeFallsBackToChildren(t *testing.T) {
	child := node(element.TypeText, element.Properties{Data: "inside"})
	unknown := node(element.Type("mystery"), element.Properties{}, child)

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewReadOnly}, []*element.Node{unknown})

	require.Contains(t, html, "inside")
	require.NotContains(t, html, "mystery")
}

func TestRenderUnknownLeafRendersNothing(t *testing.T) {
	unknown := node(element.Type("mystery"), element.Properties{})

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewReadOnly}, []*element.Node{unknown})

	require.Empty(t, html)
}

func TestRenderSanitizesAuthoredMarkup(t *testing.T) {
	hostile := node(element.TypeText, element.Properties{Data: `<script>alert(1)</script>plain`})

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewReadOnly}, []*element.Node{hostile})

	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "plain")
}

func TestRenderMergedCellSpans(t *testing.T) {
	merged := node(element.TypeCell, element.Properties{Merged: true, Rows: 2, Cols: 3})
	plain := node(element.TypeCell, element.Properties{Rows: 2, Cols: 3})
	row := node(element.TypeRow, element.Properties{}, merged, plain)
	table := node(element.TypeTable, element.Properties{}, row)

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewReadOnly}, []*element.Node{table})

	require.Contains(t, html, `<td rowspan="2" colspan="3">`)
	// Span counts on an unmerged cell are ignored.
	require.True(t, strings.Contains(html, "<td></td>"))
}

func TestRenderQuestionHighlightsAnswerUnderEdit(t *testing.T) {
	answer := node(element.TypeAnswer, element.Properties{Weight: 5, EditNow: true})
	question := node(element.TypeQuestion, element.Properties{Data: "Why?"}, answer)

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewTemplateEdit}, []*element.Node{question})

	require.Contains(t, html, "editing")
	require.Contains(t, html, "Configure answer")
}

func TestRenderAnswerStudentHint(t *testing.T) {
	answer := node(element.TypeAnswer, element.Properties{Weight: 5, Data: "look at table 2"})

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewStudent, Answers: answers.NewMemoryStore()}, []*element.Node{answer})

	require.Contains(t, html, `<span class="answer-hint">look at table 2</span>`)
	require.Contains(t, html, "<textarea")
}

func TestRenderHeaderDefaultsRank(t *testing.T) {
	header := node(element.TypeHeader, element.Properties{Data: "Untitled"})

	engine := NewEngine(zerolog.Nop())
	html := engine.Render(&Context{View: ViewReadOnly}, []*element.Node{header})

	require.Contains(t, html, "<h3>Untitled</h3>")
}
