package render

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/element"
)

type baseRenderer struct {
	policy *bluemonday.Policy
}

// text sanitizes user-authored content before it reaches the document.
func (r baseRenderer) text(raw string) string {
	return r.policy.Sanitize(raw)
}

func indentClass(depth int) string {
	if depth <= 0 {
		return ""
	}
	return fmt.Sprintf(` class="indent-%d"`, depth)
}

func numberingPrefix(b *strings.Builder, r baseRenderer, props element.Properties) {
	if props.NumberingBulletText == "" {
		return
	}
	b.WriteString(`<span class="numbering">`)
	b.WriteString(r.text(props.NumberingBulletText))
	b.WriteString(`</span> `)
}

type textRenderer struct{ baseRenderer }

func (r textRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	b.WriteString(`<p` + indentClass(node.Properties.NestingLevel) + `>`)
	numberingPrefix(b, r.baseRenderer, node.Properties)
	b.WriteString(r.text(node.Properties.Data))
	b.WriteString("</p>")
}

type headerRenderer struct{ baseRenderer }

func (r headerRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	rank := node.HeaderRank()
	fmt.Fprintf(b, `<h%d%s>`, rank, indentClass(node.Properties.NestingLevel))
	numberingPrefix(b, r.baseRenderer, node.Properties)
	b.WriteString(r.text(node.Properties.Data))
	fmt.Fprintf(b, "</h%d>", rank)
}

type imageRenderer struct{ baseRenderer }

func (r imageRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	src := strings.TrimSpace(node.Properties.Data)
	if src == "" {
		return
	}
	fmt.Fprintf(b, `<img src="%s" alt="">`, r.text(src))
}

type questionRenderer struct{ baseRenderer }

func (r questionRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	answerChild := node.FindChild(element.TypeAnswer)

	editing := answerChild != nil && answerChild.Properties.EditNow
	classes := "question" + depthSuffix(depth)
	if editing {
		classes += " editing"
	}

	fmt.Fprintf(b, `<div class="%s"><p>`, classes)
	numberingPrefix(b, r.baseRenderer, node.Properties)
	if textChild := node.FindChild(element.TypeText); textChild != nil {
		b.WriteString(r.text(textChild.Properties.Data))
	} else {
		b.WriteString(r.text(node.Properties.Data))
	}
	if answerChild != nil {
		b.WriteString(`<span class="question-answer">`)
		renderChild(b, answerChild, depth+1)
		b.WriteString("</span>")
	}
	b.WriteString("</p></div>")
}

type answerRenderer struct{ baseRenderer }

func (r answerRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	if rc.View == ViewTemplateEdit {
		fmt.Fprintf(b, `<button class="answer-configure" data-element-id="%s">Configure answer</button>`, node.ID)
		return
	}

	var record answers.Record
	if rc.Answers != nil {
		record, _ = rc.Answers.Get(node.ID)
	}
	value := r.text(record.Data.Text)

	switch rc.View {
	case ViewStudent:
		if node.Properties.Simple {
			fmt.Fprintf(b, `<input class="answer" name="%s" value="%s">`, node.ID, value)
		} else {
			fmt.Fprintf(b, `<textarea class="answer" name="%s">%s</textarea>`, node.ID, value)
		}
		if hint := strings.TrimSpace(node.Properties.Data); hint != "" {
			fmt.Fprintf(b, `<span class="answer-hint">%s</span>`, r.text(hint))
		}
	case ViewGrader:
		fmt.Fprintf(b, `<span class="answer %s">%s</span>`, correctnessClass(record), value)
		if record.PreGrade != nil && record.PreGrade.Comment != "" {
			fmt.Fprintf(b, `<span class="pre-grade">%s</span>`, r.text(record.PreGrade.Comment))
		}
		fmt.Fprintf(b, `<span class="grade-toggle" data-element-id="%s"></span>`, node.ID)
		r.writeScore(b, rc, node, record)
	default:
		fmt.Fprintf(b, `<span class="answer %s">%s</span>`, correctnessClass(record), value)
		r.writeScore(b, rc, node, record)
	}
}

func (r answerRenderer) writeScore(b *strings.Builder, rc *Context, node *element.Node, record answers.Record) {
	if rc.Scale == nil || record.Score == nil {
		return
	}
	earned := rc.Scale.CalcFinalScore(node.Properties.Weight * *record.Score)
	fmt.Fprintf(b, `<span class="answer-score">%s</span>`, earned)
}

func correctnessClass(record answers.Record) string {
	switch record.Correctness() {
	case answers.Correct:
		return "correct"
	case answers.Incorrect:
		return "incorrect"
	default:
		return "undetermined"
	}
}

type tableRenderer struct{ baseRenderer }

func (r tableRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	b.WriteString("<table><tbody>")
	for _, child := range node.Children {
		renderChild(b, child, depth+1)
	}
	b.WriteString("</tbody></table>")
}

type rowRenderer struct{ baseRenderer }

func (r rowRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	b.WriteString("<tr>")
	for _, child := range node.Children {
		renderChild(b, child, depth+1)
	}
	b.WriteString("</tr>")
}

type cellRenderer struct{ baseRenderer }

func (r cellRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	b.WriteString("<td")
	// Span counts apply only to merged cells: rows maps to rowspan, cols
	// to colspan.
	if node.Properties.Merged {
		if node.Properties.Rows > 1 {
			fmt.Fprintf(b, ` rowspan="%d"`, node.Properties.Rows)
		}
		if node.Properties.Cols > 1 {
			fmt.Fprintf(b, ` colspan="%d"`, node.Properties.Cols)
		}
	}
	b.WriteString(">")
	for _, child := range node.Children {
		renderChild(b, child, depth+1)
	}
	b.WriteString("</td>")
}

type compositeRenderer struct{ baseRenderer }

func (r compositeRenderer) Render(b *strings.Builder, rc *Context, node *element.Node, depth int, renderChild ChildFunc) {
	fmt.Fprintf(b, `<div class="group%s">`, depthSuffix(depth))
	for _, child := range node.Children {
		renderChild(b, child, depth+1)
	}
	b.WriteString("</div>")
}

func depthSuffix(depth int) string {
	if depth <= 0 {
		return ""
	}
	return fmt.Sprintf(" depth-%d", depth)
}
