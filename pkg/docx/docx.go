// Package docx converts uploaded DOCX documents into template element
// trees. Only the document body paragraphs are considered: heading
// styles become header elements, everything else becomes text.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/dto"
)

type paragraph struct {
	Style string
	Text  string
}

// Converter parses DOCX bodies into element create payloads.
type Converter struct {
	logger zerolog.Logger
}

// NewConverter constructs a Converter.
func NewConverter(logger zerolog.Logger) *Converter {
	return &Converter{logger: logger.With().Str("component", "docx").Logger()}
}

// Convert reads the DOCX archive and returns one element per paragraph.
// Headings map to header elements with their rank; other paragraphs map
// to text elements. Empty paragraphs are skipped.
func (c *Converter) Convert(ctx context.Context, reader io.Reader) ([]dto.ElementCreate, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}

	body, err := readArchiveFile(archive, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("locate document body: %w", err)
	}

	paragraphs := extractParagraphs(body)
	elements := make([]dto.ElementCreate, 0, len(paragraphs))
	for _, p := range paragraphs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}

		if level, ok := headingLevel(p.Style); ok {
			elements = append(elements, dto.ElementCreate{
				Type: "header",
				Properties: dto.ElementProperties{
					Data:        text,
					HeaderLevel: level,
				},
			})
			continue
		}

		elements = append(elements, dto.ElementCreate{
			Type:       "text",
			Properties: dto.ElementProperties{Data: text},
		})
	}

	c.logger.Debug().Int("paragraphs", len(paragraphs)).Int("elements", len(elements)).Msg("docx converted")
	return elements, nil
}

func readArchiveFile(archive *zip.Reader, target string) ([]byte, error) {
	for _, f := range archive.File {
		if strings.EqualFold(strings.TrimSpace(f.Name), target) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", target)
}

func extractParagraphs(body []byte) []paragraph {
	if len(body) == 0 {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		inParagraph bool
		inText      bool
		style       string
		text        strings.Builder
		out         []paragraph
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				inText = false
				style = ""
				text.Reset()
			case "pStyle":
				if !inParagraph {
					continue
				}
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "val") {
						style = strings.TrimSpace(a.Value)
					}
				}
			case "t":
				if inParagraph {
					inText = true
				}
			}
		case xml.CharData:
			if inParagraph && inText {
				text.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					out = append(out, paragraph{Style: style, Text: text.String()})
				}
				inParagraph = false
				inText = false
				style = ""
				text.Reset()
			}
		}
	}
	return out
}

// headingLevel maps a paragraph style like "Heading2" onto a heading
// rank, reporting false for non-heading styles.
func headingLevel(style string) (int, bool) {
	style = strings.ToLower(strings.TrimSpace(style))
	switch {
	case style == "title":
		return 1, true
	case style == "subtitle":
		return 2, true
	case strings.HasPrefix(style, "heading"):
		suffix := strings.TrimSpace(strings.TrimPrefix(style, "heading"))
		level, err := strconv.Atoi(suffix)
		if err != nil || level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return level, true
	default:
		return 0, false
	}
}
