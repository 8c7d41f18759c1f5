package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/element"
)

// Template is a lab-assignment document: a named tree of typed content
// elements authored once and instantiated as many reports.
type Template struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"template_id"`
	CourseID  string            `gorm:"size:64;index;not null" json:"course_id"`
	AuthorID  string            `gorm:"size:64;not null" json:"author_id"`
	Name      string            `gorm:"size:255;not null" json:"name"`
	IsDraft   bool              `gorm:"not null;default:true" json:"is_draft"`
	MaxScore  float64           `gorm:"not null;default:0" json:"max_score"`
	FileURL   string            `gorm:"size:512" json:"file_url"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Elements  []TemplateElement `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"elements"`
}

// BeforeCreate assigns the template id when the caller did not.
func (t *Template) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TemplateElement is one flat row of a template's element list. Hierarchy
// lives in ParentID, document order in Order, the typed payload in the
// Properties JSON column.
type TemplateElement struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"element_id"`
	TemplateID uuid.UUID      `gorm:"type:uuid;index;not null" json:"template_id"`
	Type       string         `gorm:"size:32;not null" json:"element_type"`
	ParentID   *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id"`
	Order      int            `gorm:"column:element_order;not null" json:"order"`
	Properties datatypes.JSON `gorm:"type:json" json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ToElement decodes the row into the renderer's element model.
func (e TemplateElement) ToElement() (element.Element, error) {
	var props element.Properties
	if len(e.Properties) > 0 {
		if err := json.Unmarshal(e.Properties, &props); err != nil {
			return element.Element{}, err
		}
	}

	return element.Element{
		ID:         e.ID,
		Type:       element.Type(e.Type),
		ParentID:   e.ParentID,
		Order:      e.Order,
		Properties: props,
	}, nil
}

// NewTemplateElement encodes an element into its storage row.
func NewTemplateElement(templateID uuid.UUID, el element.Element) (TemplateElement, error) {
	props, err := json.Marshal(el.Properties)
	if err != nil {
		return TemplateElement{}, err
	}

	return TemplateElement{
		ID:         el.ID,
		TemplateID: templateID,
		Type:       string(el.Type),
		ParentID:   el.ParentID,
		Order:      el.Order,
		Properties: datatypes.JSON(props),
	}, nil
}

// ElementList decodes every element row, skipping rows whose payload can
// no longer be parsed.
func (t Template) ElementList() []element.Element {
	out := make([]element.Element, 0, len(t.Elements))
	for _, row := range t.Elements {
		el, err := row.ToElement()
		if err != nil {
			continue
		}
		out = append(out, el)
	}
	return out
}
