package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
)

// TemplateCreateRequest describes the payload for creating a template. The
// element tree arrives nested and is flattened server-side.
type TemplateCreateRequest struct {
	CourseID string          `json:"course_id" validate:"required"`
	Name     string          `json:"name" validate:"required,min=3,max=200"`
	MaxScore float64         `json:"max_score" validate:"required,gt=0"`
	IsDraft  bool            `json:"is_draft"`
	Elements []ElementCreate `json:"elements" validate:"omitempty,dive"`
}

// TemplateUpdateRequest describes the payload for updating template
// metadata. Element edits go through the dedicated elements endpoint.
type TemplateUpdateRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=3,max=200"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
	IsDraft  *bool    `json:"is_draft"`
}

// ElementCreate is one node of an incoming nested element tree.
type ElementCreate struct {
	Type       string            `json:"type" validate:"required,oneof=text header image question answer table row cell composite"`
	Properties ElementProperties `json:"properties"`
	Children   []ElementCreate   `json:"children" validate:"omitempty,dive"`
}

// ElementProperties mirrors element.Properties with validation tags for
// the fields clients may set.
type ElementProperties struct {
	Data                string  `json:"data,omitempty"`
	NumberingBulletText string  `json:"numberingBulletText,omitempty"`
	NestingLevel        int     `json:"nestingLevel,omitempty" validate:"omitempty,min=0,max=8"`
	DisplayMode         string  `json:"displayMode,omitempty" validate:"omitempty,oneof=always prefer"`
	HeaderLevel         int     `json:"headerLevel,omitempty" validate:"omitempty,min=1,max=6"`
	CustomID            string  `json:"customId,omitempty" validate:"omitempty,max=64"`
	Weight              float64 `json:"weight,omitempty" validate:"omitempty,min=0,max=20"`
	Simple              bool    `json:"simple,omitempty"`
	Kind                string  `json:"answerType,omitempty" validate:"omitempty,oneof=simple param arg"`
	RefAnswer           string  `json:"refAnswer,omitempty"`
	EditNow             bool    `json:"editNow,omitempty"`
	Merged              bool    `json:"merged,omitempty"`
	Rows                int     `json:"rows,omitempty" validate:"omitempty,min=1,max=50"`
	Cols                int     `json:"cols,omitempty" validate:"omitempty,min=1,max=50"`
}

// ElementUpdateRequest patches the properties of one stored element.
type ElementUpdateRequest struct {
	ElementID  string            `json:"element_id" validate:"required,uuid"`
	Properties ElementProperties `json:"properties" validate:"required"`
}

// TemplateElementsUpdateRequest bulk-patches element properties.
type TemplateElementsUpdateRequest struct {
	Updates []ElementUpdateRequest `json:"updates" validate:"required,min=1,dive"`
}

// ElementResponse is the serialized flat representation of one element.
type ElementResponse struct {
	ID         uuid.UUID          `json:"id"`
	Type       string             `json:"type"`
	ParentID   *uuid.UUID         `json:"parent_id,omitempty"`
	Order      int                `json:"order"`
	Properties element.Properties `json:"properties"`
}

// TemplateResponse is the serialized representation returned to API clients.
type TemplateResponse struct {
	ID        uuid.UUID         `json:"id"`
	CourseID  string            `json:"course_id"`
	AuthorID  string            `json:"author_id"`
	Name      string            `json:"name"`
	IsDraft   bool              `json:"is_draft"`
	MaxScore  float64           `json:"max_score"`
	FileURL   string            `json:"file_url,omitempty"`
	Elements  []ElementResponse `json:"elements,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TemplateSummaryResponse is the list-view projection without elements.
type TemplateSummaryResponse struct {
	ID        uuid.UUID `json:"id"`
	CourseID  string    `json:"course_id"`
	Name      string    `json:"name"`
	IsDraft   bool      `json:"is_draft"`
	MaxScore  float64   `json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToProperties converts the request projection into the domain type.
func (p ElementProperties) ToProperties() element.Properties {
	return element.Properties{
		Data:                p.Data,
		NumberingBulletText: p.NumberingBulletText,
		NestingLevel:        p.NestingLevel,
		DisplayMode:         element.DisplayMode(p.DisplayMode),
		HeaderLevel:         p.HeaderLevel,
		CustomID:            p.CustomID,
		Weight:              p.Weight,
		Simple:              p.Simple,
		Kind:                element.AnswerKind(p.Kind),
		RefAnswer:           p.RefAnswer,
		EditNow:             p.EditNow,
		Merged:              p.Merged,
		Rows:                p.Rows,
		Cols:                p.Cols,
	}
}

// NewElementResponse converts a domain element into a DTO.
func NewElementResponse(el element.Element) ElementResponse {
	return ElementResponse{
		ID:         el.ID,
		Type:       string(el.Type),
		ParentID:   el.ParentID,
		Order:      el.Order,
		Properties: el.Properties,
	}
}

// NewTemplateResponse converts a model into a DTO, including its elements.
func NewTemplateResponse(model models.Template) TemplateResponse {
	elements := model.ElementList()

	responses := make([]ElementResponse, 0, len(elements))
	for _, el := range elements {
		responses = append(responses, NewElementResponse(el))
	}

	return TemplateResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		AuthorID:  model.AuthorID,
		Name:      model.Name,
		IsDraft:   model.IsDraft,
		MaxScore:  model.MaxScore,
		FileURL:   model.FileURL,
		Elements:  responses,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewTemplateSummarySlice converts models into list-view DTOs.
func NewTemplateSummarySlice(templates []models.Template) []TemplateSummaryResponse {
	responses := make([]TemplateSummaryResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, TemplateSummaryResponse{
			ID:        template.ID,
			CourseID:  template.CourseID,
			Name:      template.Name,
			IsDraft:   template.IsDraft,
			MaxScore:  template.MaxScore,
			CreatedAt: template.CreatedAt,
			UpdatedAt: template.UpdatedAt,
		})
	}

	return responses
}
