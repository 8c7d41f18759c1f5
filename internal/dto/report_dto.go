package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/models"
)

// ReportCreateRequest starts a new report from a template.
type ReportCreateRequest struct {
	TemplateID string `json:"template_id" validate:"required,uuid"`
}

// AnswerUpdate is one answer payload in a save request.
type AnswerUpdate struct {
	ElementID string `json:"element_id" validate:"required,uuid"`
	Data      string `json:"data"`
}

// ReportSaveRequest carries the answers changed since the last save. Only
// the listed answers are touched; editing an answer clears its score.
type ReportSaveRequest struct {
	Answers []AnswerUpdate `json:"answers" validate:"required,min=1,dive"`
}

// AnswerScore is one grader decision in a grade request.
type AnswerScore struct {
	ElementID string  `json:"element_id" validate:"required,uuid"`
	Score     float64 `json:"score" validate:"min=0,max=1"`
}

// ReportGradeRequest applies grader scores and finalizes the report.
type ReportGradeRequest struct {
	Scores []AnswerScore `json:"scores" validate:"required,min=1,dive"`
}

// HintAnswer is the student's current draft for the question being hinted.
type HintAnswer struct {
	ElementID string `json:"element_id" validate:"required,uuid"`
	Data      string `json:"data"`
}

// HintRequest asks for an AI hint on one question. Seq lets the client
// discard responses that arrive after a newer request was issued.
type HintRequest struct {
	QuestionID string       `json:"question_id" validate:"required,uuid"`
	Current    HintAnswer   `json:"current" validate:"required"`
	Context    []HintAnswer `json:"context" validate:"omitempty,dive"`
}

// HintResponse returns the generated hint with its sequence number.
type HintResponse struct {
	QuestionID string `json:"question_id"`
	Seq        uint64 `json:"seq"`
	Hint       string `json:"hint"`
}

// AnswerResponse is the serialized state of one answer.
type AnswerResponse struct {
	ElementID uuid.UUID         `json:"element_id"`
	Data      string            `json:"data,omitempty"`
	Score     *float64          `json:"score,omitempty"`
	PreGrade  *answers.PreGrade `json:"pre_grade,omitempty"`
}

// ReportResponse is the serialized representation returned to API clients.
// PrevAnswers carries the student's answers from their previous report on
// the same template, shown as a starting point.
type ReportResponse struct {
	ID          uuid.UUID        `json:"id"`
	TemplateID  uuid.UUID        `json:"template_id"`
	AuthorID    string           `json:"author_id"`
	GraderID    *string          `json:"grader_id,omitempty"`
	Status      string           `json:"status"`
	Score       *float64         `json:"score,omitempty"`
	CanEdit     bool             `json:"can_edit"`
	CanGrade    bool             `json:"can_grade"`
	Answers     []AnswerResponse `json:"answers"`
	PrevAnswers []AnswerResponse `json:"prev_answers,omitempty"`
	GradedAt    *time.Time       `json:"graded_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ReportSummaryResponse is the list-view projection without answers.
type ReportSummaryResponse struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	AuthorID   string    `json:"author_id"`
	Status     string    `json:"status"`
	Score      *float64  `json:"score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAnswerResponse converts a model into a DTO.
func NewAnswerResponse(model models.Answer) AnswerResponse {
	return AnswerResponse{
		ElementID: model.ElementID,
		Data:      model.AnswerData().Text,
		Score:     model.Score,
		PreGrade:  model.PreGradeHint(),
	}
}

// NewAnswerResponseSlice converts a slice of models into DTOs.
func NewAnswerResponseSlice(list []models.Answer) []AnswerResponse {
	responses := make([]AnswerResponse, 0, len(list))
	for _, answer := range list {
		responses = append(responses, NewAnswerResponse(answer))
	}

	return responses
}

// NewReportResponse converts a model into a DTO. Previous answers are
// attached by the service when a prior report exists.
func NewReportResponse(model models.Report, prev []models.Answer) ReportResponse {
	resp := ReportResponse{
		ID:         model.ID,
		TemplateID: model.TemplateID,
		AuthorID:   model.AuthorID,
		GraderID:   model.GraderID,
		Status:     string(model.Status),
		Score:      model.Score,
		CanEdit:    model.IsEditable(),
		CanGrade:   model.IsGradable(),
		Answers:    NewAnswerResponseSlice(model.Answers),
		GradedAt:   model.GradedAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
	if len(prev) > 0 {
		resp.PrevAnswers = NewAnswerResponseSlice(prev)
	}

	return resp
}

// NewReportSummarySlice converts models into list-view DTOs.
func NewReportSummarySlice(reports []models.Report) []ReportSummaryResponse {
	responses := make([]ReportSummaryResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, ReportSummaryResponse{
			ID:         report.ID,
			TemplateID: report.TemplateID,
			AuthorID:   report.AuthorID,
			Status:     string(report.Status),
			Score:      report.Score,
			CreatedAt:  report.CreatedAt,
			UpdatedAt:  report.UpdatedAt,
		})
	}

	return responses
}
