package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ReportStatusSaved is the editable initial state.
	ReportStatusSaved = "saved"
	// ReportStatusSubmitted means the report awaits grading.
	ReportStatusSubmitted = "submitted"
	// ReportStatusGraded means a final score has been recorded.
	ReportStatusGraded = "graded"
)

// Report is one student's instantiation of a template, holding answers and
// the eventual grade.
type Report struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"report_id"`
	TemplateID uuid.UUID  `gorm:"type:uuid;index;not null" json:"template_id"`
	AuthorID   string     `gorm:"size:64;index;not null" json:"author_id"`
	GraderID   *string    `gorm:"size:64" json:"grader_id"`
	Status     string     `gorm:"size:32;not null" json:"status"`
	Score      *float64   `json:"score"`
	GradedAt   *time.Time `json:"graded_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Template   Template   `gorm:"foreignKey:TemplateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Answers    []Answer   `gorm:"foreignKey:ReportID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

// BeforeCreate assigns the report id when the caller did not.
func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsEditable reports whether a student may still change answers.
func (r Report) IsEditable() bool {
	return r.Status == ReportStatusSaved
}

// IsGradable reports whether a grader may record scores.
func (r Report) IsGradable() bool {
	return r.Status == ReportStatusSubmitted
}
