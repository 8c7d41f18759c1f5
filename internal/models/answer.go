package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/answers"
)

// Answer is the persisted response for one answer element of one report.
// Data and PreGrade are stored as JSON so the payload can evolve with the
// element model.
type Answer struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"answer_id"`
	ReportID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"report_id"`
	ElementID uuid.UUID      `gorm:"type:uuid;index;not null" json:"element_id"`
	Data      datatypes.JSON `gorm:"type:json" json:"data"`
	Score     *float64       `json:"score"`
	PreGrade  datatypes.JSON `gorm:"type:json" json:"pre_grade"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BeforeCreate assigns the answer id when the caller did not.
func (a *Answer) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SetData serializes the answer payload into the JSON column.
func (a *Answer) SetData(data answers.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	a.Data = datatypes.JSON(raw)
	return nil
}

// AnswerData decodes the stored payload; a missing or unparsable column
// yields the zero value.
func (a Answer) AnswerData() answers.Data {
	var data answers.Data
	if len(a.Data) > 0 {
		_ = json.Unmarshal(a.Data, &data)
	}
	return data
}

// SetPreGrade serializes the grading hint into its JSON column.
func (a *Answer) SetPreGrade(pre answers.PreGrade) error {
	raw, err := json.Marshal(pre)
	if err != nil {
		return err
	}
	a.PreGrade = datatypes.JSON(raw)
	return nil
}

// PreGradeHint decodes the stored hint, or nil when none was recorded.
func (a Answer) PreGradeHint() *answers.PreGrade {
	if len(a.PreGrade) == 0 {
		return nil
	}
	var pre answers.PreGrade
	if err := json.Unmarshal(a.PreGrade, &pre); err != nil {
		return nil
	}
	return &pre
}

// ToRecord converts the row into the in-memory answer state used by the
// renderer.
func (a Answer) ToRecord() answers.Record {
	return answers.Record{
		ElementID: a.ElementID,
		Data:      a.AnswerData(),
		Score:     a.Score,
		PreGrade:  a.PreGradeHint(),
	}
}
