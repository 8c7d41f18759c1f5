package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/models"
)

// AnswerScoreUpdate carries one grader-entered score.
type AnswerScoreUpdate struct {
	AnswerID uuid.UUID
	Score    float64
}

// AnswerDataUpdate carries one student-entered answer payload.
type AnswerDataUpdate struct {
	AnswerID uuid.UUID
	Data     datatypes.JSON
}

// AnswerRepository defines persistence operations for report answers.
type AnswerRepository interface {
	BulkCreate(ctx context.Context, answersToCreate []models.Answer) error
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Answer, error)
	// UpdateData writes the answer payloads and resets their scores to
	// pending: an edited answer must be re-graded.
	UpdateData(ctx context.Context, reportID uuid.UUID, updates []AnswerDataUpdate) error
	UpdateScores(ctx context.Context, reportID uuid.UUID, updates []AnswerScoreUpdate) error
	UpdatePreGrades(ctx context.Context, reportID uuid.UUID, graded []models.Answer) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates a GORM-backed repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) BulkCreate(ctx context.Context, answersToCreate []models.Answer) error {
	if len(answersToCreate) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&answersToCreate).Error
}

func (r *answerRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Answer, error) {
	var rows []models.Answer
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *answerRepository) UpdateData(ctx context.Context, reportID uuid.UUID, updates []AnswerDataUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			err := tx.Model(&models.Answer{}).
				Where("id = ? AND report_id = ?", update.AnswerID, reportID).
				Updates(map[string]interface{}{"data": update.Data, "score": nil}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *answerRepository) UpdateScores(ctx context.Context, reportID uuid.UUID, updates []AnswerScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			err := tx.Model(&models.Answer{}).
				Where("id = ? AND report_id = ?", update.AnswerID, reportID).
				Update("score", update.Score).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *answerRepository) UpdatePreGrades(ctx context.Context, reportID uuid.UUID, graded []models.Answer) error {
	if len(graded) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, answer := range graded {
			err := tx.Model(&models.Answer{}).
				Where("id = ? AND report_id = ?", answer.ID, reportID).
				Update("pre_grade", answer.PreGrade).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
