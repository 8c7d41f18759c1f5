package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/models"
)

// ReportRepository defines persistence operations for reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Report, error)
	// GetPrevious returns the report the same author filed for the same
	// template immediately before the given one, if any.
	GetPrevious(ctx context.Context, report models.Report) (*models.Report, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Report, error)
	Update(ctx context.Context, report *models.Report) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository instantiates a GORM-backed repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Answers").
		First(&report, "id = ?", id).Error
	if err != nil {
		return models.Report{}, err
	}
	return report, nil
}

func (r *reportRepository) GetPrevious(ctx context.Context, report models.Report) (*models.Report, error) {
	var previous models.Report
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Where("author_id = ? AND template_id = ? AND created_at < ? AND id <> ?",
			report.AuthorID, report.TemplateID, report.CreatedAt, report.ID).
		Order("created_at DESC").
		First(&previous).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &previous, nil
}

func (r *reportRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) Update(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}
