package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/models"
)

// TemplateRepository defines persistence operations for templates and
// their element rows.
type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Template, error)
	ListByCourse(ctx context.Context, courseID string, includeDrafts bool) ([]models.Template, error)
	Update(ctx context.Context, template *models.Template) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateElementProperties(ctx context.Context, templateID uuid.UUID, rows []models.TemplateElement) error
	DeleteElements(ctx context.Context, templateID uuid.UUID, ids []uuid.UUID) error
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository instantiates a GORM-backed repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, template *models.Template) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Template, error) {
	var template models.Template
	err := r.db.WithContext(ctx).
		Preload("Elements", func(db *gorm.DB) *gorm.DB {
			return db.Order("element_order ASC")
		}).
		First(&template, "id = ?", id).Error
	if err != nil {
		return models.Template{}, err
	}
	return template, nil
}

func (r *templateRepository) ListByCourse(ctx context.Context, courseID string, includeDrafts bool) ([]models.Template, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if !includeDrafts {
		query = query.Where("is_draft = ?", false)
	}

	var templates []models.Template
	if err := query.Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) Update(ctx context.Context, template *models.Template) error {
	return r.db.WithContext(ctx).Save(template).Error
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&models.TemplateElement{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Template{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *templateRepository) UpdateElementProperties(ctx context.Context, templateID uuid.UUID, rows []models.TemplateElement) error {
	if len(rows) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			result := tx.Model(&models.TemplateElement{}).
				Where("id = ? AND template_id = ?", row.ID, templateID).
				Update("properties", row.Properties)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}

func (r *templateRepository) DeleteElements(ctx context.Context, templateID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("template_id = ? AND id IN ?", templateID, ids).
		Delete(&models.TemplateElement{}).Error
}
