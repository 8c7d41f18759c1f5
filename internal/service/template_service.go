package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/repository"
)

const maxTemplateUploadBytes int64 = 20 * 1024 * 1024

var (
	// ErrTemplateNotFound indicates the template does not exist.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateFileRequired signals that the request did not include a file upload.
	ErrTemplateFileRequired = errors.New("template file is required")
	// ErrTemplateUnsupportedType is returned when the upload is not a DOCX document.
	ErrTemplateUnsupportedType = errors.New("template file must be a DOCX document")
	// ErrTemplateTooLarge is returned when the upload exceeds the size limit.
	ErrTemplateTooLarge = errors.New("template file exceeds the 20 MB limit")
	// ErrElementTreeInvalid signals that the element payload failed schema validation.
	ErrElementTreeInvalid = errors.New("element tree is invalid")
	// ErrElementNotFound indicates a referenced element does not belong to the template.
	ErrElementNotFound = errors.New("element not found in template")
)

// elementTreeSchema validates nested element payloads before they are
// flattened into rows. Weight and header bounds mirror the domain limits.
const elementTreeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {"$ref": "#/$defs/node"},
  "$defs": {
    "node": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["text", "header", "image", "question", "answer", "table", "row", "cell", "composite"]},
        "properties": {
          "type": "object",
          "properties": {
            "weight": {"type": "number", "minimum": 0, "maximum": 20},
            "headerLevel": {"type": "integer", "minimum": 1, "maximum": 6},
            "nestingLevel": {"type": "integer", "minimum": 0, "maximum": 8},
            "displayMode": {"enum": ["always", "prefer"]},
            "answerType": {"enum": ["simple", "param", "arg"]}
          }
        },
        "children": {"type": "array", "items": {"$ref": "#/$defs/node"}}
      }
    }
  }
}`

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DocxConverter turns an uploaded DOCX document into a nested element tree.
type DocxConverter interface {
	Convert(ctx context.Context, reader io.Reader) ([]dto.ElementCreate, error)
}

// TemplateService orchestrates template authoring: creation from JSON or
// DOCX import, element edits, and listing per course.
type TemplateService interface {
	Create(ctx context.Context, authorID string, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error)
	Import(ctx context.Context, authorID string, payload dto.TemplateCreateRequest, file *multipart.FileHeader) (dto.TemplateResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.TemplateResponse, error)
	ListByCourse(ctx context.Context, courseID string, includeDrafts bool) ([]dto.TemplateSummaryResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.TemplateUpdateRequest) (dto.TemplateResponse, error)
	UpdateElements(ctx context.Context, id uuid.UUID, payload dto.TemplateElementsUpdateRequest) (dto.TemplateResponse, error)
	RemoveElements(ctx context.Context, id uuid.UUID, elementIDs []uuid.UUID) (dto.TemplateResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateService struct {
	templates repository.TemplateRepository
	validator *validator.Validate
	uploader  FileUploader
	converter DocxConverter
	schema    *jsonschema.Schema
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewTemplateService constructs a TemplateService implementation. The
// uploader and converter may be nil, which disables DOCX import.
func NewTemplateService(
	repo repository.TemplateRepository,
	validate *validator.Validate,
	uploader FileUploader,
	converter DocxConverter,
	logger zerolog.Logger,
) (TemplateService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("elements.schema.json", strings.NewReader(elementTreeSchema)); err != nil {
		return nil, fmt.Errorf("add element schema: %w", err)
	}
	schema, err := compiler.Compile("elements.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile element schema: %w", err)
	}

	return &templateService{
		templates: repo,
		validator: validate,
		uploader:  uploader,
		converter: converter,
		schema:    schema,
		tracer:    otel.Tracer("github.com/noah-isme/labreport-go-api/internal/service/template"),
		logger:    logger.With().Str("component", "template_service").Logger(),
	}, nil
}

func (s *templateService) Create(ctx context.Context, authorID string, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}
	if err := s.validateElementTree(payload.Elements); err != nil {
		return dto.TemplateResponse{}, err
	}

	template := models.Template{
		CourseID: payload.CourseID,
		AuthorID: authorID,
		Name:     payload.Name,
		IsDraft:  payload.IsDraft,
		MaxScore: payload.MaxScore,
	}
	template.ID = uuid.New()

	rows, err := flattenElements(template.ID, payload.Elements)
	if err != nil {
		return dto.TemplateResponse{}, err
	}
	template.Elements = rows

	if err := s.templates.Create(ctx, &template); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("create template: %w", err)
	}

	s.logger.Info().
		Str("template_id", template.ID.String()).
		Int("elements", len(rows)).
		Msg("template created")

	return dto.NewTemplateResponse(template), nil
}

// Import creates a template from an uploaded DOCX document. The file is
// converted into an element tree, stored alongside the original upload.
func (s *templateService) Import(ctx context.Context, authorID string, payload dto.TemplateCreateRequest, file *multipart.FileHeader) (dto.TemplateResponse, error) {
	if file == nil {
		return dto.TemplateResponse{}, ErrTemplateFileRequired
	}

	ctx, span := s.tracer.Start(ctx, "templates.import", trace.WithAttributes(
		attribute.String("template.filename", file.Filename),
		attribute.Int64("template.size", file.Size),
	))
	defer span.End()

	if s.converter == nil {
		return dto.TemplateResponse{}, errors.New("docx import is not configured")
	}
	if file.Size > maxTemplateUploadBytes {
		return dto.TemplateResponse{}, ErrTemplateTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, maxTemplateUploadBytes+1))
	if err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxTemplateUploadBytes {
		return dto.TemplateResponse{}, ErrTemplateTooLarge
	}

	kind := mimetype.Detect(content)
	if !kind.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document") {
		return dto.TemplateResponse{}, ErrTemplateUnsupportedType
	}

	elements, err := s.converter.Convert(ctx, bytes.NewReader(content))
	if err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("convert docx: %w", err)
	}
	payload.Elements = elements

	var fileURL string
	if s.uploader != nil {
		fileURL, err = s.uploader.Upload(ctx, file.Filename, bytes.NewReader(content))
		if err != nil {
			return dto.TemplateResponse{}, fmt.Errorf("upload template file: %w", err)
		}
	}

	resp, err := s.Create(ctx, authorID, payload)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	if fileURL != "" {
		template, err := s.templates.GetByID(ctx, resp.ID)
		if err != nil {
			return dto.TemplateResponse{}, fmt.Errorf("reload template: %w", err)
		}
		template.FileURL = fileURL
		if err := s.templates.Update(ctx, &template); err != nil {
			return dto.TemplateResponse{}, fmt.Errorf("store file url: %w", err)
		}
		resp.FileURL = fileURL
	}

	return resp, nil
}

func (s *templateService) Get(ctx context.Context, id uuid.UUID) (dto.TemplateResponse, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	return dto.NewTemplateResponse(template), nil
}

func (s *templateService) ListByCourse(ctx context.Context, courseID string, includeDrafts bool) ([]dto.TemplateSummaryResponse, error) {
	templates, err := s.templates.ListByCourse(ctx, courseID, includeDrafts)
	if err != nil {
		return nil, err
	}

	return dto.NewTemplateSummarySlice(templates), nil
}

func (s *templateService) Update(ctx context.Context, id uuid.UUID, payload dto.TemplateUpdateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}

	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	if payload.Name != nil {
		template.Name = *payload.Name
	}
	if payload.MaxScore != nil {
		template.MaxScore = *payload.MaxScore
	}
	if payload.IsDraft != nil {
		template.IsDraft = *payload.IsDraft
	}

	if err := s.templates.Update(ctx, &template); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("update template: %w", err)
	}

	return dto.NewTemplateResponse(template), nil
}

// UpdateElements patches element properties in bulk. Every referenced
// element must belong to the template; unknown ids fail the whole batch.
func (s *templateService) UpdateElements(ctx context.Context, id uuid.UUID, payload dto.TemplateElementsUpdateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}

	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	known := make(map[uuid.UUID]models.TemplateElement, len(template.Elements))
	for _, row := range template.Elements {
		known[row.ID] = row
	}

	rows := make([]models.TemplateElement, 0, len(payload.Updates))
	for _, update := range payload.Updates {
		elementID, err := uuid.Parse(update.ElementID)
		if err != nil {
			return dto.TemplateResponse{}, fmt.Errorf("%w: %s", ErrElementNotFound, update.ElementID)
		}
		row, ok := known[elementID]
		if !ok {
			return dto.TemplateResponse{}, fmt.Errorf("%w: %s", ErrElementNotFound, update.ElementID)
		}

		el, decodeErr := row.ToElement()
		if decodeErr != nil {
			return dto.TemplateResponse{}, fmt.Errorf("decode element %s: %w", elementID, decodeErr)
		}
		el.Properties = update.Properties.ToProperties()

		updated, encodeErr := models.NewTemplateElement(id, el)
		if encodeErr != nil {
			return dto.TemplateResponse{}, fmt.Errorf("encode element %s: %w", elementID, encodeErr)
		}
		rows = append(rows, updated)
	}

	if err := s.templates.UpdateElementProperties(ctx, id, rows); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("update elements: %w", err)
	}

	template, err = s.templates.GetByID(ctx, id)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	return dto.NewTemplateResponse(template), nil
}

// RemoveElements deletes element rows. Children of a removed element
// become orphans and are skipped when the template renders, so callers
// should list whole subtrees.
func (s *templateService) RemoveElements(ctx context.Context, id uuid.UUID, elementIDs []uuid.UUID) (dto.TemplateResponse, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}

	known := make(map[uuid.UUID]struct{}, len(template.Elements))
	for _, row := range template.Elements {
		known[row.ID] = struct{}{}
	}
	for _, elementID := range elementIDs {
		if _, ok := known[elementID]; !ok {
			return dto.TemplateResponse{}, fmt.Errorf("%w: %s", ErrElementNotFound, elementID)
		}
	}

	if err := s.templates.DeleteElements(ctx, id, elementIDs); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("delete elements: %w", err)
	}

	template, err = s.templates.GetByID(ctx, id)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	return dto.NewTemplateResponse(template), nil
}

func (s *templateService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}

	return nil
}

// validateElementTree runs the JSON schema over the nested payload.
func (s *templateService) validateElementTree(elements []dto.ElementCreate) error {
	if len(elements) == 0 {
		return nil
	}

	encoded, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return fmt.Errorf("decode elements: %w", err)
	}

	if err := s.schema.Validate(generic); err != nil {
		return fmt.Errorf("%w: %v", ErrElementTreeInvalid, err)
	}

	return nil
}

// flattenElements converts a nested tree into ordered rows with parent
// references, assigning fresh ids depth-first.
func flattenElements(templateID uuid.UUID, tree []dto.ElementCreate) ([]models.TemplateElement, error) {
	var rows []models.TemplateElement

	var walk func(nodes []dto.ElementCreate, parentID *uuid.UUID) error
	walk = func(nodes []dto.ElementCreate, parentID *uuid.UUID) error {
		for order, node := range nodes {
			el := element.Element{
				ID:         uuid.New(),
				Type:       element.Type(node.Type),
				ParentID:   parentID,
				Order:      order,
				Properties: node.Properties.ToProperties(),
			}

			row, err := models.NewTemplateElement(templateID, el)
			if err != nil {
				return fmt.Errorf("encode element: %w", err)
			}
			rows = append(rows, row)

			childParent := el.ID
			if err := walk(node.Children, &childParent); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(tree, nil); err != nil {
		return nil, err
	}

	return rows, nil
}
