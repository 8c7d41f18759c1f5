package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/pregrade"
	"github.com/noah-isme/labreport-go-api/internal/repository"
)

var (
	// ErrReportNotEditable is returned when answers arrive for a report
	// that has already been submitted or graded.
	ErrReportNotEditable = errors.New("report is not editable")
	// ErrReportNotGradable is returned when grading a report that is not submitted.
	ErrReportNotGradable = errors.New("report is not submitted for grading")
	// ErrReportForbidden indicates the actor does not own the report.
	ErrReportForbidden = errors.New("report belongs to another author")
	// ErrAnswerNotFound indicates the payload references an element with no answer row.
	ErrAnswerNotFound = errors.New("answer not found in report")
)

// ReportService manages the report lifecycle: creation from a template,
// answer saves, submission, and grading.
type ReportService interface {
	Create(ctx context.Context, authorID string, payload dto.ReportCreateRequest) (dto.ReportResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.ReportResponse, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]dto.ReportSummaryResponse, error)
	Save(ctx context.Context, id uuid.UUID, actorID string, payload dto.ReportSaveRequest) (dto.ReportResponse, error)
	Submit(ctx context.Context, id uuid.UUID, actorID string) (dto.ReportResponse, error)
	Unsubmit(ctx context.Context, id uuid.UUID, actorID string) (dto.ReportResponse, error)
	Grade(ctx context.Context, id uuid.UUID, graderID string, payload dto.ReportGradeRequest) (dto.ReportResponse, error)
}

type reportService struct {
	reports   repository.ReportRepository
	templates repository.TemplateRepository
	answers   repository.AnswerRepository
	validator *validator.Validate
	renders   RenderService
	events    EventService
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewReportService constructs a ReportService implementation.
func NewReportService(
	reportRepo repository.ReportRepository,
	templateRepo repository.TemplateRepository,
	answerRepo repository.AnswerRepository,
	validate *validator.Validate,
	renders RenderService,
	events EventService,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		reports:   reportRepo,
		templates: templateRepo,
		answers:   answerRepo,
		validator: validate,
		renders:   renders,
		events:    events,
		logger:    logger.With().Str("component", "report_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/labreport-go-api/internal/service/report"),
		now:       time.Now,
	}
}

// Create starts a report from a published template, seeding one empty
// answer row per answer element so saves can update in place.
func (s *reportService) Create(ctx context.Context, authorID string, payload dto.ReportCreateRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	templateID, err := uuid.Parse(payload.TemplateID)
	if err != nil {
		return dto.ReportResponse{}, ErrTemplateNotFound
	}

	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrTemplateNotFound
		}
		return dto.ReportResponse{}, err
	}
	if template.IsDraft {
		return dto.ReportResponse{}, ErrTemplateNotFound
	}

	report := models.Report{
		TemplateID: template.ID,
		AuthorID:   authorID,
		Status:     models.ReportStatusSaved,
	}
	report.ID = uuid.New()

	for _, el := range template.ElementList() {
		if el.Type != element.TypeAnswer {
			continue
		}
		answer := models.Answer{ReportID: report.ID, ElementID: el.ID}
		answer.ID = uuid.New()
		report.Answers = append(report.Answers, answer)
	}

	if err := s.reports.Create(ctx, &report); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info().
		Str("report_id", report.ID.String()).
		Str("template_id", template.ID.String()).
		Int("answers", len(report.Answers)).
		Msg("report created")

	prev, err := s.previousAnswers(ctx, report)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report, prev), nil
}

func (s *reportService) Get(ctx context.Context, id uuid.UUID) (dto.ReportResponse, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	prev, err := s.previousAnswers(ctx, report)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report, prev), nil
}

func (s *reportService) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]dto.ReportSummaryResponse, error) {
	reports, err := s.reports.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	return dto.NewReportSummarySlice(reports), nil
}

// Save merges the changed answers into the report. Only listed answers
// are touched; editing an answer clears any score it carried.
func (s *reportService) Save(ctx context.Context, id uuid.UUID, actorID string, payload dto.ReportSaveRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	report, err := s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	if report.AuthorID != actorID {
		return dto.ReportResponse{}, ErrReportForbidden
	}
	if !report.IsEditable() {
		return dto.ReportResponse{}, ErrReportNotEditable
	}

	byElement := answersByElement(report.Answers)
	updates := make([]repository.AnswerDataUpdate, 0, len(payload.Answers))
	for _, update := range payload.Answers {
		elementID, parseErr := uuid.Parse(update.ElementID)
		if parseErr != nil {
			return dto.ReportResponse{}, fmt.Errorf("%w: %s", ErrAnswerNotFound, update.ElementID)
		}
		answer, ok := byElement[elementID]
		if !ok {
			return dto.ReportResponse{}, fmt.Errorf("%w: %s", ErrAnswerNotFound, update.ElementID)
		}

		if err := answer.SetData(answers.Data{Text: update.Data}); err != nil {
			return dto.ReportResponse{}, fmt.Errorf("encode answer %s: %w", elementID, err)
		}
		updates = append(updates, repository.AnswerDataUpdate{AnswerID: answer.ID, Data: answer.Data})
	}

	if err := s.answers.UpdateData(ctx, report.ID, updates); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("save answers: %w", err)
	}

	report, err = s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	s.renders.InvalidateReport(ctx, report.ID)
	s.publish(ctx, EventReportSaved, report)

	return dto.NewReportResponse(report, nil), nil
}

// Submit freezes the report for grading and pre-grades its answers in the
// background so graders open it with hints already attached.
func (s *reportService) Submit(ctx context.Context, id uuid.UUID, actorID string) (dto.ReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "reports.submit", trace.WithAttributes(
		attribute.String("report.id", id.String()),
	))
	defer span.End()

	report, err := s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	if report.AuthorID != actorID {
		return dto.ReportResponse{}, ErrReportForbidden
	}
	if !report.IsEditable() {
		return dto.ReportResponse{}, ErrReportNotEditable
	}

	report.Status = models.ReportStatusSubmitted
	if err := s.reports.Update(ctx, &report); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("submit report: %w", err)
	}

	s.renders.InvalidateReport(ctx, report.ID)
	s.publish(ctx, EventReportSubmitted, report)

	go s.preGrade(context.WithoutCancel(ctx), report)

	return dto.NewReportResponse(report, nil), nil
}

// Unsubmit returns a submitted report to its author for further edits.
func (s *reportService) Unsubmit(ctx context.Context, id uuid.UUID, actorID string) (dto.ReportResponse, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	if report.AuthorID != actorID {
		return dto.ReportResponse{}, ErrReportForbidden
	}
	if !report.IsGradable() {
		return dto.ReportResponse{}, ErrReportNotGradable
	}

	report.Status = models.ReportStatusSaved
	if err := s.reports.Update(ctx, &report); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("unsubmit report: %w", err)
	}

	s.renders.InvalidateReport(ctx, report.ID)
	s.publish(ctx, EventReportUnsubmitted, report)

	return dto.NewReportResponse(report, nil), nil
}

// Grade records the grader's per-answer scores and derives the report
// score from the answer weights, clamped to the template's maximum.
func (s *reportService) Grade(ctx context.Context, id uuid.UUID, graderID string, payload dto.ReportGradeRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	report, err := s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	if !report.IsGradable() {
		return dto.ReportResponse{}, ErrReportNotGradable
	}

	template, err := s.templates.GetByID(ctx, report.TemplateID)
	if err != nil {
		return dto.ReportResponse{}, fmt.Errorf("load template: %w", err)
	}

	byElement := answersByElement(report.Answers)
	scores := make(map[uuid.UUID]float64, len(payload.Scores))
	updates := make([]repository.AnswerScoreUpdate, 0, len(payload.Scores))
	for _, entry := range payload.Scores {
		elementID, parseErr := uuid.Parse(entry.ElementID)
		if parseErr != nil {
			return dto.ReportResponse{}, fmt.Errorf("%w: %s", ErrAnswerNotFound, entry.ElementID)
		}
		answer, ok := byElement[elementID]
		if !ok {
			return dto.ReportResponse{}, fmt.Errorf("%w: %s", ErrAnswerNotFound, entry.ElementID)
		}
		scores[elementID] = entry.Score
		updates = append(updates, repository.AnswerScoreUpdate{AnswerID: answer.ID, Score: entry.Score})
	}

	if err := s.answers.UpdateScores(ctx, report.ID, updates); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("store scores: %w", err)
	}

	// Scores already stored on previous grading rounds keep counting.
	for _, answer := range report.Answers {
		if _, listed := scores[answer.ElementID]; !listed && answer.Score != nil {
			scores[answer.ElementID] = *answer.Score
		}
	}

	total := weightedScore(template, scores)
	gradedAt := s.now().UTC()

	report.Status = models.ReportStatusGraded
	report.GraderID = &graderID
	report.Score = &total
	report.GradedAt = &gradedAt
	if err := s.reports.Update(ctx, &report); err != nil {
		return dto.ReportResponse{}, fmt.Errorf("grade report: %w", err)
	}

	report, err = s.loadReport(ctx, id)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	s.renders.InvalidateReport(ctx, report.ID)
	s.publish(ctx, EventReportGraded, report)

	s.logger.Info().
		Str("report_id", report.ID.String()).
		Float64("score", total).
		Msg("report graded")

	return dto.NewReportResponse(report, nil), nil
}

func (s *reportService) loadReport(ctx context.Context, id uuid.UUID) (models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}

// previousAnswers returns the answers from the author's previous report on
// the same template, so the client can offer them as a starting point.
func (s *reportService) previousAnswers(ctx context.Context, report models.Report) ([]models.Answer, error) {
	prev, err := s.reports.GetPrevious(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("load previous report: %w", err)
	}
	if prev == nil {
		return nil, nil
	}

	rows, err := s.answers.ListByReport(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("load previous answers: %w", err)
	}
	return rows, nil
}

// preGrade runs the automatic graders over the submitted answers and
// stores the results as advisory hints. Failures only log; a submit never
// bounces because pre-grading broke.
func (s *reportService) preGrade(ctx context.Context, report models.Report) {
	template, err := s.templates.GetByID(ctx, report.TemplateID)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID.String()).Msg("pre-grade: load template")
		return
	}

	byElement := answersByElement(report.Answers)
	var candidates []pregrade.Candidate
	for _, el := range template.ElementList() {
		if el.Type != element.TypeAnswer || el.Properties.RefAnswer == "" {
			continue
		}
		answer, ok := byElement[el.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, pregrade.Candidate{
			ElementID: el.ID,
			CustomID:  el.Properties.CustomID,
			Kind:      el.Properties.Kind,
			Given:     answer.AnswerData().Text,
			Reference: el.Properties.RefAnswer,
		})
	}
	if len(candidates) == 0 {
		return
	}

	graded := pregrade.NewService(candidates).Grade(candidates)
	rows := make([]models.Answer, 0, len(graded))
	for elementID, result := range graded {
		answer := byElement[elementID]
		if err := answer.SetPreGrade(result); err != nil {
			s.logger.Error().Err(err).Str("element_id", elementID.String()).Msg("pre-grade: encode result")
			continue
		}
		rows = append(rows, answer)
	}

	if err := s.answers.UpdatePreGrades(ctx, report.ID, rows); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID.String()).Msg("pre-grade: store results")
		return
	}

	s.renders.InvalidateReport(ctx, report.ID)
	s.logger.Info().
		Str("report_id", report.ID.String()).
		Int("answers", len(rows)).
		Msg("report pre-graded")
}

func (s *reportService) publish(ctx context.Context, eventType string, report models.Report) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, ReportEvent{
		Type:       eventType,
		ReportID:   report.ID,
		TemplateID: report.TemplateID,
		AuthorID:   report.AuthorID,
		Status:     string(report.Status),
	})
}

// weightedScore folds per-answer scores (0..1) into the report score using
// the template's weight scale, clamped to [0, maxScore].
func weightedScore(template models.Template, scores map[uuid.UUID]float64) float64 {
	roots, _ := element.BuildTree(template.ElementList())
	scale := element.NewWeightScale(roots, template.MaxScore)

	var total float64
	for _, el := range template.ElementList() {
		if el.Type != element.TypeAnswer {
			continue
		}
		if score, ok := scores[el.ID]; ok {
			total += scale.Share(el.Properties.Weight * score)
		}
	}

	if total < 0 {
		return 0
	}
	if total > scale.MaxScore() {
		return scale.MaxScore()
	}
	return total
}

func answersByElement(rows []models.Answer) map[uuid.UUID]models.Answer {
	byElement := make(map[uuid.UUID]models.Answer, len(rows))
	for _, answer := range rows {
		byElement[answer.ElementID] = answer
	}
	return byElement
}
