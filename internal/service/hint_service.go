package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/repository"
	"github.com/noah-isme/labreport-go-api/pkg/ai"
)

var (
	// ErrHintsDisabled is returned when no AI provider is configured.
	ErrHintsDisabled = errors.New("hint generation is not configured")
	// ErrQuestionNotFound indicates the referenced question is not in the template.
	ErrQuestionNotFound = errors.New("question not found in template")
	// ErrHintSuperseded is returned when a newer hint request for the same
	// question was issued while this one was in flight.
	ErrHintSuperseded = errors.New("hint request superseded by a newer one")
)

// HintService generates AI hints for a question the student is stuck on.
// Requests per question carry increasing sequence numbers, and a response
// whose sequence is no longer the latest is discarded rather than shown
// over a newer answer draft.
type HintService interface {
	Generate(ctx context.Context, reportID uuid.UUID, actorID string, payload dto.HintRequest) (dto.HintResponse, error)
}

type hintService struct {
	reports   repository.ReportRepository
	templates repository.TemplateRepository
	generator ai.HintGenerator
	validator *validator.Validate
	logger    zerolog.Logger

	mu   sync.Mutex
	seqs map[string]uint64
}

// NewHintService constructs a HintService. A nil generator disables hints.
func NewHintService(
	reportRepo repository.ReportRepository,
	templateRepo repository.TemplateRepository,
	generator ai.HintGenerator,
	validate *validator.Validate,
	logger zerolog.Logger,
) HintService {
	return &hintService{
		reports:   reportRepo,
		templates: templateRepo,
		generator: generator,
		validator: validate,
		logger:    logger.With().Str("component", "hint_service").Logger(),
		seqs:      make(map[string]uint64),
	}
}

func (s *hintService) Generate(ctx context.Context, reportID uuid.UUID, actorID string, payload dto.HintRequest) (dto.HintResponse, error) {
	if s.generator == nil {
		return dto.HintResponse{}, ErrHintsDisabled
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.HintResponse{}, err
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return dto.HintResponse{}, ErrReportNotFound
	}
	if report.AuthorID != actorID {
		return dto.HintResponse{}, ErrReportForbidden
	}
	if !report.IsEditable() {
		return dto.HintResponse{}, ErrReportNotEditable
	}

	questionID, err := uuid.Parse(payload.QuestionID)
	if err != nil {
		return dto.HintResponse{}, ErrQuestionNotFound
	}

	template, err := s.templates.GetByID(ctx, report.TemplateID)
	if err != nil {
		return dto.HintResponse{}, fmt.Errorf("load template: %w", err)
	}

	input, err := buildHintInput(template, questionID, payload)
	if err != nil {
		return dto.HintResponse{}, err
	}

	seq := s.nextSeq(reportID, questionID)

	result, err := s.generator.GenerateHint(ctx, input)
	if err != nil {
		return dto.HintResponse{}, fmt.Errorf("generate hint: %w", err)
	}

	// The model call can take seconds. If the student asked again in the
	// meantime, this response describes a stale draft; drop it.
	if !s.isLatest(reportID, questionID, seq) {
		s.logger.Debug().
			Str("report_id", reportID.String()).
			Str("question_id", questionID.String()).
			Uint64("seq", seq).
			Msg("discarding stale hint")
		return dto.HintResponse{}, ErrHintSuperseded
	}

	return dto.HintResponse{
		QuestionID: payload.QuestionID,
		Seq:        seq,
		Hint:       result.Hint,
	}, nil
}

func (s *hintService) nextSeq(reportID, questionID uuid.UUID) uint64 {
	key := reportID.String() + ":" + questionID.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[key]++
	return s.seqs[key]
}

func (s *hintService) isLatest(reportID, questionID uuid.UUID, seq uint64) bool {
	key := reportID.String() + ":" + questionID.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[key] == seq
}

// buildHintInput assembles the question text, the student's draft, the
// hidden reference answer, and the surrounding context answers.
func buildHintInput(template models.Template, questionID uuid.UUID, payload dto.HintRequest) (ai.HintInput, error) {
	elements := template.ElementList()
	roots, _ := element.BuildTree(elements)

	question := findNode(roots, questionID)
	if question == nil || question.Type != element.TypeQuestion {
		return ai.HintInput{}, ErrQuestionNotFound
	}

	input := ai.HintInput{
		Question: questionText(question),
		Current:  payload.Current.Data,
	}
	if answer := question.FindChild(element.TypeAnswer); answer != nil {
		input.Reference = answer.Properties.RefAnswer
	}

	byID := make(map[uuid.UUID]element.Element, len(elements))
	for _, el := range elements {
		byID[el.ID] = el
	}
	for _, prev := range payload.Context {
		elementID, err := uuid.Parse(prev.ElementID)
		if err != nil {
			continue
		}
		el, ok := byID[elementID]
		if !ok || prev.Data == "" {
			continue
		}
		input.Context = append(input.Context, ai.ContextAnswer{
			Question: el.Properties.Data,
			Answer:   prev.Data,
		})
	}

	return input, nil
}

func questionText(node *element.Node) string {
	if text := node.FindChild(element.TypeText); text != nil && text.Properties.Data != "" {
		return text.Properties.Data
	}
	return node.Properties.Data
}

func findNode(roots []*element.Node, id uuid.UUID) *element.Node {
	for _, node := range roots {
		if node.ID == id {
			return node
		}
		if found := findNode(node.Children, id); found != nil {
			return found
		}
	}
	return nil
}
