package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/render"
	"github.com/noah-isme/labreport-go-api/internal/repository"
	"github.com/noah-isme/labreport-go-api/pkg/ai"
)

type memoryTemplateRepo struct {
	templates map[uuid.UUID]models.Template
}

func newMemoryTemplateRepo() *memoryTemplateRepo {
	return &memoryTemplateRepo{templates: make(map[uuid.UUID]models.Template)}
}

func (m *memoryTemplateRepo) Create(_ context.Context, template *models.Template) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt
	m.templates[template.ID] = *template
	return nil
}

func (m *memoryTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (models.Template, error) {
	template, ok := m.templates[id]
	if !ok {
		return models.Template{}, gorm.ErrRecordNotFound
	}
	return template, nil
}

func (m *memoryTemplateRepo) ListByCourse(_ context.Context, courseID string, includeDrafts bool) ([]models.Template, error) {
	var results []models.Template
	for _, template := range m.templates {
		if template.CourseID != courseID {
			continue
		}
		if template.IsDraft && !includeDrafts {
			continue
		}
		results = append(results, template)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })
	return results, nil
}

func (m *memoryTemplateRepo) Update(_ context.Context, template *models.Template) error {
	if _, ok := m.templates[template.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	template.UpdatedAt = time.Now()
	m.templates[template.ID] = *template
	return nil
}

func (m *memoryTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.templates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memoryTemplateRepo) UpdateElementProperties(_ context.Context, templateID uuid.UUID, rows []models.TemplateElement) error {
	template, ok := m.templates[templateID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	byID := make(map[uuid.UUID]int, len(template.Elements))
	for i, row := range template.Elements {
		byID[row.ID] = i
	}
	for _, row := range rows {
		if i, ok := byID[row.ID]; ok {
			template.Elements[i].Properties = row.Properties
		}
	}
	m.templates[templateID] = template
	return nil
}

func (m *memoryTemplateRepo) DeleteElements(_ context.Context, templateID uuid.UUID, ids []uuid.UUID) error {
	template, ok := m.templates[templateID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := template.Elements[:0]
	for _, row := range template.Elements {
		if _, gone := drop[row.ID]; !gone {
			kept = append(kept, row)
		}
	}
	template.Elements = kept
	m.templates[templateID] = template
	return nil
}

type memoryReportRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]models.Report
	answers *memoryAnswerRepo
	order   []uuid.UUID
}

func newMemoryReportRepo(answers *memoryAnswerRepo) *memoryReportRepo {
	return &memoryReportRepo{reports: make(map[uuid.UUID]models.Report), answers: answers}
}

func (m *memoryReportRepo) Create(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	for i := range report.Answers {
		m.answers.rows[report.Answers[i].ID] = report.Answers[i]
	}
	stored := *report
	stored.Answers = nil
	m.reports[report.ID] = stored
	m.order = append(m.order, report.ID)
	return nil
}

func (m *memoryReportRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Report, error) {
	m.mu.Lock()
	report, ok := m.reports[id]
	m.mu.Unlock()
	if !ok {
		return models.Report{}, gorm.ErrRecordNotFound
	}
	report.Answers, _ = m.answers.ListByReport(ctx, id)
	return report, nil
}

func (m *memoryReportRepo) GetPrevious(_ context.Context, report models.Report) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prev *models.Report
	for _, id := range m.order {
		candidate := m.reports[id]
		if candidate.ID == report.ID || candidate.TemplateID != report.TemplateID || candidate.AuthorID != report.AuthorID {
			continue
		}
		copied := candidate
		prev = &copied
	}
	return prev, nil
}

func (m *memoryReportRepo) ListByTemplate(_ context.Context, templateID uuid.UUID) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Report
	for _, id := range m.order {
		if report := m.reports[id]; report.TemplateID == templateID {
			results = append(results, report)
		}
	}
	return results, nil
}

func (m *memoryReportRepo) Update(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[report.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	report.UpdatedAt = time.Now()
	stored := *report
	stored.Answers = nil
	m.reports[report.ID] = stored
	return nil
}

type memoryAnswerRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.Answer
}

func newMemoryAnswerRepo() *memoryAnswerRepo {
	return &memoryAnswerRepo{rows: make(map[uuid.UUID]models.Answer)}
}

func (m *memoryAnswerRepo) BulkCreate(_ context.Context, answersToCreate []models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, answer := range answersToCreate {
		m.rows[answer.ID] = answer
	}
	return nil
}

func (m *memoryAnswerRepo) ListByReport(_ context.Context, reportID uuid.UUID) ([]models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Answer
	for _, answer := range m.rows {
		if answer.ReportID == reportID {
			results = append(results, answer)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID.String() < results[j].ID.String() })
	return results, nil
}

func (m *memoryAnswerRepo) UpdateData(_ context.Context, reportID uuid.UUID, updates []repository.AnswerDataUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, update := range updates {
		answer, ok := m.rows[update.AnswerID]
		if !ok || answer.ReportID != reportID {
			continue
		}
		answer.Data = update.Data
		answer.Score = nil
		m.rows[update.AnswerID] = answer
	}
	return nil
}

func (m *memoryAnswerRepo) UpdateScores(_ context.Context, reportID uuid.UUID, updates []repository.AnswerScoreUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, update := range updates {
		answer, ok := m.rows[update.AnswerID]
		if !ok || answer.ReportID != reportID {
			continue
		}
		score := update.Score
		answer.Score = &score
		m.rows[update.AnswerID] = answer
	}
	return nil
}

func (m *memoryAnswerRepo) UpdatePreGrades(_ context.Context, reportID uuid.UUID, graded []models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, update := range graded {
		answer, ok := m.rows[update.ID]
		if !ok || answer.ReportID != reportID {
			continue
		}
		answer.PreGrade = update.PreGrade
		m.rows[update.ID] = answer
	}
	return nil
}

type noopRenderService struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (n *noopRenderService) RenderReport(context.Context, uuid.UUID, element.FilterMode, render.ViewMode) (string, error) {
	return "", nil
}

func (n *noopRenderService) RenderTemplate(context.Context, uuid.UUID, element.FilterMode) (string, error) {
	return "", nil
}

func (n *noopRenderService) InvalidateReport(_ context.Context, id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidated = append(n.invalidated, id)
}

func (n *noopRenderService) invalidations() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.invalidated...)
}

func (n *noopRenderService) InvalidateTemplate(context.Context, uuid.UUID) {}

type recordingEventService struct {
	events []ReportEvent
}

func (r *recordingEventService) Publish(_ context.Context, event ReportEvent) {
	r.events = append(r.events, event)
}

func (r *recordingEventService) Subscribe(uuid.UUID) (<-chan ReportEvent, func()) {
	ch := make(chan ReportEvent)
	close(ch)
	return ch, func() {}
}

func (r *recordingEventService) Start(context.Context) {}

type stubHintGenerator struct {
	hint  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubHintGenerator) GenerateHint(_ context.Context, _ ai.HintInput) (ai.HintResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return ai.HintResult{}, s.err
	}
	return ai.HintResult{Hint: s.hint}, nil
}
