package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/observability"
	"github.com/noah-isme/labreport-go-api/internal/render"
	"github.com/noah-isme/labreport-go-api/internal/repository"
)

// ErrReportNotFound indicates the report does not exist.
var ErrReportNotFound = errors.New("report not found")

// RenderService produces the HTML view of a report or a bare template.
// Read-only renders are cached in Redis; any write to the report or its
// template must invalidate through InvalidateReport/InvalidateTemplate.
type RenderService interface {
	RenderReport(ctx context.Context, reportID uuid.UUID, filter element.FilterMode, view render.ViewMode) (string, error)
	RenderTemplate(ctx context.Context, templateID uuid.UUID, filter element.FilterMode) (string, error)
	InvalidateReport(ctx context.Context, reportID uuid.UUID)
	InvalidateTemplate(ctx context.Context, templateID uuid.UUID)
}

type renderService struct {
	templates repository.TemplateRepository
	reports   repository.ReportRepository
	engine    *render.Engine
	cache     *redis.Client
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewRenderService constructs a RenderService. A nil cache disables
// caching without changing behaviour.
func NewRenderService(
	templateRepo repository.TemplateRepository,
	reportRepo repository.ReportRepository,
	engine *render.Engine,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) RenderService {
	return &renderService{
		templates: templateRepo,
		reports:   reportRepo,
		engine:    engine,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With().Str("component", "render_service").Logger(),
	}
}

func (s *renderService) RenderReport(ctx context.Context, reportID uuid.UUID, filter element.FilterMode, view render.ViewMode) (string, error) {
	cacheKey := fmt.Sprintf("labreport:render:report:%s:%s:%s", reportID, filter, view)
	if html, ok := s.cached(ctx, cacheKey); ok {
		return html, nil
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrReportNotFound
		}
		return "", err
	}

	template, err := s.templates.GetByID(ctx, report.TemplateID)
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}

	store := answers.NewMemoryStore()
	records := make([]answers.Record, 0, len(report.Answers))
	for _, answer := range report.Answers {
		records = append(records, answer.ToRecord())
	}
	store.Seed(records)

	html, err := s.renderTree(template, filter, &render.Context{
		View:    view,
		Answers: store,
	})
	if err != nil {
		return "", err
	}

	s.store(ctx, cacheKey, html)
	return html, nil
}

// RenderTemplate renders the bare template with no answer state, as seen
// by an author previewing their work.
func (s *renderService) RenderTemplate(ctx context.Context, templateID uuid.UUID, filter element.FilterMode) (string, error) {
	cacheKey := fmt.Sprintf("labreport:render:template:%s:%s", templateID, filter)
	if html, ok := s.cached(ctx, cacheKey); ok {
		return html, nil
	}

	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTemplateNotFound
		}
		return "", err
	}

	html, err := s.renderTree(template, filter, &render.Context{View: render.ViewTemplateEdit})
	if err != nil {
		return "", err
	}

	s.store(ctx, cacheKey, html)
	return html, nil
}

func (s *renderService) InvalidateReport(ctx context.Context, reportID uuid.UUID) {
	s.invalidate(ctx, fmt.Sprintf("labreport:render:report:%s:*", reportID))
}

func (s *renderService) InvalidateTemplate(ctx context.Context, templateID uuid.UUID) {
	s.invalidate(ctx, fmt.Sprintf("labreport:render:template:%s:*", templateID))
}

func (s *renderService) renderTree(template models.Template, filter element.FilterMode, rc *render.Context) (string, error) {
	elements := element.ApplyFilter(filter, template.ElementList())
	roots, orphans := element.BuildTree(elements)
	for _, orphan := range orphans {
		s.logger.Warn().
			Str("template_id", template.ID.String()).
			Str("element_id", orphan.ElementID.String()).
			Str("parent_id", orphan.ParentID.String()).
			Msg("dropping element with missing parent")
	}

	if rc.Scale == nil {
		scale := element.NewWeightScale(roots, template.MaxScore)
		rc.Scale = scale
	}

	return s.engine.Render(rc, roots), nil
}

func (s *renderService) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	html, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("render cache read failed")
		}
		observability.RenderCacheEvents().WithLabelValues("miss").Inc()
		return "", false
	}

	observability.RenderCacheEvents().WithLabelValues("hit").Inc()
	return html, html != ""
}

func (s *renderService) store(ctx context.Context, key, html string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, html, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("render cache write failed")
	}
}

func (s *renderService) invalidate(ctx context.Context, pattern string) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Str("pattern", pattern).Msg("render cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Str("pattern", pattern).Msg("render cache invalidation failed")
		return
	}
	observability.RenderCacheEvents().WithLabelValues("invalidate").Inc()
}
