package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
	"github.com/noah-isme/labreport-go-api/internal/render"
)

func newRenderFixture(t *testing.T, cache *redis.Client) (*reportFixture, RenderService) {
	t.Helper()
	f := newReportFixture(t)
	svc := NewRenderService(f.templates, f.reports, render.NewEngine(zerolog.Nop()), cache, time.Minute, zerolog.Nop())
	return f, svc
}

func TestRenderReportShowsAnswers(t *testing.T) {
	f, svc := newRenderFixture(t, nil)
	created := f.createReport(t, "student-1")

	_, err := f.service.Save(context.Background(), created.ID, "student-1", dto.ReportSaveRequest{
		Answers: []dto.AnswerUpdate{{ElementID: f.answerIDs[0].String(), Data: "4"}},
	})
	require.NoError(t, err)

	html, err := svc.RenderReport(context.Background(), created.ID, element.FilterAll, render.ViewStudent)
	require.NoError(t, err)
	require.Contains(t, html, `value="4"`)

	_, err = svc.RenderReport(context.Background(), uuid.New(), element.FilterAll, render.ViewStudent)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestRenderReportCachesUntilInvalidated(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f, svc := newRenderFixture(t, client)
	created := f.createReport(t, "student-1")

	first, err := svc.RenderReport(context.Background(), created.ID, element.FilterAll, render.ViewStudent)
	require.NoError(t, err)

	// Write directly so a cache hit is observable.
	keys := server.Keys()
	require.Len(t, keys, 1)
	require.NoError(t, server.Set(keys[0], "cached"))

	second, err := svc.RenderReport(context.Background(), created.ID, element.FilterAll, render.ViewStudent)
	require.NoError(t, err)
	require.Equal(t, "cached", second)
	require.NotEqual(t, first, second)

	svc.InvalidateReport(context.Background(), created.ID)
	third, err := svc.RenderReport(context.Background(), created.ID, element.FilterAll, render.ViewStudent)
	require.NoError(t, err)
	require.Equal(t, first, third)
}

func TestRenderTemplatePreview(t *testing.T) {
	templateSvc, repo := newTemplateService(t)
	created, err := templateSvc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)

	svc := NewRenderService(repo, newMemoryReportRepo(newMemoryAnswerRepo()), render.NewEngine(zerolog.Nop()), nil, time.Minute, zerolog.Nop())

	html, err := svc.RenderTemplate(context.Background(), created.ID, element.FilterAll)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Lab 1</h1>")
	require.Contains(t, html, "Configure answer")

	_, err = svc.RenderTemplate(context.Background(), uuid.New(), element.FilterAll)
	require.ErrorIs(t, err, ErrTemplateNotFound)
}
