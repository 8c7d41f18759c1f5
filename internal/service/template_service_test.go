package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/element"
)

func newTemplateService(t *testing.T) (TemplateService, *memoryTemplateRepo) {
	t.Helper()
	repo := newMemoryTemplateRepo()
	svc, err := NewTemplateService(repo, validator.New(), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	return svc, repo
}

func labTemplatePayload() dto.TemplateCreateRequest {
	return dto.TemplateCreateRequest{
		CourseID: "physics-101",
		Name:     "Lab 1: Resistance",
		MaxScore: 10,
		Elements: []dto.ElementCreate{
			{
				Type:       "header",
				Properties: dto.ElementProperties{Data: "Lab 1", HeaderLevel: 1},
			},
			{
				Type:       "question",
				Properties: dto.ElementProperties{Data: "2+2="},
				Children: []dto.ElementCreate{
					{
						Type: "answer",
						Properties: dto.ElementProperties{
							Weight:    10,
							Simple:    true,
							RefAnswer: "4",
						},
					},
				},
			},
		},
	}
}

func TestTemplateCreateFlattensTree(t *testing.T) {
	svc, _ := newTemplateService(t)

	resp, err := svc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)
	require.Len(t, resp.Elements, 3)

	var question, answer *dto.ElementResponse
	for i := range resp.Elements {
		switch resp.Elements[i].Type {
		case "question":
			question = &resp.Elements[i]
		case "answer":
			answer = &resp.Elements[i]
		}
	}
	require.NotNil(t, question)
	require.NotNil(t, answer)
	require.Nil(t, question.ParentID)
	require.NotNil(t, answer.ParentID)
	require.Equal(t, question.ID, *answer.ParentID)
	require.Equal(t, 10.0, answer.Properties.Weight)
}

func TestTemplateCreateRejectsInvalidTree(t *testing.T) {
	svc, _ := newTemplateService(t)

	payload := labTemplatePayload()
	payload.Elements[1].Children[0].Properties.Weight = 25

	_, err := svc.Create(context.Background(), "teacher-1", payload)
	require.ErrorIs(t, err, ErrElementTreeInvalid)
}

func TestTemplateUpdateElements(t *testing.T) {
	svc, _ := newTemplateService(t)
	created, err := svc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)

	var answerID uuid.UUID
	for _, el := range created.Elements {
		if el.Type == "answer" {
			answerID = el.ID
		}
	}

	updated, err := svc.UpdateElements(context.Background(), created.ID, dto.TemplateElementsUpdateRequest{
		Updates: []dto.ElementUpdateRequest{
			{
				ElementID: answerID.String(),
				Properties: dto.ElementProperties{
					Weight:    15,
					Simple:    true,
					RefAnswer: "four",
				},
			},
		},
	})
	require.NoError(t, err)

	for _, el := range updated.Elements {
		if el.ID == answerID {
			require.Equal(t, 15.0, el.Properties.Weight)
			require.Equal(t, "four", el.Properties.RefAnswer)
		}
	}

	_, err = svc.UpdateElements(context.Background(), created.ID, dto.TemplateElementsUpdateRequest{
		Updates: []dto.ElementUpdateRequest{
			{ElementID: uuid.NewString(), Properties: dto.ElementProperties{}},
		},
	})
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestTemplateRemoveElements(t *testing.T) {
	svc, _ := newTemplateService(t)
	created, err := svc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)

	var questionID, answerID uuid.UUID
	for _, el := range created.Elements {
		switch el.Type {
		case "question":
			questionID = el.ID
		case "answer":
			answerID = el.ID
		}
	}

	updated, err := svc.RemoveElements(context.Background(), created.ID, []uuid.UUID{questionID, answerID})
	require.NoError(t, err)
	require.Len(t, updated.Elements, 1)
	require.Equal(t, "header", updated.Elements[0].Type)

	_, err = svc.RemoveElements(context.Background(), created.ID, []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestTemplateListByCourseFiltersDrafts(t *testing.T) {
	svc, _ := newTemplateService(t)

	published := labTemplatePayload()
	_, err := svc.Create(context.Background(), "teacher-1", published)
	require.NoError(t, err)

	draft := labTemplatePayload()
	draft.Name = "Lab 2 (draft)"
	draft.IsDraft = true
	_, err = svc.Create(context.Background(), "teacher-1", draft)
	require.NoError(t, err)

	visible, err := svc.ListByCourse(context.Background(), "physics-101", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	all, err := svc.ListByCourse(context.Background(), "physics-101", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestTemplateDelete(t *testing.T) {
	svc, _ := newTemplateService(t)
	created, err := svc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrTemplateNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), ErrTemplateNotFound)
}

func TestTemplateElementsSurviveRoundTrip(t *testing.T) {
	svc, _ := newTemplateService(t)
	created, err := svc.Create(context.Background(), "teacher-1", labTemplatePayload())
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)

	domain := make([]element.Element, 0, len(fetched.Elements))
	for _, el := range fetched.Elements {
		domain = append(domain, element.Element{
			ID:         el.ID,
			Type:       element.Type(el.Type),
			ParentID:   el.ParentID,
			Order:      el.Order,
			Properties: el.Properties,
		})
	}

	roots, orphans := element.BuildTree(domain)
	require.Empty(t, orphans)
	require.Len(t, roots, 2)
}
