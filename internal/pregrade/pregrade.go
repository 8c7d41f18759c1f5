// Package pregrade scores submitted answers against teacher-authored
// reference answers before a human grader sees them. Each answer kind has
// its own strategy; results are advisory hints, never final grades.
package pregrade

import (
	"github.com/google/uuid"

	"github.com/noah-isme/labreport-go-api/internal/answers"
	"github.com/noah-isme/labreport-go-api/internal/element"
)

// Result is the outcome of one strategy run.
type Result struct {
	Score   float64
	Comment string
}

// Grader scores a submitted answer against its reference.
type Grader interface {
	Grade(given, reference string) Result
}

// Candidate bundles everything a strategy needs for one answer.
type Candidate struct {
	ElementID uuid.UUID
	CustomID  string
	Kind      element.AnswerKind
	Given     string
	Reference string
}

// Service runs the per-kind strategies over a report's answers.
type Service struct {
	strategies map[element.AnswerKind]Grader
}

// NewService wires the default strategy per answer kind. The param grader
// resolves {name} placeholders against the other candidates by custom id.
func NewService(candidates []Candidate) *Service {
	params := make(map[string]Candidate, len(candidates))
	for _, candidate := range candidates {
		if candidate.CustomID != "" {
			params[candidate.CustomID] = candidate
		}
	}

	return &Service{
		strategies: map[element.AnswerKind]Grader{
			element.AnswerSimple: FixedGrader{},
			element.AnswerParam:  NewParamGrader(params),
			element.AnswerArg:    ArgumentGrader{},
		},
	}
}

// Grade pre-grades every processable candidate and returns the hints keyed
// by element id. Empty answers and answers without a reference are skipped.
func (s *Service) Grade(candidates []Candidate) map[uuid.UUID]answers.PreGrade {
	graded := make(map[uuid.UUID]answers.PreGrade)

	for _, candidate := range candidates {
		if candidate.Given == "" || candidate.Reference == "" {
			continue
		}

		grader, ok := s.strategies[normalizeKind(candidate.Kind)]
		if !ok {
			continue
		}

		result := grader.Grade(candidate.Given, candidate.Reference)
		graded[candidate.ElementID] = answers.PreGrade{
			Score:   result.Score,
			Comment: result.Comment,
		}
	}

	return graded
}

// normalizeKind treats the legacy boolean "simple" flag (which arrives as
// an empty kind) as the simple strategy.
func normalizeKind(kind element.AnswerKind) element.AnswerKind {
	if kind == "" {
		return element.AnswerSimple
	}
	return kind
}
