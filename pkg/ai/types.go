package ai

import "context"

// ContextAnswer is one of the student's other answers, supplied so the
// model can reference earlier work when phrasing a hint.
type ContextAnswer struct {
	Question string
	Answer   string
}

// HintInput contains everything needed to generate a hint for one question.
type HintInput struct {
	Question  string
	Current   string
	Reference string
	Context   []ContextAnswer
}

// HintResult is the generated hint.
type HintResult struct {
	Hint string `json:"hint"`
}

// HintGenerator describes an AI model capable of producing hints that
// nudge a student without revealing the answer.
type HintGenerator interface {
	GenerateHint(ctx context.Context, input HintInput) (HintResult, error)
}
