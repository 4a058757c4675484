package services

import (
	"context"

	"coursedrive/internal/domain/models/quiz"
)

// QuizService returns the quiz of a content node, generating it on first request
type QuizService interface {
	// GetOrGenerate returns the stored quiz or generates, validates and stores a new one.
	// Returns domain.ErrUnavailable when no generator is configured.
	GetOrGenerate(ctx context.Context, userID, contentID string) (*quiz.Quiz, error)
}

// QuizGenerator produces quiz questions for a piece of course material.
// Implementations return (nil, nil) on soft failures: refusals, empty output or
// output that does not parse into a valid question set.
type QuizGenerator interface {
	// Name identifies the generator (e.g. "anthropic", "lorem")
	Name() string

	// Generate returns exactly quiz.QuestionCount questions, or nil on soft failure
	Generate(ctx context.Context, req *QuizPrompt) ([]quiz.Question, error)
}

// QuizPrompt is the material a quiz is generated from
type QuizPrompt struct {
	Title string
	Body  string
	Model string
}
