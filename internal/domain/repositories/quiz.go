package repositories

import (
	"context"

	"coursedrive/internal/domain/models/quiz"
)

// QuizRepository defines data access operations for generated quizzes
type QuizRepository interface {
	// GetByContentID retrieves the quiz of a content node
	GetByContentID(ctx context.Context, contentID, ownerID string) (*quiz.Quiz, error)

	// Create stores a quiz; returns *domain.ConflictError when the content already has one
	Create(ctx context.Context, q *quiz.Quiz) error

	// DeleteByContentID removes the quiz of a content node, if any
	DeleteByContentID(ctx context.Context, contentID, ownerID string) error
}
