package memory

import (
	"context"
	"fmt"
	"time"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"
)

// QuizRepository implements the QuizRepository interface over a Store
type QuizRepository struct {
	store *Store
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(store *Store) repositories.QuizRepository {
	return &QuizRepository{store: store}
}

// GetByContentID retrieves the quiz of a content node
func (r *QuizRepository) GetByContentID(ctx context.Context, contentID, ownerID string) (*quiz.Quiz, error) {
	if err := checkID("contentId", contentID); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	q, ok := r.store.quizzes[contentID]
	if !ok || q.CreatedBy != ownerID {
		return nil, fmt.Errorf("quiz for content %s: %w", contentID, domain.ErrNotFound)
	}
	return cloneQuiz(q), nil
}

// Create stores a quiz
func (r *QuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.quizzes[q.ContentID]; ok {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("quiz for content %s already exists", q.ContentID),
			ResourceType: "quiz",
			ResourceID:   existing.ID,
		}
	}

	q.ID = newID()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	r.store.quizzes[q.ContentID] = cloneQuiz(q)
	return nil
}

// DeleteByContentID removes the quiz of a content node, if any
func (r *QuizRepository) DeleteByContentID(ctx context.Context, contentID, ownerID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if q, ok := r.store.quizzes[contentID]; ok && q.CreatedBy == ownerID {
		delete(r.store.quizzes, contentID)
	}
	return nil
}
