package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"
)

// PostgresQuizRepository implements the QuizRepository interface
type PostgresQuizRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(config *RepositoryConfig) repositories.QuizRepository {
	return &PostgresQuizRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetByContentID retrieves the quiz of a content node
func (r *PostgresQuizRepository) GetByContentID(ctx context.Context, contentID, ownerID string) (*quiz.Quiz, error) {
	if err := checkID("contentId", contentID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id::text, content_id::text, created_by, questions, model, created_at
		FROM %s
		WHERE content_id = $1 AND created_by = $2
	`, r.tables.Quizzes)

	var q quiz.Quiz
	var questions []byte
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, contentID, ownerID).Scan(
		&q.ID,
		&q.ContentID,
		&q.CreatedBy,
		&questions,
		&q.Model,
		&q.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("quiz for content %s: %w", contentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode quiz questions: %w", err)
	}
	return &q, nil
}

// Create stores a quiz
func (r *PostgresQuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	if err := checkID("contentId", q.ContentID); err != nil {
		return err
	}

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode quiz questions: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content_id, created_by, questions, model, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id::text, created_at
	`, r.tables.Quizzes)

	db := GetExecutor(ctx, r.pool)
	err = db.QueryRow(ctx, query, q.ContentID, q.CreatedBy, string(questions), q.Model).
		Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("quiz for content %s already exists", q.ContentID),
				ResourceType: "quiz",
			}
		}
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// DeleteByContentID removes the quiz of a content node, if any
func (r *PostgresQuizRepository) DeleteByContentID(ctx context.Context, contentID, ownerID string) error {
	if err := checkID("contentId", contentID); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE content_id = $1 AND created_by = $2`, r.tables.Quizzes)

	db := GetExecutor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, contentID, ownerID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}
