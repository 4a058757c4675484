package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"
)

// MongoQuizRepository implements the QuizRepository interface
type MongoQuizRepository struct {
	quizzes *mongo.Collection
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(config *RepositoryConfig) repositories.QuizRepository {
	return &MongoQuizRepository{
		quizzes: config.Database.Collection(config.Collections.Quizzes),
	}
}

// GetByContentID retrieves the quiz of a content node
func (r *MongoQuizRepository) GetByContentID(ctx context.Context, contentID, ownerID string) (*quiz.Quiz, error) {
	oid, err := parseID("contentId", contentID)
	if err != nil {
		return nil, err
	}

	var doc quizDocument
	err = r.quizzes.FindOne(ctx, bson.M{"contentId": oid, "createdBy": ownerID}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("quiz for content %s: %w", contentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return doc.toModel(), nil
}

// Create stores a quiz
func (r *MongoQuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	contentID, err := parseID("contentId", q.ContentID)
	if err != nil {
		return err
	}

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	doc := &quizDocument{
		ID:        primitive.NewObjectID(),
		ContentID: contentID,
		CreatedBy: q.CreatedBy,
		Questions: q.Questions,
		Model:     q.Model,
		CreatedAt: q.CreatedAt,
	}

	if _, err := r.quizzes.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("quiz for content %s already exists", q.ContentID),
				ResourceType: "quiz",
			}
		}
		return fmt.Errorf("create quiz: %w", err)
	}

	q.ID = doc.ID.Hex()
	return nil
}

// DeleteByContentID removes the quiz of a content node, if any
func (r *MongoQuizRepository) DeleteByContentID(ctx context.Context, contentID, ownerID string) error {
	oid, err := parseID("contentId", contentID)
	if err != nil {
		return err
	}

	if _, err := r.quizzes.DeleteOne(ctx, bson.M{"contentId": oid, "createdBy": ownerID}); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}
