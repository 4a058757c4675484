package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"coursedrive/internal/domain"
	driveModels "coursedrive/internal/domain/models/drive"
	models "coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"
	driveRepo "coursedrive/internal/domain/repositories/drive"
	"coursedrive/internal/domain/services"
)

// ErrGenerationFailed is returned when the generator produced no usable quiz
var ErrGenerationFailed = errors.New("quiz generation failed")

// generationTimeout bounds one shared generation, independent of the requests waiting on it
const generationTimeout = 2 * time.Minute

type quizService struct {
	nodeRepo  driveRepo.NodeRepository
	quizRepo  repositories.QuizRepository
	generator services.QuizGenerator
	locker    Locker
	model     string
	logger    *slog.Logger
	group     singleflight.Group
}

// NewQuizService creates a quiz service. generator may be nil when no provider
// is configured; locker may be nil for a single instance.
func NewQuizService(
	nodeRepo driveRepo.NodeRepository,
	quizRepo repositories.QuizRepository,
	generator services.QuizGenerator,
	locker Locker,
	model string,
	logger *slog.Logger,
) services.QuizService {
	return &quizService{
		nodeRepo:  nodeRepo,
		quizRepo:  quizRepo,
		generator: generator,
		locker:    locker,
		model:     model,
		logger:    logger,
	}
}

// GetOrGenerate returns the stored quiz of a content or generates one
func (s *quizService) GetOrGenerate(ctx context.Context, userID, contentID string) (*models.Quiz, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, fmt.Errorf("%w: contentId is required", domain.ErrValidation)
	}

	content, err := s.nodeRepo.GetByID(ctx, contentID, userID)
	if err != nil {
		return nil, err
	}
	if content.Kind != driveModels.KindContent {
		return nil, fmt.Errorf("content %s: %w", contentID, domain.ErrNotFound)
	}

	existing, err := s.quizRepo.GetByContentID(ctx, contentID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if s.generator == nil {
		return nil, fmt.Errorf("%w: quiz generator is not configured", domain.ErrUnavailable)
	}

	ch := s.group.DoChan(userID+"/"+contentID, func() (interface{}, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		return s.generate(genCtx, content)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Quiz), nil
	}
}

func (s *quizService) generate(ctx context.Context, content *driveModels.Node) (*models.Quiz, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "quiz:"+content.ID)
		if err != nil {
			return nil, fmt.Errorf("lock quiz generation: %w", err)
		}
		defer release()
	}

	// A previous flight or another instance may have stored it since the first lookup
	existing, err := s.quizRepo.GetByContentID(ctx, content.ID, content.CreatedBy)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	start := time.Now()
	questions, err := s.generator.Generate(ctx, &services.QuizPrompt{
		Title: content.Title,
		Body:  PayloadText(content.Data),
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	if questions == nil {
		s.logger.Warn("quiz generation returned nothing",
			"content_id", content.ID,
			"generator", s.generator.Name(),
		)
		return nil, ErrGenerationFailed
	}
	if err := ValidateQuestions(questions); err != nil {
		s.logger.Warn("generated quiz is malformed",
			"content_id", content.ID,
			"generator", s.generator.Name(),
			"error", err,
		)
		return nil, ErrGenerationFailed
	}

	q := &models.Quiz{
		ContentID: content.ID,
		CreatedBy: content.CreatedBy,
		Questions: questions,
		Model:     s.modelName(),
	}
	if err := s.quizRepo.Create(ctx, q); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return s.quizRepo.GetByContentID(ctx, content.ID, content.CreatedBy)
		}
		return nil, err
	}

	s.logger.Info("quiz generated",
		"content_id", content.ID,
		"user_id", content.CreatedBy,
		"generator", s.generator.Name(),
		"model", q.Model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return q, nil
}

func (s *quizService) modelName() string {
	if s.generator.Name() == "lorem" {
		return "lorem"
	}
	return s.model
}
