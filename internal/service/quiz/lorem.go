package quiz

import (
	"context"
	"fmt"
	"strings"

	loremgen "github.com/bozaro/golorem"

	models "coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/services"
)

// LoremGenerator is a mock generator that produces lorem ipsum quizzes.
// Used in development and tests without an API key.
type LoremGenerator struct {
	generator *loremgen.Lorem
}

// NewLoremGenerator creates a new lorem ipsum generator
func NewLoremGenerator() *LoremGenerator {
	return &LoremGenerator{
		generator: loremgen.New(),
	}
}

// Name returns the generator name
func (g *LoremGenerator) Name() string {
	return "lorem"
}

// Generate returns a well-formed question set of placeholder text
func (g *LoremGenerator) Generate(ctx context.Context, req *services.QuizPrompt) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, models.QuestionCount)
	for i := 0; i < models.QuestionCount; i++ {
		options := make([]string, models.OptionCount)
		for j := range options {
			// Numbered so options stay distinct whatever words come out
			options[j] = fmt.Sprintf("%c) %s", 'A'+j, g.generator.Word(3, 8))
		}
		questions = append(questions, models.Question{
			Question:    fmt.Sprintf("%s: %s?", req.Title, strings.TrimSuffix(g.generator.Sentence(5, 10), ".")),
			Options:     options,
			Answer:      options[i%models.OptionCount],
			Explanation: g.generator.Sentence(8, 14),
		})
	}
	return questions, nil
}
