package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/openrouter"

	models "coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/services"
)

const blockTypeText = "text"

// Responder is the part of llmprovider.Provider a generator needs
type Responder interface {
	SupportsModel(model string) bool
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

// ProviderGenerator generates quizzes with a single non-streaming call to an LLM provider
type ProviderGenerator struct {
	name     string
	provider Responder
	logger   *slog.Logger
}

// NewProviderGenerator wraps an existing provider
func NewProviderGenerator(name string, provider Responder, logger *slog.Logger) *ProviderGenerator {
	return &ProviderGenerator{
		name:     name,
		provider: provider,
		logger:   logger,
	}
}

// NewAnthropicGenerator creates a generator backed by Claude models
func NewAnthropicGenerator(apiKey string, logger *slog.Logger) (*ProviderGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	provider, err := anthropic.NewProvider(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return NewProviderGenerator("anthropic", provider, logger), nil
}

// NewOpenRouterGenerator creates a generator backed by OpenRouter
func NewOpenRouterGenerator(apiKey string, logger *slog.Logger) (*ProviderGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	provider, err := openrouter.NewProvider(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter provider: %w", err)
	}
	return NewProviderGenerator("openrouter", provider, logger), nil
}

// Name returns the generator name
func (g *ProviderGenerator) Name() string {
	return g.name
}

// Generate asks the model for a question set. Provider errors, refusals and
// replies that fail validation are soft failures and return (nil, nil).
func (g *ProviderGenerator) Generate(ctx context.Context, req *services.QuizPrompt) ([]models.Question, error) {
	if !g.provider.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by %s generator", req.Model, g.name)
	}

	system := systemPrompt
	prompt := buildUserPrompt(req.Title, req.Body)
	resp, err := g.provider.GenerateResponse(ctx, &llmprovider.GenerateRequest{
		Model: req.Model,
		Messages: []llmprovider.Message{
			{
				Role:   "user",
				Blocks: []*llmprovider.Block{{BlockType: blockTypeText, TextContent: &prompt}},
			},
		},
		Params: &llmprovider.RequestParams{System: &system},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("quiz generation call failed", "provider", g.name, "model", req.Model, "error", err)
		return nil, nil
	}

	if resp.StopReason == "refusal" {
		g.logger.Warn("quiz generation refused", "provider", g.name, "model", req.Model)
		return nil, nil
	}

	var reply strings.Builder
	for _, block := range resp.Blocks {
		if block != nil && block.BlockType == blockTypeText && block.TextContent != nil {
			reply.WriteString(*block.TextContent)
		}
	}

	questions, err := ParseQuestions(reply.String())
	if err != nil {
		g.logger.Warn("quiz reply rejected",
			"provider", g.name,
			"model", req.Model,
			"stop_reason", resp.StopReason,
			"output_tokens", resp.OutputTokens,
			"error", err,
		)
		return nil, nil
	}
	return questions, nil
}
