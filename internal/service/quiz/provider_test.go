package quiz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursedrive/internal/domain/services"
)

// fakeResponder answers every request with a fixed text reply
type fakeResponder struct {
	text       string
	stopReason string
	err        error
	lastReq    *llmprovider.GenerateRequest
}

func (f *fakeResponder) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

func (f *fakeResponder) GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	text := f.text
	return &llmprovider.GenerateResponse{
		Blocks:     []*llmprovider.Block{{BlockType: blockTypeText, TextContent: &text}},
		Model:      req.Model,
		StopReason: f.stopReason,
	}, nil
}

func TestProviderGenerator(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prompt := &services.QuizPrompt{Title: "Fractions", Body: "Halves and quarters", Model: "claude-haiku-4-5-20251001"}

	t.Run("parses the reply", func(t *testing.T) {
		provider := &fakeResponder{text: "Here you go:\n" + reply(t, validQuestions()) + "\nGood luck!", stopReason: "end_turn"}
		gen := NewProviderGenerator("anthropic", provider, logger)

		questions, err := gen.Generate(context.Background(), prompt)
		require.NoError(t, err)
		assert.Len(t, questions, 5)
		assert.Equal(t, "anthropic", gen.Name())

		require.NotNil(t, provider.lastReq)
		assert.Equal(t, prompt.Model, provider.lastReq.Model)
		require.NotNil(t, provider.lastReq.Params)
		require.NotNil(t, provider.lastReq.Params.System)
		assert.Equal(t, systemPrompt, *provider.lastReq.Params.System)
		require.Len(t, provider.lastReq.Messages, 1)
		assert.Equal(t, "user", provider.lastReq.Messages[0].Role)
		assert.Contains(t, *provider.lastReq.Messages[0].Blocks[0].TextContent, "Halves and quarters")
	})

	soft := []struct {
		name     string
		provider *fakeResponder
	}{
		{name: "provider error", provider: &fakeResponder{err: errors.New("overloaded")}},
		{name: "refusal", provider: &fakeResponder{text: reply(t, validQuestions()), stopReason: "refusal"}},
		{name: "unparseable reply", provider: &fakeResponder{text: "I cannot help with that.", stopReason: "end_turn"}},
		{name: "too few questions", provider: &fakeResponder{text: reply(t, validQuestions()[:3]), stopReason: "end_turn"}},
	}
	for _, tt := range soft {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := NewProviderGenerator("anthropic", tt.provider, logger).Generate(context.Background(), prompt)
			require.NoError(t, err)
			assert.Nil(t, questions)
		})
	}

	t.Run("unsupported model", func(t *testing.T) {
		gen := NewProviderGenerator("anthropic", &fakeResponder{}, logger)
		_, err := gen.Generate(context.Background(), &services.QuizPrompt{Title: "x", Model: "gpt-4"})
		assert.Error(t, err)
	})

	t.Run("cancelled context is a hard error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		gen := NewProviderGenerator("anthropic", &fakeResponder{err: context.Canceled}, logger)
		_, err := gen.Generate(ctx, prompt)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProviderConstructors_RequireKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewAnthropicGenerator("", logger)
	assert.Error(t, err)
	_, err = NewOpenRouterGenerator("", logger)
	assert.Error(t, err)
}
