package handler

import (
	"log/slog"
	"net/http"

	"coursedrive/internal/capabilities"
	"coursedrive/internal/config"
	"coursedrive/internal/httputil"
)

// ModelsHandler handles HTTP requests for quiz model capabilities
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Configured bool            `json:"configured"`
	Models     []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID            string       `json:"id"`
	DisplayName   string       `json:"display_name"`
	Description   string       `json:"description"`
	ContextWindow int          `json:"context_window"`
	Active        bool         `json:"active"`
	Pricing       *PricingInfo `json:"pricing,omitempty"`
}

// PricingInfo represents model pricing
type PricingInfo struct {
	InputPer1M  float64 `json:"input_per_1m"`
	OutputPer1M float64 `json:"output_per_1m"`
}

var providerNames = map[string]string{
	"anthropic":  "Anthropic",
	"lorem":      "Lorem Ipsum (mock)",
	"openrouter": "OpenRouter",
}

// GetCapabilities lists the quiz models of every known provider and marks the active one
// GET /api/models/capabilities
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	providers := make([]ProviderResponse, 0)

	for _, id := range h.registry.GetAllProviders() {
		models, err := h.registry.ListProviderModels(id)
		if err != nil {
			h.logger.Warn("capabilities unavailable", "provider", id, "error", err)
			continue
		}
		providers = append(providers, h.convertProvider(id, models))
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
	})
}

func (h *ModelsHandler) configured(provider string) bool {
	switch provider {
	case "anthropic":
		return h.config.AnthropicAPIKey != ""
	case "openrouter":
		return h.config.OpenRouterAPIKey != ""
	case "lorem":
		return true
	}
	return false
}

// convertProvider converts capability registry data to API response format
func (h *ModelsHandler) convertProvider(id string, models []capabilities.ModelCapabilities) ProviderResponse {
	name, ok := providerNames[id]
	if !ok {
		name = id
	}

	modelResponses := make([]ModelResponse, 0, len(models))
	for _, m := range models {
		resp := ModelResponse{
			ID:            m.ID,
			DisplayName:   m.DisplayName,
			Description:   m.Description,
			ContextWindow: m.ContextWindow,
			Active:        id == h.config.QuizProvider && m.ID == h.config.QuizModel,
		}
		if m.Pricing != nil {
			resp.Pricing = &PricingInfo{InputPer1M: m.Pricing.Input, OutputPer1M: m.Pricing.Output}
		}
		modelResponses = append(modelResponses, resp)
	}

	return ProviderResponse{
		ID:         id,
		Name:       name,
		Configured: h.configured(id),
		Models:     modelResponses,
	}
}
