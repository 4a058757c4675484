package handler

import (
	"log/slog"
	"net/http"

	"coursedrive/internal/domain/services"
	"coursedrive/internal/httputil"
)

// QuizHandler handles quiz HTTP requests
type QuizHandler struct {
	quizService services.QuizService
	logger      *slog.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizService services.QuizService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		logger:      logger,
	}
}

// GetQuiz returns the quiz of a content, generating it on first request
// GET /api/quiz?contentId=<id>
func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	contentID := r.URL.Query().Get("contentId")

	q, err := h.quizService.GetOrGenerate(r.Context(), userID, contentID)
	if err != nil {
		h.logger.Warn("quiz request failed", "content_id", contentID, "user_id", userID, "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"quiz": q})
}
