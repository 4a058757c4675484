package handler

import (
	"log/slog"
	"net/http"

	driveSvc "coursedrive/internal/domain/services/drive"
	"coursedrive/internal/httputil"
)

// SidebarHandler serves one level of the sidebar tree
type SidebarHandler struct {
	driveService driveSvc.DriveService
	logger       *slog.Logger
}

// NewSidebarHandler creates a new sidebar handler
func NewSidebarHandler(driveService driveSvc.DriveService, logger *slog.Logger) *SidebarHandler {
	return &SidebarHandler{
		driveService: driveService,
		logger:       logger,
	}
}

// Items returns the live children of a parent with hasChildren
// GET /api/sidebar-items?parentId=<id|null>
func (h *SidebarHandler) Items(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	items, err := h.driveService.SidebarItems(r.Context(), userID, optionalQuery(r, "parentId"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
