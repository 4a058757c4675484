package handler

import (
	"log/slog"
	"net/http"

	"coursedrive/internal/datatable"
	models "coursedrive/internal/domain/models/drive"
	driveSvc "coursedrive/internal/domain/services/drive"
	"coursedrive/internal/httputil"
	"coursedrive/internal/service/drive"
)

// DriveHandler handles drive HTTP requests
type DriveHandler struct {
	driveService driveSvc.DriveService
	logger       *slog.Logger
}

// NewDriveHandler creates a new drive handler
func NewDriveHandler(driveService driveSvc.DriveService, logger *slog.Logger) *DriveHandler {
	return &DriveHandler{
		driveService: driveService,
		logger:       logger,
	}
}

// List returns one level of the drive with breadcrumbs
// GET /api/drive?parentId=<id|null>
func (h *DriveHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	listing, err := h.driveService.List(r.Context(), userID, optionalQuery(r, "parentId"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}

// Get returns a node by id, trashed or not
// GET /api/drive/{id}
func (h *DriveHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	node, err := h.driveService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// Create creates a book or content
// POST /api/drive
func (h *DriveHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req driveSvc.CreateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	node, err := h.driveService.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// Update applies whitelisted fields to a node
// PUT /api/drive
func (h *DriveHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req driveSvc.UpdateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	node, err := h.driveService.Update(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// Delete trashes or permanently deletes a node
// DELETE /api/drive
func (h *DriveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req driveSvc.DeleteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	if err := h.driveService.Delete(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	message := deleteMessage(req.Type, req.Mode)
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// Restore takes a node out of the trash
// POST /api/drive/{id}/restore
func (h *DriveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	node, err := h.driveService.Restore(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// Tree returns the nested tree of live nodes
// GET /api/drive/tree
func (h *DriveHandler) Tree(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	tree, err := h.driveService.Tree(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// Table runs the data table pipeline over the caller's nodes
// GET /api/drive/table?search=&status=&dateFrom=&dateTo=&min=&max=&sortKey=&sortDir=&alphaOrder=&alphaPrefix=&page=
func (h *DriveHandler) Table(w http.ResponseWriter, r *http.Request) {
	state, err := datatable.ParseQuery(r.URL.Query())
	if err != nil {
		handleError(w, err)
		return
	}

	page, err := h.driveService.Table(r.Context(), httputil.GetUserID(r), state)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"columns":    drive.TableColumns(),
		"rows":       page.Rows,
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

func deleteMessage(kind models.Kind, mode driveSvc.DeleteMode) string {
	noun := "Book"
	if kind == models.KindContent {
		noun = "Content"
	}
	if mode == driveSvc.DeleteModeTrash {
		return noun + " moved to trash"
	}
	return noun + " deleted permanently"
}
