package handler

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"coursedrive/internal/domain"
	"coursedrive/internal/httputil"
)

// exposeInternalErrors controls whether unexpected error messages reach the client
var exposeInternalErrors = true

// SetExposeInternalErrors toggles raw 500 messages; production servers turn them off
func SetExposeInternalErrors(expose bool) {
	exposeInternalErrors = expose
}

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		fieldErrs   validation.Errors
		notEmptyErr *domain.NotEmptyError
		conflictErr *domain.ConflictError
	)

	switch {
	case errors.As(err, &fieldErrs):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
			"errors": fieldErrs,
		})
	case errors.As(err, &notEmptyErr):
		httputil.RespondError(w, http.StatusBadRequest, notEmptyErr.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.Is(err, domain.ErrUnavailable):
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrTreeCorrupted):
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		detail := "internal server error"
		if exposeInternalErrors {
			detail = err.Error()
		}
		httputil.RespondError(w, http.StatusInternalServerError, detail)
	}
}

// optionalQuery returns a pointer to the query value, or nil when the key is absent
func optionalQuery(r *http.Request, key string) *string {
	values, ok := r.URL.Query()[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
