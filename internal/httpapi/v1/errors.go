package v1

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/schoolfin/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

// fail maps a service error to its HTTP status. Unclassified errors are logged and
// answered with a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, errs.Message(err, "validation error"), "validation_error")
	case errors.Is(err, errs.ErrReference):
		writeErr(w, http.StatusBadRequest, errs.Message(err, "invalid reference"), "invalid_reference")
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, errs.Message(err, "not found"), "not_found")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, errs.Message(err, "already settled"), "already_settled")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, errs.Message(err, "forbidden"), "forbidden")
	default:
		s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInvalid), errors.Is(err, errs.ErrReference):
		return "rejected"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
