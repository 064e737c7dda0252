package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/request"
)

// errorEnvelope is the JSON body of every non-2xx response.
type errorEnvelope struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, detail string) {
	writeJSON(w, status, errorEnvelope{
		Error:     kind,
		Detail:    detail,
		RequestID: requestIDFrom(r.Context()),
	})
}

// writeDomainError maps sentinel errors from the normalizer and job store
// onto HTTP statuses. Unknown errors become 500s.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classifyError(err)
	writeError(w, r, status, kind, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, request.ErrConsentRequired):
		return http.StatusForbidden, "consent_required"
	case errors.Is(err, request.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, request.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "unsupported_media"
	case errors.Is(err, request.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, job.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
