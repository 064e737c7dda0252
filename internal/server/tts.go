package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/request"
)

// submitResponse is the 202 body returned by every submission endpoint.
type submitResponse struct {
	JobID     string     `json:"job_id"`
	Status    job.Status `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *handler) handleCustomVoice(w http.ResponseWriter, r *http.Request) {
	var req request.CustomVoiceRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	spec, err := h.norm.CustomVoice(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.accept(w, spec)
}

func (h *handler) handleVoiceDesign(w http.ResponseWriter, r *http.Request) {
	var req request.VoiceDesignRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	spec, err := h.norm.VoiceDesign(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.accept(w, spec)
}

func (h *handler) handleVoiceDesignClone(w http.ResponseWriter, r *http.Request) {
	var req request.VoiceDesignCloneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	spec, err := h.norm.VoiceDesignClone(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.accept(w, spec)
}

// handleVoiceClone takes a multipart form: an "audio" file part plus the
// scalar fields of a clone request.
func (h *handler) handleVoiceClone(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(h.opts.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds upload limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "validation_error", "invalid multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "audio file part is required")
		return
	}
	defer func() { _ = file.Close() }()

	refAudio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "read audio part: "+err.Error())
		return
	}

	req := request.VoiceCloneRequest{
		Text:                r.FormValue("text"),
		Language:            r.FormValue("language"),
		RefText:             r.FormValue("ref_text"),
		Instruct:            r.FormValue("instruct"),
		XVectorOnly:         parseFormBool(r.FormValue("x_vector_only_mode"), false),
		ConsentAcknowledged: parseFormBool(r.FormValue("consent_acknowledged"), false),
	}

	spec, err := h.norm.VoiceClone(req, refAudio)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.accept(w, spec)
}

// accept admits the normalized spec and answers 202 with the queued snapshot.
func (h *handler) accept(w http.ResponseWriter, spec *request.Spec) {
	j := h.jobs.Submit(spec)
	h.log.Debug("job accepted", slog.String("job_id", j.ID), slog.String("mode", string(spec.Mode)))
	writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:     j.ID,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
	})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func parseFormBool(s string, fallback bool) bool {
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}
