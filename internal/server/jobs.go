package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/go-tts-studio/internal/job"
)

// jobStatusResponse is the polling view of one job. AudioURL is only set
// once the job has completed.
type jobStatusResponse struct {
	JobID     string     `json:"job_id"`
	Status    job.Status `json:"status"`
	Progress  float64    `json:"progress"`
	Error     string     `json:"error,omitempty"`
	AudioURL  string     `json:"audio_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func statusView(j job.Job) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:     j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == job.StatusCompleted {
		resp.AudioURL = "/api/v1/jobs/" + j.ID + "/result"
	}
	return resp
}

func (h *handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()
	views := make([]jobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, statusView(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  views,
		"count": len(views),
	})
}

func (h *handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusView(j))
}

func (h *handler) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Cancel(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *handler) handleJobResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	wav, sampleRate, err := h.jobs.Result(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if len(wav) == 0 {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "job completed but audio data is missing")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.wav", id))
	w.Header().Set("X-Sample-Rate", strconv.Itoa(sampleRate))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
