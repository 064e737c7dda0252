// Package job holds the authoritative record of every synthesis job.
package job

import (
	"errors"
	"time"

	"github.com/example/go-tts-studio/internal/request"
)

// Status is a job lifecycle state. Queued and processing are non-terminal;
// completed, failed, and cancelled are final.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned for unknown job identities.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidState is returned when an operation is not legal for the
	// job's current state.
	ErrInvalidState = errors.New("operation not valid for job state")
)

// Job is one synthesis request tracked from admission to terminal outcome.
// Snapshots handed out by the Store are value copies; mutation goes through
// Store.Update only.
type Job struct {
	ID        string        `json:"job_id"`
	Spec      *request.Spec `json:"-"`
	Status    Status        `json:"status"`
	Progress  float64       `json:"progress"`
	Error     string        `json:"error,omitempty"`
	HasResult bool          `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ValidTransition reports whether the state machine allows from -> to.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing || to == StatusCancelled || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		// Terminal states are final.
		return false
	}
}
