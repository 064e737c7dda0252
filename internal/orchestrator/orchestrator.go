// Package orchestrator schedules synthesis jobs: it owns the job lifecycle
// state machine, the capability gate, and cancellation propagation.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/go-tts-studio/internal/engine"
	"github.com/example/go-tts-studio/internal/gate"
	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/request"
)

// Orchestrator runs each admitted job in its own goroutine, bounded by the
// capability gate. It is the only component that writes job state; the REST
// and WebSocket layers are independent consumers of the same operations.
type Orchestrator struct {
	store *job.Store
	gate  *gate.Gate
	eng   engine.Engine
	log   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func New(store *job.Store, g *gate.Gate, eng engine.Engine, log *slog.Logger) *Orchestrator {
	ctx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		store:   store,
		gate:    g,
		eng:     eng,
		log:     log,
		cancels: make(map[string]context.CancelFunc),
		baseCtx: ctx,
		stop:    stop,
	}
}

// Submit admits a normalized specification: it creates a queued job record,
// schedules the work, and returns the queued snapshot immediately. Errors
// after this point are recorded on the job, never returned to the caller.
func (o *Orchestrator) Submit(spec *request.Spec) job.Job {
	j := o.store.Create(spec)

	ctx, cancel := context.WithCancel(o.baseCtx)
	o.mu.Lock()
	o.cancels[j.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, j.ID, spec)

	o.log.Info("job admitted", slog.String("job_id", j.ID), slog.String("mode", string(spec.Mode)))
	return j
}

// Cancel requests cancellation of a job. Cancelling a queued job commits the
// terminal state immediately without ever consuming a capability slot; for a
// processing job the commit also wins the race against natural completion,
// so a late engine result is discarded. Cancelling a job already in a
// terminal state fails with job.ErrInvalidState.
func (o *Orchestrator) Cancel(id string) (job.Job, error) {
	snap, err := o.store.Update(id, func(j *job.Job) error {
		if j.Status.Terminal() {
			return job.ErrInvalidState
		}
		j.Status = job.StatusCancelled
		return nil
	})
	if err != nil {
		return snap, err
	}

	// Best-effort interrupt of in-flight work.
	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
	}
	o.mu.Unlock()

	o.log.Info("job cancelled", slog.String("job_id", id))
	return snap, nil
}

// Get returns a snapshot of one job.
func (o *Orchestrator) Get(id string) (job.Job, error) {
	return o.store.Get(id)
}

// List returns snapshots of all jobs, newest first.
func (o *Orchestrator) List() []job.Job {
	return o.store.List()
}

// Result returns the completed audio payload for a job.
func (o *Orchestrator) Result(id string) ([]byte, int, error) {
	return o.store.Result(id)
}

// Watch subscribes to committed state/progress transitions of one job.
func (o *Orchestrator) Watch(id string) (<-chan job.Job, func(), error) {
	return o.store.Subscribe(id)
}

// Shutdown signals cancellation to every in-flight job and waits for the
// workers to drain, or for ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, id string, spec *request.Spec) {
	defer o.wg.Done()
	defer o.dropCancel(id)

	// Wait for a capability slot. The job stays queued here; this is a
	// scheduling point, not a failure.
	if err := o.gate.Acquire(ctx); err != nil {
		o.finalizeCancelled(id)
		return
	}
	defer o.gate.Release()

	// queued -> processing. A cancel may already have won.
	_, err := o.store.Update(id, func(j *job.Job) error {
		if j.Status != job.StatusQueued {
			return job.ErrInvalidState
		}
		j.Status = job.StatusProcessing
		j.Progress = 0
		return nil
	})
	if err != nil {
		return
	}

	report := func(f float64) {
		_, _ = o.store.Update(id, func(j *job.Job) error {
			if j.Status != job.StatusProcessing {
				return job.ErrInvalidState
			}
			j.Progress = clampProgress(f)
			return nil
		})
	}

	res, synthErr := o.eng.Synthesize(ctx, spec, report)
	if synthErr != nil {
		if ctx.Err() != nil {
			o.finalizeCancelled(id)
			return
		}
		_, _ = o.store.Update(id, func(j *job.Job) error {
			if j.Status.Terminal() {
				return job.ErrInvalidState
			}
			j.Status = job.StatusFailed
			j.Error = synthErr.Error()
			return nil
		})
		o.log.Error("synthesis failed", slog.String("job_id", id), slog.String("error", synthErr.Error()))
		return
	}

	// Stash the payload first: Result() only serves completed jobs, so the
	// payload stays invisible until the completion transition commits.
	_ = o.store.SetResult(id, res.WAV, res.SampleRate)

	_, err = o.store.Update(id, func(j *job.Job) error {
		if j.Status != job.StatusProcessing {
			return job.ErrInvalidState
		}
		j.Status = job.StatusCompleted
		j.Progress = 1.0
		j.HasResult = true
		return nil
	})
	if err != nil {
		// A cancel committed first; discard the late result.
		_ = o.store.SetResult(id, nil, 0)
		return
	}

	o.log.Info("job completed", slog.String("job_id", id), slog.Int("wav_bytes", len(res.WAV)))
}

// finalizeCancelled makes sure a worker interrupted by context cancellation
// leaves its job in the cancelled state. Usually Cancel has already committed
// the transition; this covers orchestrator shutdown, where only the context
// is cancelled.
func (o *Orchestrator) finalizeCancelled(id string) {
	_, _ = o.store.Update(id, func(j *job.Job) error {
		if j.Status.Terminal() {
			return job.ErrInvalidState
		}
		j.Status = job.StatusCancelled
		return nil
	})
}

func (o *Orchestrator) dropCancel(id string) {
	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		delete(o.cancels, id)
		cancel()
	}
	o.mu.Unlock()
}

// clampProgress keeps reported progress inside [0,1); 1.0 is reserved for
// the completion transition.
func clampProgress(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f >= 1:
		return 0.99
	default:
		return f
	}
}
