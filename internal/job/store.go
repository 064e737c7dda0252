package job

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/go-tts-studio/internal/request"
	"github.com/google/uuid"
)

// Store is the in-memory job registry. All job mutation is serialized per
// job identity; readers always observe committed transitions in order.
// Completed audio payloads are owned by the store until retrieved or pruned.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	now  func() time.Time
}

type entry struct {
	mu         sync.Mutex
	job        Job
	result     []byte
	sampleRate int
	watchers   map[int]chan Job
	nextWatch  int
	pruned     bool
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*entry),
		now:  time.Now,
	}
}

// Create assigns an identity to spec and records the job as queued.
func (s *Store) Create(spec *request.Spec) Job {
	now := s.now().UTC()
	j := Job{
		ID:        uuid.NewString(),
		Spec:      spec,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[j.ID] = &entry{job: j, watchers: make(map[int]chan Job)}
	s.mu.Unlock()

	return j
}

// Get returns a snapshot of the job with the given id.
func (s *Store) Get(id string) (Job, error) {
	e, err := s.entry(id)
	if err != nil {
		return Job{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// Update applies mutate atomically to one job. The mutator sees a copy of the
// current record and may return an error to abort the transition; nothing is
// committed in that case. Progress is clamped monotonically: an update may
// never lower it. Watchers are notified of every committed change.
func (s *Store) Update(id string, mutate func(*Job) error) (Job, error) {
	e, err := s.entry(id)
	if err != nil {
		return Job{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.job
	if err := mutate(&next); err != nil {
		return e.job, err
	}

	if next.Progress < e.job.Progress {
		next.Progress = e.job.Progress
	}
	next.ID = e.job.ID
	next.Spec = e.job.Spec
	next.CreatedAt = e.job.CreatedAt
	next.UpdatedAt = s.now().UTC()

	e.job = next
	e.notifyLocked()

	return e.job, nil
}

// SetResult hands ownership of a completed payload to the store. The caller
// must transition the job to completed in the same logical step (see
// orchestrator); SetResult itself does not touch the state.
func (s *Store) SetResult(id string, wav []byte, sampleRate int) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = wav
	e.sampleRate = sampleRate
	return nil
}

// Result returns the completed audio payload. It fails with ErrInvalidState
// unless the job is completed.
func (s *Store) Result(id string) ([]byte, int, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status != StatusCompleted {
		return nil, 0, fmt.Errorf("%w: job is %s", ErrInvalidState, e.job.Status)
	}
	if e.result == nil {
		return nil, 0, fmt.Errorf("job completed but result payload is missing")
	}
	return e.result, e.sampleRate, nil
}

// List returns snapshots of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job)
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Subscribe registers a watcher for one job. The returned channel carries
// snapshots of committed transitions; intermediate snapshots may be conflated
// under load but the latest state, including the terminal one, is always
// observable. The cancel func releases the watcher.
func (s *Store) Subscribe(id string) (<-chan Job, func(), error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Job, 1)

	e.mu.Lock()
	wid := e.nextWatch
	e.nextWatch++
	e.watchers[wid] = ch
	// Seed with the current snapshot so subscribers need no separate Get.
	ch <- e.job
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if w, ok := e.watchers[wid]; ok {
			delete(e.watchers, wid)
			close(w)
		}
	}

	return ch, cancel, nil
}

// Prune removes terminal jobs whose UpdatedAt predates the retention window
// and releases their result payloads. Non-terminal jobs are never pruned.
// Returns the number of jobs removed.
func (s *Store) Prune(olderThan time.Duration) int {
	cutoff := s.now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		e.mu.Lock()
		expired := e.job.Status.Terminal() && e.job.UpdatedAt.Before(cutoff)
		if expired {
			e.result = nil
			e.pruned = true
			for wid, w := range e.watchers {
				delete(e.watchers, wid)
				close(w)
			}
		}
		e.mu.Unlock()

		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// PruneLoop runs Prune every interval until ctx is cancelled.
func (s *Store) PruneLoop(ctx context.Context, interval, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(ttl); n > 0 {
				log.Debug("pruned expired jobs", slog.Int("count", n))
			}
		}
	}
}

func (s *Store) entry(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// notifyLocked pushes the current snapshot to every watcher. Sends are
// conflating: when a watcher's buffer is full the stale snapshot is replaced
// by the newer one, so slow consumers skip intermediates but never miss the
// latest state. Caller holds e.mu.
func (e *entry) notifyLocked() {
	for _, w := range e.watchers {
		select {
		case w <- e.job:
		default:
			select {
			case <-w:
			default:
			}
			select {
			case w <- e.job:
			default:
			}
		}
	}
}
