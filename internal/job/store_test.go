package job_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/request"
)

func testSpec() *request.Spec {
	return &request.Spec{
		Mode:        request.ModeCustomVoice,
		CustomVoice: &request.CustomVoiceSpec{Text: "hi", Language: "Auto", Speaker: "Vivian"},
	}
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	s := job.NewStore()

	a := s.Create(testSpec())
	b := s.Create(testSpec())

	if a.ID == "" || b.ID == "" {
		t.Fatal("want non-empty IDs")
	}
	if a.ID == b.ID {
		t.Fatalf("want unique IDs, both %q", a.ID)
	}
	if a.Status != job.StatusQueued {
		t.Errorf("want new job queued, got %q", a.Status)
	}
}

func TestGetUnknownJob(t *testing.T) {
	s := job.NewStore()

	_, err := s.Get("nope")
	if !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdateCommitsTransition(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	updated, err := s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusProcessing
		j.Progress = 0.25
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Status != job.StatusProcessing {
		t.Errorf("want processing, got %q", updated.Status)
	}
	if updated.Progress != 0.25 {
		t.Errorf("want progress 0.25, got %f", updated.Progress)
	}
	if !updated.UpdatedAt.After(j.UpdatedAt) && !updated.UpdatedAt.Equal(j.UpdatedAt) {
		t.Error("want UpdatedAt bumped")
	}
}

func TestUpdateMutatorErrorAbortsCommit(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	boom := errors.New("boom")
	_, err := s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusFailed
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want mutator error surfaced, got %v", err)
	}

	got, _ := s.Get(j.ID)
	if got.Status != job.StatusQueued {
		t.Errorf("aborted update must not commit; status = %q", got.Status)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	_, _ = s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusProcessing
		j.Progress = 0.6
		return nil
	})

	got, err := s.Update(j.ID, func(j *job.Job) error {
		j.Progress = 0.3
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got.Progress != 0.6 {
		t.Errorf("want progress clamped at 0.6, got %f", got.Progress)
	}
}

func TestResultLifecycle(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	wav := []byte("RIFF....WAVE")

	if err := s.SetResult(j.ID, wav, 24000); err != nil {
		t.Fatalf("SetResult: %v", err)
	}

	// Not completed yet: result must not be retrievable.
	_, _, err := s.Result(j.ID)
	if !errors.Is(err, job.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState before completion, got %v", err)
	}

	_, _ = s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusCompleted
		j.Progress = 1.0
		j.HasResult = true
		return nil
	})

	got, rate, err := s.Result(j.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if string(got) != string(wav) {
		t.Error("result payload changed between set and get")
	}
	if rate != 24000 {
		t.Errorf("want rate 24000, got %d", rate)
	}

	// Retrievable repeatedly until pruned.
	if _, _, err := s.Result(j.ID); err != nil {
		t.Fatalf("second Result: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := job.NewStore()

	for range 3 {
		s.Create(testSpec())
		time.Sleep(time.Millisecond)
	}

	jobs := s.List()
	if len(jobs) != 3 {
		t.Fatalf("want 3 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Fatal("want newest first ordering")
		}
	}
}

func TestPruneRemovesOnlyExpiredTerminalJobs(t *testing.T) {
	s := job.NewStore()

	terminal := s.Create(testSpec())
	running := s.Create(testSpec())

	_, _ = s.Update(terminal.ID, func(j *job.Job) error {
		j.Status = job.StatusCompleted
		return nil
	})
	_, _ = s.Update(running.ID, func(j *job.Job) error {
		j.Status = job.StatusProcessing
		return nil
	})

	// Nothing is old enough yet.
	if n := s.Prune(time.Hour); n != 0 {
		t.Fatalf("want 0 pruned, got %d", n)
	}

	// Zero retention: terminal job is expired, processing job survives.
	if n := s.Prune(-time.Second); n != 1 {
		t.Fatalf("want 1 pruned, got %d", n)
	}

	if _, err := s.Get(terminal.ID); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("want pruned job gone, got %v", err)
	}
	if _, err := s.Get(running.ID); err != nil {
		t.Errorf("processing job must survive prune: %v", err)
	}
}

func TestSubscribeObservesTransitionsInOrder(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	ch, cancel, err := s.Subscribe(j.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	// Seed snapshot.
	first := <-ch
	if first.Status != job.StatusQueued {
		t.Fatalf("want seeded queued snapshot, got %q", first.Status)
	}

	_, _ = s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusProcessing
		return nil
	})

	snap := <-ch
	if snap.Status != job.StatusProcessing {
		t.Fatalf("want processing snapshot, got %q", snap.Status)
	}
}

func TestSubscribeConflatesToLatest(t *testing.T) {
	s := job.NewStore()
	j := s.Create(testSpec())

	ch, cancel, err := s.Subscribe(j.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	// Do not read; pile up transitions so the buffer conflates.
	_, _ = s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusProcessing
		j.Progress = 0.5
		return nil
	})
	_, _ = s.Update(j.ID, func(j *job.Job) error {
		j.Status = job.StatusCancelled
		return nil
	})

	var last job.Job
	for snap := range ch {
		last = snap
		if snap.Status.Terminal() {
			break
		}
	}

	if last.Status != job.StatusCancelled {
		t.Fatalf("want terminal cancelled snapshot observable, got %q", last.Status)
	}
}

func TestSubscribeUnknownJob(t *testing.T) {
	s := job.NewStore()

	_, _, err := s.Subscribe("nope")
	if !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to job.Status
		want     bool
	}{
		{job.StatusQueued, job.StatusProcessing, true},
		{job.StatusQueued, job.StatusCancelled, true},
		{job.StatusQueued, job.StatusCompleted, false},
		{job.StatusProcessing, job.StatusCompleted, true},
		{job.StatusProcessing, job.StatusFailed, true},
		{job.StatusProcessing, job.StatusCancelled, true},
		{job.StatusCompleted, job.StatusCancelled, false},
		{job.StatusFailed, job.StatusProcessing, false},
		{job.StatusCancelled, job.StatusQueued, false},
	}

	for _, tc := range tests {
		name := fmt.Sprintf("%s->%s", tc.from, tc.to)
		if got := job.ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("%s: want %v, got %v", name, tc.want, got)
		}
	}
}
