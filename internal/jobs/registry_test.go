package jobs_test

import (
	"sync"
	"testing"

	"bookcast/internal/jobs"
)

func TestCreateAndGet(t *testing.T) {
	reg := jobs.NewRegistry()
	created := reg.Create("alice", "Dracula")

	if created.ID == "" {
		t.Fatal("expected generated job id")
	}
	if created.Status != jobs.StatusQueued {
		t.Fatalf("unexpected status: %s", created.Status)
	}

	got, ok := reg.Get(created.ID)
	if !ok {
		t.Fatal("expected job to be present")
	}
	if got.Owner != "alice" || got.BookTitle != "Dracula" {
		t.Fatalf("unexpected job: %+v", got)
	}

	if _, ok := reg.Get("unknown"); ok {
		t.Fatal("expected lookup miss for unknown id")
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("alice", "Dracula")

	reg.SetProcessing(job.ID, 5, "converting")
	reg.SetProgress(job.ID, 50, "chapter 3")
	reg.SetProgress(job.ID, 30, "stale update")

	got, _ := reg.Get(job.ID)
	if got.Progress != 50 {
		t.Fatalf("expected progress 50, got %d", got.Progress)
	}
	if got.Message != "stale update" {
		t.Fatalf("expected message update, got %q", got.Message)
	}

	reg.SetProgress(job.ID, 500, "")
	got, _ = reg.Get(job.ID)
	if got.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %d", got.Progress)
	}
}

func TestCompletedClearsError(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("alice", "Dracula")

	reg.SetCompleted(job.ID, "done, 3 chapters")
	got, _ := reg.Get(job.ID)
	if got.Status != jobs.StatusCompleted || got.Progress != 100 {
		t.Fatalf("unexpected job state: %+v", got)
	}

	// A late failure signal must not flip a finished job.
	reg.SetFailed(job.ID, "spurious")
	got, _ = reg.Get(job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("terminal status overwritten: %+v", got)
	}
}

func TestFailedCapturesReason(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("bob", "Empty Book")

	reg.SetFailed(job.ID, "no chapters extracted")
	got, _ := reg.Get(job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if got.ErrorMessage != "no chapters extracted" {
		t.Fatalf("unexpected error message: %q", got.ErrorMessage)
	}
}

func TestListNewestFirst(t *testing.T) {
	reg := jobs.NewRegistry()
	reg.Create("alice", "First")
	reg.Create("alice", "Second")

	all := reg.List()
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}

func TestConcurrentUpdates(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("alice", "Dracula")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			reg.SetProgress(job.ID, p*5, "tick")
		}(i)
	}
	wg.Wait()

	got, _ := reg.Get(job.ID)
	if got.Progress != 95 {
		t.Fatalf("expected max progress 95, got %d", got.Progress)
	}
}
