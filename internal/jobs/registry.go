package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the lock-protected job table. All accessors return copies so
// callers never share mutable state with running job tasks.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a queued job for owner and returns its snapshot.
func (r *Registry) Create(owner, bookTitle string) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Owner:     owner,
		BookTitle: bookTitle,
		Status:    StatusQueued,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job with the given id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SetProcessing moves a job into the processing state.
func (r *Registry) SetProcessing(id string, totalChapters int, message string) {
	r.update(id, func(job *Job) {
		job.Status = StatusProcessing
		job.TotalChapters = totalChapters
		job.Message = message
	})
}

// SetProgress records progress for a running job. Progress never moves
// backwards and is clamped to 0..100.
func (r *Registry) SetProgress(id string, progress int, message string) {
	r.update(id, func(job *Job) {
		if progress > 100 {
			progress = 100
		}
		if progress > job.Progress {
			job.Progress = progress
		}
		if message != "" {
			job.Message = message
		}
	})
}

// SetCompleted marks a job finished. Progress jumps to 100.
func (r *Registry) SetCompleted(id, message string) {
	r.update(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Progress = 100
		job.Message = message
		job.ErrorMessage = ""
	})
}

// SetFailed marks a job failed with the given reason. Terminal states are
// never overwritten.
func (r *Registry) SetFailed(id, reason string) {
	r.update(id, func(job *Job) {
		if job.Status.Terminal() {
			return
		}
		job.Status = StatusFailed
		job.Message = "failed"
		job.ErrorMessage = reason
	})
}

func (r *Registry) update(id string, mutate func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
}
