// Package jobs tracks the in-process lifecycle of audiobook conversions.
// The registry is process-scoped; the manifest in the artifact store is the
// only durable record, and status lookups fall back to it after a restart.
package jobs

import "time"

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one EPUB conversion tracked in memory.
type Job struct {
	ID            string
	Owner         string
	BookTitle     string
	Status        Status
	Progress      int // 0..100
	Message       string
	ErrorMessage  string
	TotalChapters int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
