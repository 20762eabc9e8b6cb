package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ChapterArtifact records one synthesized chapter inside a manifest.
type ChapterArtifact struct {
	Chapter  int     `json:"chapter"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Key      string  `json:"r2_key"`
	Duration float64 `json:"duration"`
}

// Manifest is the durable record of a finished job. It lives next to the
// chapter audio at owner/job/metadata.json and is the only thing the catalog
// and download endpoints read.
type Manifest struct {
	JobID     string            `json:"job_id"`
	Owner     string            `json:"user_id"`
	BookTitle string            `json:"book_title"`
	Chapters  []ChapterArtifact `json:"chapters"`
	CreatedAt time.Time         `json:"created_at"`
	Status    string            `json:"status"`
}

// SaveManifest writes the manifest for its job.
func (s *Store) SaveManifest(ctx context.Context, m *Manifest) error {
	if m.JobID == "" || m.Owner == "" {
		return fmt.Errorf("manifest missing job id or owner")
	}
	if m.Chapters == nil {
		m.Chapters = []ChapterArtifact{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	key := ManifestKey(m.Owner, m.JobID)
	if err := s.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest for a job. Missing manifests surface as
// ErrNotFound.
func (s *Store) LoadManifest(ctx context.Context, owner, jobID string) (*Manifest, error) {
	data, err := s.Get(ctx, ManifestKey(owner, jobID))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s/%s: %w", owner, jobID, err)
	}
	return &m, nil
}
