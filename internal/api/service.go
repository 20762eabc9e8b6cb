package api

import (
	"context"
	"errors"
	"log/slog"
	"path"

	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/storage"
)

// Service answers status and catalog queries. The store may be nil; read
// paths then degrade to empty results or lookup misses instead of erroring.
type Service struct {
	registry   *jobs.Registry
	store      *storage.Store
	publicBase string
	logger     *slog.Logger
}

// NewService wires the read-side service.
func NewService(registry *jobs.Registry, store *storage.Store, publicBase string, logger *slog.Logger) *Service {
	return &Service{
		registry:   registry,
		store:      store,
		publicBase: publicBase,
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// JobStatus resolves a job id against the in-memory registry first and
// falls back to manifests so finished jobs survive a daemon restart.
func (s *Service) JobStatus(ctx context.Context, jobID string) (JobStatusResponse, bool) {
	if job, ok := s.registry.Get(jobID); ok {
		return JobStatusResponse{
			JobID:     job.ID,
			Status:    string(job.Status),
			Progress:  job.Progress,
			Message:   job.Message,
			Error:     job.ErrorMessage,
			BookTitle: job.BookTitle,
			Chapters:  job.TotalChapters,
			CreatedAt: job.CreatedAt,
		}, true
	}

	manifest, ok := s.findManifest(ctx, jobID)
	if !ok {
		return JobStatusResponse{}, false
	}
	return JobStatusResponse{
		JobID:     manifest.JobID,
		Status:    string(jobs.StatusCompleted),
		Progress:  100,
		BookTitle: manifest.BookTitle,
		Chapters:  len(manifest.Chapters),
		CreatedAt: manifest.CreatedAt,
	}, true
}

// Catalog lists the finished audiobooks under one owner namespace. Store
// failures and unreadable manifests degrade to an empty (or shorter)
// catalog; the endpoint is advisory.
func (s *Service) Catalog(ctx context.Context, owner string) CatalogResponse {
	catalog := CatalogResponse{Audiobooks: []AudiobookSummary{}}
	if s.store == nil {
		return catalog
	}

	jobDirs, err := s.store.ListDirs(ctx, owner+"/")
	if err != nil {
		s.logger.Warn("catalog listing failed",
			logging.String(logging.FieldOwner, owner),
			logging.Error(err))
		return catalog
	}

	for _, jobID := range jobDirs {
		manifest, err := s.store.LoadManifest(ctx, owner, jobID)
		if err != nil {
			// Inbox folders and half-written jobs have no manifest.
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("catalog manifest unreadable",
					logging.String(logging.FieldOwner, owner),
					logging.String(logging.FieldJobID, jobID),
					logging.Error(err))
			}
			continue
		}
		catalog.Audiobooks = append(catalog.Audiobooks, AudiobookSummary{
			ID:          manifest.JobID,
			Title:       manifest.BookTitle,
			Chapters:    len(manifest.Chapters),
			CreatedAt:   manifest.CreatedAt,
			DownloadURL: "/api/download/" + manifest.JobID,
		})
	}
	catalog.Total = len(catalog.Audiobooks)
	return catalog
}

// Download assembles the chapter listing for one audiobook, scanning owner
// namespaces since the public id carries no owner.
func (s *Service) Download(ctx context.Context, audiobookID string) (DownloadResponse, bool) {
	manifest, ok := s.findManifest(ctx, audiobookID)
	if !ok {
		return DownloadResponse{}, false
	}

	resp := DownloadResponse{
		AudiobookID: manifest.JobID,
		Title:       manifest.BookTitle,
		Chapters:    make([]ChapterDetail, 0, len(manifest.Chapters)),
	}
	for _, chapter := range manifest.Chapters {
		resp.Chapters = append(resp.Chapters, ChapterDetail{
			Chapter:  chapter.Chapter,
			Title:    chapter.Title,
			URL:      s.streamURL(manifest.Owner, manifest.JobID, chapter.Key),
			Duration: chapter.Duration,
		})
	}
	resp.TotalChapters = len(resp.Chapters)
	return resp, true
}

func (s *Service) findManifest(ctx context.Context, jobID string) (*storage.Manifest, bool) {
	if s.store == nil {
		return nil, false
	}
	owners, err := s.store.ListDirs(ctx, "")
	if err != nil {
		s.logger.Warn("owner listing failed", logging.Error(err))
		return nil, false
	}
	for _, owner := range owners {
		manifest, err := s.store.LoadManifest(ctx, owner, jobID)
		if err != nil {
			continue
		}
		return manifest, true
	}
	return nil, false
}

// streamURL rewrites a chapter key to the delivery endpoint so range
// handling and access control stay centralized.
func (s *Service) streamURL(owner, jobID, key string) string {
	p := "/api/stream/" + owner + "/" + jobID + "/" + path.Base(key)
	if s.publicBase != "" {
		return s.publicBase + p
	}
	return p
}
