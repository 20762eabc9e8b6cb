// Package api implements the read-side services behind the status and
// delivery endpoints: job status lookup, per-owner catalogs, and download
// listings assembled from manifests.
package api

import "time"

// JobStatusResponse is the wire shape of a job status lookup.
type JobStatusResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	BookTitle string    `json:"book_title,omitempty"`
	Chapters  int       `json:"chapters"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AudiobookSummary is one catalog row.
type AudiobookSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Chapters    int       `json:"chapters"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL string    `json:"download_url"`
}

// CatalogResponse lists an owner's finished audiobooks.
type CatalogResponse struct {
	Audiobooks []AudiobookSummary `json:"audiobooks"`
	Total      int                `json:"total"`
}

// ChapterDetail is one playable chapter in a download listing.
type ChapterDetail struct {
	Chapter  int     `json:"chapter"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// DownloadResponse lists every chapter of one audiobook with playback URLs
// pointing at the streaming endpoint.
type DownloadResponse struct {
	AudiobookID   string          `json:"audiobook_id"`
	Title         string          `json:"title"`
	Chapters      []ChapterDetail `json:"chapters"`
	TotalChapters int             `json:"total_chapters"`
}
