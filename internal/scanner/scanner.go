// Package scanner polls the artifact store for EPUBs dropped into owner
// inboxes (owner/epubs/name.epub) and submits them as conversion jobs.
package scanner

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bookcast/internal/config"
	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/metrics"
	"bookcast/internal/storage"
)

// Submitter accepts conversion jobs. Satisfied by the orchestrator.
type Submitter interface {
	Submit(owner, bookTitle string, epubData []byte, source string) (jobs.Job, error)
}

// Scanner is the background ingestion loop. The seen-set lives for the
// process only; a restart reprocesses whatever is still in the inboxes.
type Scanner struct {
	store    *storage.Store
	submit   Submitter
	interval time.Duration
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	seen map[string]struct{}
}

// New builds a scanner over the given store and submitter.
func New(cfg *config.Config, store *storage.Store, submit Submitter, m *metrics.Metrics, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:    store,
		submit:   submit,
		interval: time.Duration(cfg.Scanner.IntervalSeconds) * time.Second,
		backoff:  time.Duration(cfg.Scanner.ErrorBackoffSeconds) * time.Second,
		metrics:  m,
		logger:   logging.NewComponentLogger(logger, "scanner"),
		seen:     make(map[string]struct{}),
	}
}

// Run polls until ctx is canceled. Scan failures stretch the wait to the
// error backoff instead of stopping the loop.
func (s *Scanner) Run(ctx context.Context) {
	s.logger.Info("ingestion scanner started",
		logging.Duration("interval", s.interval),
		logging.Duration("error_backoff", s.backoff))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingestion scanner stopped")
			return
		case <-timer.C:
		}

		delay := s.interval
		if err := s.ScanOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("ingestion scanner stopped")
				return
			}
			delay = s.backoff
			if s.metrics != nil {
				s.metrics.ScanErrors.Inc()
			}
			s.logger.Warn("inbox scan failed", logging.Error(err))
		}
		timer.Reset(delay)
	}
}

// ScanOnce lists the store and submits every newly observed inbox EPUB.
// Submission is fire-and-forget; the scan never waits on job completion.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	keys, err := s.store.List(ctx, "")
	if err != nil {
		return err
	}

	found := 0
	for _, key := range keys {
		owner, name, ok := storage.ParseInboxKey(key)
		if !ok {
			continue
		}
		if _, done := s.seen[key]; done {
			continue
		}

		data, err := s.store.Get(ctx, key)
		if err != nil {
			// Leave the key unmarked so the next cycle retries it.
			s.logger.Warn("inbox download failed",
				logging.String(logging.FieldKey, key),
				logging.Error(err))
			continue
		}

		title := strings.TrimSuffix(name, ".epub")
		job, err := s.submit.Submit(owner, title, data, "scanner")
		if err != nil {
			s.logger.Warn("inbox submission rejected",
				logging.String(logging.FieldKey, key),
				logging.Error(err))
			continue
		}

		s.seen[key] = struct{}{}
		found++
		s.logger.Info("inbox EPUB submitted",
			logging.String(logging.FieldKey, key),
			logging.String(logging.FieldOwner, owner),
			logging.String(logging.FieldJobID, job.ID))
	}

	if found > 0 {
		s.logger.Info("inbox scan complete", logging.Int("submitted", found))
	}
	return nil
}
