// Package orchestrator runs EPUB conversion jobs: extract chapters,
// synthesize audio, upload artifacts, and write the manifest that makes the
// result durable.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bookcast/internal/audio"
	"bookcast/internal/config"
	"bookcast/internal/epub"
	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/metrics"
	"bookcast/internal/storage"
	"bookcast/internal/tts"
)

// ErrNoStore reports that job submission is impossible without a configured
// artifact store.
var ErrNoStore = errors.New("cannot accept jobs: object store not configured")

// Orchestrator owns the job registry and executes accepted jobs with
// bounded concurrency. Submission is fire-and-forget: callers get a job id
// immediately and poll status afterwards.
type Orchestrator struct {
	cfg      *config.Config
	registry *jobs.Registry
	store    *storage.Store
	synth    tts.Synthesizer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	baseCtx context.Context
	slots   chan struct{}
	wg      sync.WaitGroup
}

// New wires an orchestrator. The store may be nil; submissions then fail
// with ErrNoStore while the rest of the daemon keeps serving.
func New(cfg *config.Config, registry *jobs.Registry, store *storage.Store, synth tts.Synthesizer, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	slots := cfg.Pipeline.MaxConcurrentJobs
	if slots < 1 {
		slots = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		synth:    synth,
		metrics:  m,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		baseCtx:  context.Background(),
		slots:    make(chan struct{}, slots),
	}
}

// Start binds job tasks to ctx. Jobs already running are unaffected.
func (o *Orchestrator) Start(ctx context.Context) {
	o.baseCtx = ctx
}

// Registry exposes the job table for status lookups.
func (o *Orchestrator) Registry() *jobs.Registry {
	return o.registry
}

// Submit accepts a new conversion job and returns its snapshot. The job
// body runs on its own goroutine; source labels the submitter for metrics.
func (o *Orchestrator) Submit(owner, bookTitle string, epubData []byte, source string) (jobs.Job, error) {
	if o.store == nil {
		return jobs.Job{}, ErrNoStore
	}

	job := o.registry.Create(owner, bookTitle)
	if o.metrics != nil {
		o.metrics.JobsSubmitted.WithLabelValues(source).Inc()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runJob(job.ID, owner, bookTitle, epubData)
	}()

	return job, nil
}

// Wait blocks until all accepted jobs have reached a terminal state.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) runJob(jobID, owner, bookTitle string, epubData []byte) {
	ctx := logging.WithOwner(logging.WithJobID(o.baseCtx, jobID), owner)
	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.registry.SetFailed(jobID, fmt.Sprintf("internal error: %v", r))
			if o.metrics != nil {
				o.metrics.JobsFailed.Inc()
			}
			logger.Error("job task panicked", logging.Any("panic", r))
		}
	}()

	o.slots <- struct{}{}
	defer func() { <-o.slots }()

	if o.metrics != nil {
		o.metrics.JobsInFlight.Inc()
		defer o.metrics.JobsInFlight.Dec()
		defer func() { o.metrics.JobDuration.Observe(time.Since(started).Seconds()) }()
	}

	if err := o.process(ctx, logger, jobID, owner, bookTitle, epubData); err != nil {
		o.registry.SetFailed(jobID, err.Error())
		if o.metrics != nil {
			o.metrics.JobsFailed.Inc()
		}
		logger.Error("job failed", logging.Error(err))
		return
	}
	if o.metrics != nil {
		o.metrics.JobsCompleted.Inc()
	}
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, jobID, owner, bookTitle string, epubData []byte) error {
	chapters, err := epub.Extract(epubData, epub.Options{
		MinChars: o.cfg.Pipeline.MinChapterChars,
		MaxChars: o.cfg.Pipeline.MaxChapterChars,
	})
	if err != nil {
		return err
	}
	if len(chapters) == 0 {
		return errors.New("no readable text found in EPUB")
	}

	total := len(chapters)
	o.registry.SetProcessing(jobID, total, fmt.Sprintf("converting %d chapters", total))
	o.registry.SetProgress(jobID, 10, "")
	logger.Info("chapters extracted", logging.Int("chapters", total))

	manifest := &storage.Manifest{
		JobID:     jobID,
		Owner:     owner,
		BookTitle: bookTitle,
		Chapters:  []storage.ChapterArtifact{},
		CreatedAt: time.Now().UTC(),
		Status:    string(jobs.StatusCompleted),
	}

	dropped := 0
	for i, chapter := range chapters {
		ordinal := i + 1
		artifact, err := o.convertChapter(ctx, owner, jobID, ordinal, chapter)
		if err != nil {
			dropped++
			if o.metrics != nil {
				o.metrics.ChaptersDropped.Inc()
			}
			logger.Warn("chapter dropped",
				logging.Int(logging.FieldChapter, ordinal),
				logging.Error(err))
		} else {
			manifest.Chapters = append(manifest.Chapters, artifact)
			if o.metrics != nil {
				o.metrics.ChaptersSynthesized.Inc()
			}
		}
		// Integer percent: with more than 80 chapters consecutive values
		// repeat, and the registry keeps progress non-decreasing either way.
		o.registry.SetProgress(jobID, 10+ordinal*80/total,
			fmt.Sprintf("converted chapter %d/%d", ordinal, total))
	}

	if err := o.store.SaveManifest(ctx, manifest); err != nil {
		// Chapters may already be uploaded; without a manifest nothing is
		// discoverable, so the job is lost.
		logger.Error("manifest write failed, synthesized chapters are unreachable",
			logging.Int("chapters", len(manifest.Chapters)),
			logging.Error(err))
		return fmt.Errorf("save manifest: %w", err)
	}

	message := fmt.Sprintf("completed: %d chapters", len(manifest.Chapters))
	if dropped > 0 {
		message = fmt.Sprintf("%s (%d dropped)", message, dropped)
	}
	o.registry.SetCompleted(jobID, message)
	logger.Info("job completed",
		logging.Int("chapters", len(manifest.Chapters)),
		logging.Int("dropped", dropped))
	return nil
}

func (o *Orchestrator) convertChapter(ctx context.Context, owner, jobID string, ordinal int, chapter epub.Chapter) (storage.ChapterArtifact, error) {
	started := time.Now()
	audioBytes, err := o.synth.Synthesize(ctx, tts.Request{Text: chapter.Text})
	if err != nil {
		return storage.ChapterArtifact{}, fmt.Errorf("synthesize: %w", err)
	}
	if o.metrics != nil {
		o.metrics.SynthesisDuration.Observe(time.Since(started).Seconds())
	}

	key := storage.ChapterKey(owner, jobID, ordinal)
	if err := o.store.Put(ctx, key, audioBytes, "audio/mpeg"); err != nil {
		if o.metrics != nil {
			o.metrics.StorageErrors.WithLabelValues("put").Inc()
		}
		return storage.ChapterArtifact{}, fmt.Errorf("upload: %w", err)
	}

	return storage.ChapterArtifact{
		Chapter:  ordinal,
		Title:    chapter.Title,
		URL:      o.streamURL(owner, jobID, ordinal),
		Key:      key,
		Duration: audio.Duration(audioBytes),
	}, nil
}

func (o *Orchestrator) streamURL(owner, jobID string, ordinal int) string {
	path := fmt.Sprintf("/api/stream/%s/%s/%s", owner, jobID, storage.ChapterFileName(ordinal))
	if base := o.cfg.Storage.PublicBaseURL; base != "" {
		return base + path
	}
	return path
}
