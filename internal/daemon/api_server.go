package daemon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookcast/internal/config"
	"bookcast/internal/logging"
	"bookcast/internal/orchestrator"
	"bookcast/internal/storage"
)

const streamCacheControl = "public, max-age=31536000"

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process-epub", srv.handleProcessEpub)
	mux.HandleFunc("GET /api/job-status/{job_id}", srv.handleJobStatus)
	mux.HandleFunc("GET /api/audiobooks/{user_id}", srv.handleAudiobooks)
	mux.HandleFunc("GET /api/download/{audiobook_id}", srv.handleDownload)
	mux.HandleFunc("GET /api/stream/{user_id}/{job_id}/{chapter_file}", srv.handleStream)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /{$}", srv.handleIndex)
	if d.metrics != nil {
		mux.Handle("GET /metrics", d.metrics.Handler())
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type processEpubRequest struct {
	UserID    string `json:"user_id"`
	BookTitle string `json:"book_title"`
	EpubData  string `json:"epub_data"`
}

func (s *apiServer) handleProcessEpub(w http.ResponseWriter, r *http.Request) {
	var req processEpubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.BookTitle = strings.TrimSpace(req.BookTitle)
	if req.UserID == "" || req.BookTitle == "" || req.EpubData == "" {
		s.writeError(w, http.StatusBadRequest, "user_id, book_title, and epub_data are required")
		return
	}

	epubBytes, err := base64.StdEncoding.DecodeString(req.EpubData)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "epub_data is not valid base64")
		return
	}

	job, err := s.daemon.orch.Submit(req.UserID, req.BookTitle, epubBytes, "api")
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoStore) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"job_id":     job.ID,
		"status":     "processing",
		"message":    "EPUB accepted for conversion",
		"status_url": "/api/job-status/" + job.ID,
	})
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	resp, ok := s.daemon.service.JobStatus(r.Context(), jobID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleAudiobooks(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("user_id")
	s.writeJSON(w, http.StatusOK, s.daemon.service.Catalog(r.Context(), owner))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	audiobookID := r.PathValue("audiobook_id")
	resp, ok := s.daemon.service.Download(r.Context(), audiobookID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "audiobook not found")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	key, err := storage.StreamKey(r.PathValue("user_id"), r.PathValue("job_id"), r.PathValue("chapter_file"))
	if err != nil {
		s.countStream("404")
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	info, err := s.daemon.store.Stat(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.countStream("404")
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.countStream("503")
		s.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	start, end, partial, ok := parseRange(r.Header.Get("Range"), info.Size)
	if !ok {
		// Requested range lies entirely past the object.
		s.countStream("416")
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	length := end - start + 1
	reader, err := s.daemon.store.NewRangeReader(r.Context(), key, start, length)
	if err != nil {
		s.countStream("503")
		s.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", streamCacheControl)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, info.Size))
		w.WriteHeader(http.StatusPartialContent)
		s.countStream("206")
	} else {
		s.countStream("200")
	}

	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Debug("stream interrupted",
			logging.String(logging.FieldKey, key),
			logging.Error(err))
	}
}

// parseRange interprets a "bytes=start-end" header against an object of the
// given size. A missing or malformed header falls back to full delivery; a
// range starting past the end is unsatisfiable (ok=false). A suffix range
// (bytes=-N) is intentionally read as 0..N rather than the last N bytes,
// matching what audio players already receive from the production endpoint.
func parseRange(header string, size int64) (start, end int64, partial, ok bool) {
	end = size - 1
	if header == "" {
		return 0, end, false, true
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, end, false, true
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, end, false, true
	}

	start = 0
	if startStr != "" {
		parsed, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || parsed < 0 {
			return 0, size - 1, false, true
		}
		start = parsed
	}
	if endStr != "" {
		parsed, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || parsed < start {
			return 0, size - 1, false, true
		}
		end = parsed
	}

	if start >= size {
		return 0, 0, false, false
	}
	if end > size-1 {
		end = size - 1
	}
	return start, end, true, true
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	storageState := "unconfigured"
	if s.daemon.store != nil {
		storageState = "connected"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"service":      "bookcast",
		"tts_backends": s.daemon.ttsBackends(),
		"storage":      storageState,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *apiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":     "bookcast",
		"description": "EPUB to chaptered-MP3 audiobook pipeline",
		"endpoints": map[string]string{
			"submit":     "POST /api/process-epub",
			"job_status": "GET /api/job-status/{job_id}",
			"audiobooks": "GET /api/audiobooks/{user_id}",
			"download":   "GET /api/download/{audiobook_id}",
			"stream":     "GET /api/stream/{user_id}/{job_id}/{chapter_file}",
			"health":     "GET /health",
			"metrics":    "GET /metrics",
		},
	})
}

func (s *apiServer) countStream(status string) {
	if s.daemon.metrics != nil {
		s.daemon.metrics.StreamRequests.WithLabelValues(status).Inc()
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
