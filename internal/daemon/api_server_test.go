package daemon_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"bookcast/internal/config"
	"bookcast/internal/daemon"
	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/metrics"
	"bookcast/internal/orchestrator"
	"bookcast/internal/storage"
	"bookcast/internal/testsupport"
)

type testDaemon struct {
	daemon *daemon.Daemon
	orch   *orchestrator.Orchestrator
	store  *storage.Store
	cfg    *config.Config
	base   string
}

func newTestDaemon(t *testing.T, store *storage.Store) *testDaemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	m := metrics.New()
	registry := jobs.NewRegistry()
	synth := testsupport.NewStubSynthesizer([]byte("mp3-bytes"))

	orch := orchestrator.New(cfg, registry, store, synth, m, logger)
	d, err := daemon.New(cfg, store, orch, m, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	return &testDaemon{
		daemon: d,
		orch:   orch,
		store:  store,
		cfg:    cfg,
		base:   "http://" + d.APIAddr(),
	}
}

func seedManifest(t *testing.T, store *storage.Store, owner, jobID, title string, chapters int) {
	t.Helper()
	manifest := &storage.Manifest{
		JobID:     jobID,
		Owner:     owner,
		BookTitle: title,
		CreatedAt: time.Now().UTC(),
		Status:    "completed",
	}
	for i := 1; i <= chapters; i++ {
		manifest.Chapters = append(manifest.Chapters, storage.ChapterArtifact{
			Chapter:  i,
			Title:    "Chapter",
			Key:      storage.ChapterKey(owner, jobID, i),
			Duration: 60,
		})
	}
	if err := store.SaveManifest(context.Background(), manifest); err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStreamRangeRequests(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	payload := bytes.Repeat([]byte{0xAB}, 500)
	key := storage.ChapterKey("alice", "job-1", 1)
	if err := store.Put(context.Background(), key, payload, "audio/mpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	streamURL := td.base + "/api/stream/alice/job-1/chapter_1.mp3"

	fetch := func(rangeHeader string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, streamURL, nil)
		if err != nil {
			t.Fatalf("NewRequest failed: %v", err)
		}
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	t.Run("full without range header", func(t *testing.T) {
		resp := fetch("")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
			t.Fatalf("Accept-Ranges = %q", got)
		}
		if got := resp.Header.Get("Content-Type"); got != "audio/mpeg" {
			t.Fatalf("Content-Type = %q", got)
		}
		if got := resp.Header.Get("Cache-Control"); got != "public, max-age=31536000" {
			t.Fatalf("Cache-Control = %q", got)
		}
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 500 {
			t.Fatalf("body length = %d, want 500", len(body))
		}
	})

	t.Run("bounded range", func(t *testing.T) {
		resp := fetch("bytes=0-99")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Range"); got != "bytes 0-99/500" {
			t.Fatalf("Content-Range = %q", got)
		}
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 100 {
			t.Fatalf("body length = %d, want 100", len(body))
		}
	})

	t.Run("open-ended range", func(t *testing.T) {
		resp := fetch("bytes=450-")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Range"); got != "bytes 450-499/500" {
			t.Fatalf("Content-Range = %q", got)
		}
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 50 {
			t.Fatalf("body length = %d, want 50", len(body))
		}
	})

	t.Run("end clamped to object size", func(t *testing.T) {
		resp := fetch("bytes=400-900")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Range"); got != "bytes 400-499/500" {
			t.Fatalf("Content-Range = %q", got)
		}
	})

	t.Run("start past end is unsatisfiable", func(t *testing.T) {
		resp := fetch("bytes=600-")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("status = %d, want 416", resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Range"); got != "bytes */500" {
			t.Fatalf("Content-Range = %q", got)
		}
	})

	t.Run("malformed range falls back to full delivery", func(t *testing.T) {
		resp := fetch("bytes=abc-def")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 500 {
			t.Fatalf("body length = %d, want 500", len(body))
		}
	})

	t.Run("missing object", func(t *testing.T) {
		resp := fetch("")
		resp.Body.Close()
		missing, err := http.Get(td.base + "/api/stream/alice/job-1/chapter_9.mp3")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer missing.Body.Close()
		if missing.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", missing.StatusCode)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		resp, err := http.Get(td.base + "/api/stream/alice/job-1/..%2Fmetadata.json")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestProcessEpubEndToEnd(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	epubData := testsupport.BuildEPUB(t, map[string]string{
		"ch1": testsupport.ChapterText("one"),
		"ch2": testsupport.ChapterText("two"),
	}, []string{"ch1", "ch2"})

	body, _ := json.Marshal(map[string]string{
		"user_id":    "alice",
		"book_title": "Dracula",
		"epub_data":  base64.StdEncoding.EncodeToString(epubData),
	})
	resp, err := http.Post(td.base+"/api/process-epub", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var submitted struct {
		JobID     string `json:"job_id"`
		Status    string `json:"status"`
		StatusURL string `json:"status_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if submitted.JobID == "" || submitted.Status != "processing" {
		t.Fatalf("unexpected submission response: %+v", submitted)
	}
	if submitted.StatusURL != "/api/job-status/"+submitted.JobID {
		t.Fatalf("unexpected status_url: %q", submitted.StatusURL)
	}

	td.orch.Wait()

	var status struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
		Chapters int    `json:"chapters"`
	}
	if code := getJSON(t, td.base+submitted.StatusURL, &status); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if status.Status != "completed" || status.Progress != 100 || status.Chapters != 2 {
		t.Fatalf("unexpected job status: %+v", status)
	}

	manifest, err := store.LoadManifest(context.Background(), "alice", submitted.JobID)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(manifest.Chapters) != 2 {
		t.Fatalf("manifest chapters = %d, want 2", len(manifest.Chapters))
	}
}

func TestProcessEpubValidation(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	post := func(body string) int {
		resp, err := http.Post(td.base+"/api/process-epub", "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode
	}

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing user", `{"book_title":"T","epub_data":"aGk="}`},
		{"missing title", `{"user_id":"alice","epub_data":"aGk="}`},
		{"missing data", `{"user_id":"alice","book_title":"T"}`},
		{"bad base64", `{"user_id":"alice","book_title":"T","epub_data":"%%%"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := post(tc.body); code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
		})
	}
}

func TestProcessEpubWithoutStore(t *testing.T) {
	td := newTestDaemon(t, nil)

	body := `{"user_id":"alice","book_title":"T","epub_data":"aGk="}`
	resp, err := http.Post(td.base+"/api/process-epub", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestJobStatusEndpoint(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	var miss struct {
		Status string `json:"status"`
	}
	if code := getJSON(t, td.base+"/api/job-status/job-9", &miss); code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", code)
	}
	if miss.Status != "not_found" {
		t.Fatalf("unexpected body status: %q", miss.Status)
	}

	seedManifest(t, store, "alice", "job-9", "Dracula", 3)

	var hit struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
		Chapters int    `json:"chapters"`
	}
	if code := getJSON(t, td.base+"/api/job-status/job-9", &hit); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if hit.Status != "completed" || hit.Progress != 100 || hit.Chapters != 3 {
		t.Fatalf("unexpected job status: %+v", hit)
	}
}

func TestAudiobooksEndpoint(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	seedManifest(t, store, "alice", "job-1", "Dracula", 3)
	seedManifest(t, store, "alice", "job-2", "Carmilla", 2)
	seedManifest(t, store, "bob", "job-3", "Frankenstein", 5)

	var catalog struct {
		Audiobooks []struct {
			ID          string `json:"id"`
			DownloadURL string `json:"download_url"`
		} `json:"audiobooks"`
		Total int `json:"total"`
	}
	if code := getJSON(t, td.base+"/api/audiobooks/alice", &catalog); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if catalog.Total != 2 || len(catalog.Audiobooks) != 2 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	var download struct {
		AudiobookID   string `json:"audiobook_id"`
		TotalChapters int    `json:"total_chapters"`
		Chapters      []struct {
			URL string `json:"url"`
		} `json:"chapters"`
	}
	if code := getJSON(t, td.base+"/api/download/job-3", &download); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if download.TotalChapters != 5 {
		t.Fatalf("unexpected chapter count: %d", download.TotalChapters)
	}
	if want := "/api/stream/bob/job-3/chapter_1.mp3"; download.Chapters[0].URL != want {
		t.Fatalf("unexpected url: %q want %q", download.Chapters[0].URL, want)
	}

	if code := getJSON(t, td.base+"/api/download/missing", nil); code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		Storage string `json:"storage"`
	}
	if code := getJSON(t, td.base+"/health", &health); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if health.Status != "healthy" || health.Service != "bookcast" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
	if health.Storage != "connected" {
		t.Fatalf("storage = %q, want connected", health.Storage)
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	second, err := daemon.New(td.cfg, store, orchestrator.New(td.cfg, jobs.NewRegistry(), store,
		testsupport.NewStubSynthesizer(nil), metrics.New(), logging.NewNop()), metrics.New(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second start to fail while lock is held")
	} else if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatusCounts(t *testing.T) {
	store := testsupport.NewStore(t)
	td := newTestDaemon(t, store)

	registry := td.orch.Registry()
	done := registry.Create("alice", "One")
	registry.SetCompleted(done.ID, "completed: 1 chapters")
	failed := registry.Create("alice", "Two")
	registry.SetFailed(failed.ID, "boom")

	status := td.daemon.Status()
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Jobs.Total != 2 || status.Jobs.Completed != 1 || status.Jobs.Failed != 1 {
		t.Fatalf("unexpected job counts: %+v", status.Jobs)
	}
	if status.APIAddr == "" {
		t.Fatal("expected bound API address")
	}
	if status.LockFilePath == "" {
		t.Fatal("expected lock file path")
	}
}
