package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookcast/internal/config"
	"bookcast/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("pipeline started", logging.String(logging.FieldComponent, "daemon"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "bookcast.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "pipeline started") {
		t.Fatalf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), `"component":"daemon"`) {
		t.Fatalf("log file missing component attr: %s", data)
	}
}

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewConsoleHandler(&buf, slog.LevelDebug))
	logger = logging.NewComponentLogger(logger, "scanner")
	logger.Info("inbox scan complete", logging.Int("found", 3))

	out := buf.String()
	if !strings.Contains(out, "scanner: inbox scan complete") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "found=3") {
		t.Fatalf("expected attribute rendering, got %q", out)
	}
}

func TestWithContextAttachesJobFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(logging.NewConsoleHandler(&buf, slog.LevelDebug))

	ctx := logging.WithJobID(context.Background(), "job-123")
	ctx = logging.WithOwner(ctx, "alice")

	logging.WithContext(ctx, base).Info("chapter uploaded")

	out := buf.String()
	if !strings.Contains(out, "job_id=job-123") {
		t.Fatalf("expected job_id attr, got %q", out)
	}
	if !strings.Contains(out, "owner=alice") {
		t.Fatalf("expected owner attr, got %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
}
