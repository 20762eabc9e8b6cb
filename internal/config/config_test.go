package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bookcast/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "bookcast", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8787" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Storage.Region != "auto" {
		t.Fatalf("unexpected region: %q", cfg.Storage.Region)
	}
	if cfg.StorageConfigured() {
		t.Fatal("expected storage unconfigured by default")
	}
	if cfg.TTS.DefaultVoice != "en-US-AriaNeural" {
		t.Fatalf("unexpected default voice: %q", cfg.TTS.DefaultVoice)
	}
	if cfg.TTS.TimeoutSeconds != 60 {
		t.Fatalf("unexpected tts timeout: %d", cfg.TTS.TimeoutSeconds)
	}
	if cfg.Pipeline.MaxConcurrentJobs != 2 {
		t.Fatalf("unexpected job limit: %d", cfg.Pipeline.MaxConcurrentJobs)
	}
	if cfg.Pipeline.MinChapterChars != 100 || cfg.Pipeline.MaxChapterChars != 10000 {
		t.Fatalf("unexpected chapter bounds: %d/%d", cfg.Pipeline.MinChapterChars, cfg.Pipeline.MaxChapterChars)
	}
	if !cfg.Scanner.Enabled {
		t.Fatal("expected scanner enabled by default")
	}
	if cfg.Scanner.IntervalSeconds != 30 || cfg.Scanner.ErrorBackoffSeconds != 60 {
		t.Fatalf("unexpected scanner cadence: %d/%d", cfg.Scanner.IntervalSeconds, cfg.Scanner.ErrorBackoffSeconds)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("expected log dir to exist: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be directory", cfg.Paths.LogDir)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bookcast.toml")

	type payload struct {
		Storage struct {
			Bucket    string `toml:"bucket"`
			Endpoint  string `toml:"endpoint"`
			AccessKey string `toml:"access_key"`
			SecretKey string `toml:"secret_key"`
		} `toml:"storage"`
		TTS struct {
			ServiceURL     string `toml:"service_url"`
			TimeoutSeconds int    `toml:"timeout_seconds"`
		} `toml:"tts"`
		Pipeline struct {
			MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
		} `toml:"pipeline"`
	}
	custom := payload{}
	custom.Storage.Bucket = "audiobooks"
	custom.Storage.Endpoint = "https://accountid.r2.cloudflarestorage.com"
	custom.Storage.AccessKey = "ak"
	custom.Storage.SecretKey = "sk"
	custom.TTS.ServiceURL = "https://tts.example.com"
	custom.TTS.TimeoutSeconds = 120
	custom.Pipeline.MaxConcurrentJobs = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Storage.Bucket != "audiobooks" {
		t.Fatalf("expected bucket from file, got %q", cfg.Storage.Bucket)
	}
	if !cfg.StorageConfigured() {
		t.Fatal("expected storage configured")
	}
	if cfg.TTS.ServiceURL != "https://tts.example.com" {
		t.Fatalf("unexpected tts url: %q", cfg.TTS.ServiceURL)
	}
	if cfg.TTS.TimeoutSeconds != 120 {
		t.Fatalf("expected tts timeout 120, got %d", cfg.TTS.TimeoutSeconds)
	}
	if cfg.Pipeline.MaxConcurrentJobs != 4 {
		t.Fatalf("expected job limit 4, got %d", cfg.Pipeline.MaxConcurrentJobs)
	}
	// Values the file omits keep defaults.
	if cfg.Pipeline.MinChapterChars != 100 {
		t.Fatalf("expected default min chapter chars, got %d", cfg.Pipeline.MinChapterChars)
	}
}

func TestEnvVarsOverrideConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bookcast.toml")

	type payload struct {
		Storage struct {
			Bucket        string `toml:"bucket"`
			Endpoint      string `toml:"endpoint"`
			AccessKey     string `toml:"access_key"`
			SecretKey     string `toml:"secret_key"`
			PublicBaseURL string `toml:"public_base_url"`
		} `toml:"storage"`
		TTS struct {
			ServiceURL string `toml:"service_url"`
			APIKey     string `toml:"api_key"`
		} `toml:"tts"`
	}
	custom := payload{}
	custom.Storage.Bucket = "file-bucket"
	custom.Storage.Endpoint = "https://file.example.com"
	custom.Storage.AccessKey = "file-ak"
	custom.Storage.SecretKey = "file-sk"
	custom.Storage.PublicBaseURL = "https://file-public.example.com/"
	custom.TTS.ServiceURL = "https://file-tts.example.com"
	custom.TTS.APIKey = "file-key"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("R2_BUCKET_NAME", "env-bucket")
	t.Setenv("R2_ENDPOINT_URL", "https://env.example.com")
	t.Setenv("R2_ACCESS_KEY_ID", "env-ak")
	t.Setenv("R2_SECRET_ACCESS_KEY", "env-sk")
	t.Setenv("PUBLIC_BASE_URL", "https://env-public.example.com/")
	t.Setenv("TTS_SERVICE_URL", "https://env-tts.example.com")
	t.Setenv("TTS_API_KEY", "env-key")
	t.Setenv("BOOKCAST_API_BIND", "0.0.0.0:9000")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Storage.Bucket != "env-bucket" {
		t.Errorf("expected bucket from env, got %q", cfg.Storage.Bucket)
	}
	if cfg.Storage.Endpoint != "https://env.example.com" {
		t.Errorf("expected endpoint from env, got %q", cfg.Storage.Endpoint)
	}
	if cfg.Storage.AccessKey != "env-ak" || cfg.Storage.SecretKey != "env-sk" {
		t.Errorf("expected credentials from env, got %q/%q", cfg.Storage.AccessKey, cfg.Storage.SecretKey)
	}
	if cfg.Storage.PublicBaseURL != "https://env-public.example.com" {
		t.Errorf("expected trimmed public base from env, got %q", cfg.Storage.PublicBaseURL)
	}
	if cfg.TTS.ServiceURL != "https://env-tts.example.com" {
		t.Errorf("expected tts url from env, got %q", cfg.TTS.ServiceURL)
	}
	if cfg.TTS.APIKey != "env-key" {
		t.Errorf("expected tts key from env, got %q", cfg.TTS.APIKey)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Errorf("expected api bind from env, got %q", cfg.Paths.APIBind)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "max_concurrent_jobs") {
		t.Fatalf("sample config missing pipeline section: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.TTS.DefaultVoice != "en-US-AriaNeural" {
		t.Fatalf("unexpected sample voice: %q", cfg.TTS.DefaultVoice)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty api bind")
	}

	cfg = config.Default()
	cfg.Storage.Bucket = "audiobooks"
	cfg.Storage.AccessKey = "ak"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for access key without secret key")
	}

	cfg = config.Default()
	cfg.Pipeline.MinChapterChars = 500
	cfg.Pipeline.MaxChapterChars = 400
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when min chapter chars exceeds max")
	}

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log level")
	}
}
