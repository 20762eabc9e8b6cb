package testsupport

import (
	"path/filepath"
	"testing"

	"bookcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Storage.BucketURL = "mem://"
	cfg.Scanner.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPipelineLimits overrides the chapter text bounds on the test config.
func WithPipelineLimits(minChars, maxChars int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.MinChapterChars = minChars
		cfg.Pipeline.MaxChapterChars = maxChars
	}
}

// WithPublicBaseURL sets the public link base on the test config.
func WithPublicBaseURL(base string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.PublicBaseURL = base
	}
}
