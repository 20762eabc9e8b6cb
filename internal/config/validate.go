package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. A missing object store is
// allowed: read endpoints degrade to empty results and submissions fail with
// a clear message instead of the process refusing to start.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.BucketURL) != "" {
		return nil
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		// Unconfigured store: allowed, degraded mode.
		return nil
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return errors.New("storage.access_key and storage.secret_key must be set together")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MinChapterChars >= c.Pipeline.MaxChapterChars {
		return fmt.Errorf("pipeline.min_chapter_chars (%d) must be below pipeline.max_chapter_chars (%d)",
			c.Pipeline.MinChapterChars, c.Pipeline.MaxChapterChars)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
