package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeTTS()
	c.normalizePipeline()
	c.normalizeScanner()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("BOOKCAST_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	return nil
}

// normalizeStorage applies the deployment environment contract used by the
// hosted variants of this service (Cloudflare R2 credentials via R2_* vars).
func (c *Config) normalizeStorage() {
	if value, ok := os.LookupEnv("R2_ENDPOINT_URL"); ok && strings.TrimSpace(value) != "" {
		c.Storage.Endpoint = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("R2_ACCESS_KEY_ID"); ok && strings.TrimSpace(value) != "" {
		c.Storage.AccessKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("R2_SECRET_ACCESS_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Storage.SecretKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("R2_BUCKET_NAME"); ok && strings.TrimSpace(value) != "" {
		c.Storage.Bucket = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("PUBLIC_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Storage.PublicBaseURL = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Storage.Region) == "" {
		c.Storage.Region = defaultRegion
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
}

func (c *Config) normalizeTTS() {
	if value, ok := os.LookupEnv("TTS_SERVICE_URL"); ok && strings.TrimSpace(value) != "" {
		c.TTS.ServiceURL = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("TTS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.TTS.APIKey = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.TTS.DefaultVoice) == "" {
		c.TTS.DefaultVoice = defaultVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxConcurrentJobs <= 0 {
		c.Pipeline.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Pipeline.MinChapterChars <= 0 {
		c.Pipeline.MinChapterChars = defaultMinChapterChars
	}
	if c.Pipeline.MaxChapterChars <= 0 {
		c.Pipeline.MaxChapterChars = defaultMaxChapterChars
	}
}

func (c *Config) normalizeScanner() {
	if c.Scanner.IntervalSeconds <= 0 {
		c.Scanner.IntervalSeconds = defaultScanInterval
	}
	if c.Scanner.ErrorBackoffSeconds <= 0 {
		c.Scanner.ErrorBackoffSeconds = defaultScanErrorBackoff
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
