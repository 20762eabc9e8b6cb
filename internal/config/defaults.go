package config

const (
	defaultLogDir            = "~/.local/share/bookcast/logs"
	defaultAPIBind           = "127.0.0.1:8787"
	defaultRegion            = "auto"
	defaultVoice             = "en-US-AriaNeural"
	defaultTTSTimeoutSeconds = 60
	defaultMaxConcurrentJobs = 2
	defaultMinChapterChars   = 100
	defaultMaxChapterChars   = 10000
	defaultScanInterval      = 30
	defaultScanErrorBackoff  = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Region: defaultRegion,
		},
		TTS: TTS{
			DefaultVoice:   defaultVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Pipeline: Pipeline{
			MaxConcurrentJobs: defaultMaxConcurrentJobs,
			MinChapterChars:   defaultMinChapterChars,
			MaxChapterChars:   defaultMaxChapterChars,
		},
		Scanner: Scanner{
			Enabled:             true,
			IntervalSeconds:     defaultScanInterval,
			ErrorBackoffSeconds: defaultScanErrorBackoff,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
