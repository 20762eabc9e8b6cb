package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookcast/internal/config"
	"bookcast/internal/logging"
)

// Chain tries synthesis backends in order, resolving the voice hint first.
// The primary keyed backend is tried before the keyless fallback, matching
// the Azure-then-Edge arrangement the hosted deployment used.
type Chain struct {
	engines      []Synthesizer
	defaultVoice string
	logger       *slog.Logger
}

// NewChain builds the synthesis chain described by cfg. A config with no
// backend URLs yields a chain whose calls fail with ErrUnavailable.
func NewChain(cfg *config.Config, logger *slog.Logger) *Chain {
	timeout := time.Duration(cfg.TTS.TimeoutSeconds) * time.Second

	var engines []Synthesizer
	if strings.TrimSpace(cfg.TTS.ServiceURL) != "" {
		engines = append(engines, NewHTTPClient("primary", cfg.TTS.ServiceURL, cfg.TTS.APIKey, timeout))
	}
	if strings.TrimSpace(cfg.TTS.FallbackURL) != "" {
		engines = append(engines, NewHTTPClient("fallback", cfg.TTS.FallbackURL, "", timeout))
	}

	return &Chain{
		engines:      engines,
		defaultVoice: cfg.TTS.DefaultVoice,
		logger:       logging.NewComponentLogger(logger, "tts"),
	}
}

// NewChainFromEngines wires an explicit engine list. Used by tests.
func NewChainFromEngines(defaultVoice string, logger *slog.Logger, engines ...Synthesizer) *Chain {
	return &Chain{
		engines:      engines,
		defaultVoice: defaultVoice,
		logger:       logging.NewComponentLogger(logger, "tts"),
	}
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// Synthesize resolves the voice and walks the engine list until one
// succeeds. All engine errors are joined when every backend fails.
func (c *Chain) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if len(c.engines) == 0 {
		return nil, ErrUnavailable
	}

	if req.Voice == "" {
		req.Voice = PickVoice(req.Text, c.defaultVoice)
	}

	var failures []error
	for _, engine := range c.engines {
		audio, err := engine.Synthesize(ctx, req)
		if err == nil {
			return audio, nil
		}
		c.logger.Warn("synthesis backend failed",
			logging.String(logging.FieldBackend, engine.Name()),
			logging.String(logging.FieldVoice, req.Voice),
			logging.Error(err))
		failures = append(failures, fmt.Errorf("%s: %w", engine.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(failures...)
}
