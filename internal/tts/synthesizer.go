// Package tts converts chapter text into MP3 audio through external speech
// backends. The pipeline depends only on the Synthesizer contract; which
// backend answers, and how it picks a voice, stays internal to this package.
package tts

import (
	"context"
	"errors"
)

// ErrUnavailable reports that no synthesis backend is configured.
var ErrUnavailable = errors.New("speech synthesis not configured")

// Request carries one synthesis call. Voice is a hint; an empty voice lets
// the backend choose based on the text.
type Request struct {
	Text  string
	Voice string
}

// Synthesizer converts text into MP3 bytes. Implementations must honor the
// context and return an error for any failed call; callers treat failures
// as per-chapter, not fatal.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	Name() string
}
