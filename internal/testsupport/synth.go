package testsupport

import (
	"context"
	"sync"

	"bookcast/internal/tts"
)

// StubSynthesizer returns canned audio and can be told to fail specific
// calls. Calls are counted per invocation order, starting at 1.
type StubSynthesizer struct {
	mu       sync.Mutex
	calls    int
	Audio    []byte
	FailCall map[int]error
}

// NewStubSynthesizer returns a stub that answers every call with audio.
func NewStubSynthesizer(audio []byte) *StubSynthesizer {
	return &StubSynthesizer{Audio: audio, FailCall: make(map[int]error)}
}

func (s *StubSynthesizer) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err, ok := s.FailCall[s.calls]; ok {
		return nil, err
	}
	return s.Audio, nil
}

func (s *StubSynthesizer) Name() string { return "stub" }

// Calls reports how many synthesis requests the stub has served.
func (s *StubSynthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
