package tts

import (
	"context"
	"sync"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/tts/audio"
)

// Mock implements core.Synthesizer for tests.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns 100 ms of silence.
	SynthesizeFunc func(ctx context.Context, req core.Request) (string, error)

	calls []core.Request
	mu    sync.Mutex
}

// NewMock creates a mock that returns silence.
func NewMock() *Mock {
	return &Mock{}
}

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, req core.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}

	return SilentResult(audio.SynthesisSampleRate / 10), nil
}

// Calls returns the recorded requests.
func (m *Mock) Calls() []core.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]core.Request(nil), m.calls...)
}

// SilentResult returns a base64 result holding samples frames of silence.
func SilentResult(samples int) string {
	return audio.EncodeBase64(make([]byte, samples*2))
}
