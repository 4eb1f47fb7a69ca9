package playback

import (
	"context"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
)

// ClockSink plays nothing audible. It only keeps time, so a handle finishes
// after the buffer duration divided by the rate. Headless services and tests use it.
type ClockSink struct {
	started []time.Duration
	mu      sync.Mutex
}

// NewClockSink creates a silent sink.
func NewClockSink() *ClockSink {
	return &ClockSink{}
}

// Play schedules the end of playback.
func (s *ClockSink) Play(_ context.Context, buf *goaudio.Float32Buffer, rate float64) (Handle, error) {
	validateErr := validate(buf, rate)
	if validateErr != nil {
		return nil, validateErr
	}

	length := time.Duration(float64(BufferDuration(buf)) / rate)

	s.mu.Lock()
	s.started = append(s.started, length)
	s.mu.Unlock()

	handle := &clockHandle{done: make(chan struct{})}
	handle.timer = time.AfterFunc(length, handle.finish)

	return handle, nil
}

// Started returns the scheduled length of every playback started so far.
func (s *ClockSink) Started() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.started...)
}

// BufferDuration returns the natural length of buf.
func BufferDuration(buf *goaudio.Float32Buffer) time.Duration {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return 0
	}

	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels

	return time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate)
}

type clockHandle struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

func (h *clockHandle) Stop() {
	h.timer.Stop()
	h.finish()
}

func (h *clockHandle) Done() <-chan struct{} {
	return h.done
}

func (h *clockHandle) finish() {
	h.once.Do(func() { close(h.done) })
}
