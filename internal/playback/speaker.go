//go:build speaker

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	speakerLatency  = 100 * time.Millisecond
	resampleQuality = 4
)

// SpeakerSink plays through the default output device.
type SpeakerSink struct {
	rate beep.SampleRate
}

// NewSpeakerSink initializes the output device at sampleRate.
func NewSpeakerSink(sampleRate int) (*SpeakerSink, error) {
	rate := beep.SampleRate(sampleRate)

	err := speaker.Init(rate, rate.N(speakerLatency))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	return &SpeakerSink{rate: rate}, nil
}

// Play mixes buf into the speaker. A rate other than 1 speeds the audio up or slows it down.
func (s *SpeakerSink) Play(_ context.Context, buf *goaudio.Float32Buffer, rate float64) (Handle, error) {
	validateErr := validate(buf, rate)
	if validateErr != nil {
		return nil, validateErr
	}

	handle := &speakerHandle{done: make(chan struct{})}

	source := &bufferStreamer{data: buf.Data, channels: max(buf.Format.NumChannels, 1)}
	ratio := rate * float64(buf.Format.SampleRate) / float64(s.rate)
	resampled := beep.ResampleRatio(resampleQuality, ratio, source)
	handle.ctrl = &beep.Ctrl{Streamer: beep.Seq(resampled, beep.Callback(handle.finish))}

	speaker.Play(handle.ctrl)

	return handle, nil
}

type speakerHandle struct {
	ctrl *beep.Ctrl
	done chan struct{}
	once sync.Once
}

func (h *speakerHandle) Stop() {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()

	h.finish()
}

func (h *speakerHandle) Done() <-chan struct{} {
	return h.done
}

func (h *speakerHandle) finish() {
	h.once.Do(func() { close(h.done) })
}

// bufferStreamer adapts interleaved float32 samples to beep's stereo frames.
type bufferStreamer struct {
	data     []float32
	channels int
	pos      int
}

func (b *bufferStreamer) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) && b.pos+b.channels <= len(b.data) {
		left := float64(b.data[b.pos])
		right := left

		if b.channels > 1 {
			right = float64(b.data[b.pos+1])
		}

		samples[n] = [2]float64{left, right}
		b.pos += b.channels
		n++
	}

	return n, n > 0
}

func (b *bufferStreamer) Err() error {
	return nil
}
