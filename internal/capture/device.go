// Package capture records microphone samples for voice cloning and feeds a
// live spectrum for the recording visualizer.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Errors returned by devices and the recorder.
var (
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	ErrCaptureActive         = errors.New("a capture session is already active")
	ErrStreamClosed          = errors.New("capture stream closed")
)

// Stream delivers mono float samples from an opened device.
type Stream interface {
	// Read blocks until frame is filled or the stream is closed.
	Read(frame []float32) (int, error)
	Close() error
}

// Device opens a capture stream. Permission or hardware failures are
// reported as ErrMicrophoneUnavailable.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// SignalDevice is a synthetic microphone. It produces Generator(i) for the
// i-th sample, paced in real time at SampleRate.
type SignalDevice struct {
	// Generator returns the sample at index i. Nil yields silence.
	Generator func(i int) float32
	// OpenErr, when set, makes Open fail as if permission was denied.
	OpenErr    error
	SampleRate int
}

// Open returns a paced stream, or ErrMicrophoneUnavailable if OpenErr is set.
func (d *SignalDevice) Open(_ context.Context) (Stream, error) {
	if d.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, d.OpenErr)
	}

	if d.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrMicrophoneUnavailable, d.SampleRate)
	}

	return &signalStream{device: d, closed: make(chan struct{})}, nil
}

// Tone returns a generator for a sine wave of freq Hz at sampleRate.
func Tone(freq float64, amplitude float32, sampleRate int) func(int) float32 {
	return func(i int) float32 {
		return amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
}

type signalStream struct {
	device *SignalDevice
	closed chan struct{}
	index  int
	once   sync.Once
}

func (s *signalStream) Read(frame []float32) (int, error) {
	wait := time.Duration(len(frame)) * time.Second / time.Duration(s.device.SampleRate)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-s.closed:
		return 0, ErrStreamClosed
	case <-timer.C:
	}

	for i := range frame {
		if s.device.Generator == nil {
			frame[i] = 0
		} else {
			frame[i] = s.device.Generator(s.index)
		}

		s.index++
	}

	return len(frame), nil
}

func (s *signalStream) Close() error {
	s.once.Do(func() { close(s.closed) })

	return nil
}
