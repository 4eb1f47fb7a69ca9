//go:build portaudio

package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice captures from the default input device.
type PortAudioDevice struct {
	SampleRate      int
	FramesPerBuffer int
}

// Open initializes PortAudio and starts a mono input stream.
func (d PortAudioDevice) Open(_ context.Context) (Stream, error) {
	initErr := portaudio.Initialize()
	if initErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, initErr)
	}

	buf := make([]float32, d.FramesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(d.SampleRate), d.FramesPerBuffer, buf)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}

	startErr := stream.Start()
	if startErr != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, startErr)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	buf    []float32
	once   sync.Once
}

func (s *portAudioStream) Read(frame []float32) (int, error) {
	err := s.stream.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read microphone: %w", err)
	}

	return copy(frame, s.buf), nil
}

func (s *portAudioStream) Close() error {
	var closeErr error

	s.once.Do(func() {
		_ = s.stream.Stop()
		closeErr = s.stream.Close()
		_ = portaudio.Terminate()
	})

	return closeErr
}
