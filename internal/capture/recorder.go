package capture

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/book-expert/logger"
	goaudio "github.com/go-audio/audio"

	"github.com/book-expert/voice-studio/internal/tts/audio"
	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

// Recording defaults.
const (
	DefaultSampleRate    = 24000
	DefaultFrameSize     = 480
	DefaultTickInterval  = time.Second
	DefaultMaxTicks      = 10
	DefaultFrameInterval = time.Second / 60
)

// Config tunes a recorder. Zero fields take the defaults.
type Config struct {
	SampleRate    int
	FrameSize     int
	MaxTicks      int
	TickInterval  time.Duration
	FrameInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}

	if c.MaxTicks <= 0 {
		c.MaxTicks = DefaultMaxTicks
	}

	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}

	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}

	return c
}

// Sample is a finished recording.
type Sample struct {
	// Data is a WAV file holding mono PCM16.
	Data     []byte
	PCMBytes int
	Duration time.Duration
}

// Recorder hands out capture sessions over a single device.
type Recorder struct {
	device Device
	active *Session
	log    *logger.Logger
	cfg    Config
	mu     sync.Mutex

	// opening holds the device while Open waits for permission.
	opening bool
}

// NewRecorder creates a recorder for device.
func NewRecorder(device Device, cfg Config, log *logger.Logger) *Recorder {
	return &Recorder{device: device, cfg: cfg.withDefaults(), log: log}
}

// Active reports whether a session currently holds the device.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active != nil || r.opening
}

// Start opens the device and begins capturing. Cancelling ctx aborts the session.
// The device is reserved before Open, so Active reports true during a permission prompt.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.active != nil || r.opening {
		r.mu.Unlock()

		return nil, ErrCaptureActive
	}

	r.opening = true
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.mu.Lock()
		r.opening = false
		r.mu.Unlock()

		if !errors.Is(err, ErrMicrophoneUnavailable) {
			err = fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
		}

		return nil, err
	}

	analyser, err := audio.NewAnalyser()
	if err != nil {
		_ = stream.Close()

		r.mu.Lock()
		r.opening = false
		r.mu.Unlock()

		return nil, fmt.Errorf("failed to start spectrum analyser: %w", err)
	}

	captureCtx, cancel := context.WithCancel(context.Background())

	session := &Session{
		recorder:    r,
		stream:      stream,
		analyser:    analyser,
		cfg:         r.cfg,
		cancel:      cancel,
		stopReq:     make(chan struct{}),
		captured:    make(chan struct{}),
		done:        make(chan struct{}),
		recorderLog: r.log,
	}

	r.mu.Lock()
	r.opening = false
	r.active = session
	r.mu.Unlock()

	go session.capture(captureCtx)
	go session.supervise(ctx)

	if r.log != nil {
		r.log.Info("Recording started at %d Hz", r.cfg.SampleRate)
	}

	return session, nil
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == s {
		r.active = nil
	}
}

// Session is one recording. It ends when stopped, when the tick limit is
// reached, when the device fails or when its context is cancelled.
type Session struct {
	stream      Stream
	captureErr  error
	closeErr    error
	stopErr     error
	recorder    *Recorder
	analyser    *audio.Analyser
	recorderLog *logger.Logger
	sample      *Sample
	cancel      context.CancelFunc
	stopReq     chan struct{}
	captured    chan struct{}
	done        chan struct{}
	pcm         []byte
	cfg         Config
	mu          sync.Mutex
	ticks       atomic.Int32
	stopOnce    sync.Once
	spectrumUse atomic.Bool
}

// Stop ends the recording and returns the sample. Later calls return the same result.
func (s *Session) Stop() (*Sample, error) {
	s.stopOnce.Do(func() { close(s.stopReq) })
	<-s.done

	return s.sample, s.stopErr
}

// Done is closed once the session has ended and released the device.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Elapsed returns the number of ticks seen so far.
func (s *Session) Elapsed() int {
	return int(s.ticks.Load())
}

// Spectrum yields one analyser snapshot per animation frame until the session
// ends. Only the first call yields frames.
func (s *Session) Spectrum() iter.Seq[audio.Spectrum] {
	if !s.spectrumUse.CompareAndSwap(false, true) {
		return func(func(audio.Spectrum) bool) {}
	}

	return func(yield func(audio.Spectrum) bool) {
		ticker := time.NewTicker(s.cfg.FrameInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if !yield(s.analyser.Snapshot()) {
					return
				}
			}
		}
	}
}

// capture owns the stream: it is the only goroutine that reads from it and it
// closes the stream once no read is in flight.
func (s *Session) capture(ctx context.Context) {
	defer close(s.captured)
	defer func() { s.closeErr = s.stream.Close() }()

	frame := make([]float32, s.cfg.FrameSize)
	format := &goaudio.Format{SampleRate: s.cfg.SampleRate, NumChannels: 1}

	for ctx.Err() == nil {
		n, err := s.stream.Read(frame)
		if n > 0 && ctx.Err() == nil {
			pcm := audio.EncodePCM(&goaudio.Float32Buffer{Format: format, Data: frame[:n], SourceBitDepth: audio.BitDepth})

			s.mu.Lock()
			s.pcm = append(s.pcm, pcm...)
			s.mu.Unlock()

			s.analyser.Write(frame[:n])
		}

		if err != nil {
			if ctx.Err() == nil {
				s.captureErr = err
			}

			return
		}
	}
}

func (s *Session) supervise(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopReq:
			s.finish(nil)

			return
		case <-ctx.Done():
			s.finish(fmt.Errorf("recording aborted: %w", ctx.Err()))

			return
		case <-s.captured:
			s.finish(fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, s.captureErr))

			return
		case <-ticker.C:
			if int(s.ticks.Add(1)) >= s.cfg.MaxTicks {
				s.finish(nil)

				return
			}
		}
	}
}

func (s *Session) finish(cause error) {
	s.cancel()
	<-s.captured

	closeErr := s.closeErr

	s.mu.Lock()
	pcm := s.pcm
	s.pcm = nil
	s.mu.Unlock()

	s.sample = &Sample{
		Data:     audio.EncodeWAV(pcm, s.cfg.SampleRate),
		PCMBytes: len(pcm),
		Duration: audio.Duration(len(pcm), s.cfg.SampleRate),
	}
	s.stopErr = cause

	if s.recorderLog != nil {
		if closeErr != nil {
			s.recorderLog.Warn("Failed to close capture stream: %v", closeErr)
		}

		s.recorderLog.Info(
			"Recording finished after %d ticks: %s of audio (%d PCM bytes)",
			s.Elapsed(),
			ttsutils.FormatDuration(s.sample.Duration),
			len(pcm),
		)
	}

	s.recorder.release(s)
	close(s.done)
}
