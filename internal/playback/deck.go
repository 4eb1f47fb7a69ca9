// Package playback keeps at most one audio source audible at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/logger"
	goaudio "github.com/go-audio/audio"
)

// Playback rate bounds accepted by every sink.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// Errors returned by the deck and its sinks.
var (
	ErrInvalidRate = errors.New("playback rate out of range")
	ErrEmptyBuffer = errors.New("nothing to play")
)

// Handle controls one started playback.
type Handle interface {
	// Stop halts the playback. It is safe to call more than once.
	Stop()
	// Done is closed when playback ends, either naturally or through Stop.
	Done() <-chan struct{}
}

// Sink renders decoded audio. The context bounds only the start of playback.
type Sink interface {
	Play(ctx context.Context, buf *goaudio.Float32Buffer, rate float64) (Handle, error)
}

// Deck owns the single audible playback of the process.
type Deck struct {
	sink    Sink
	current Handle
	log     *logger.Logger
	mu      sync.Mutex
}

// NewDeck creates a deck rendering through sink.
func NewDeck(sink Sink, log *logger.Logger) *Deck {
	return &Deck{sink: sink, log: log}
}

// Play stops whatever is audible and starts buf at rate.
func (d *Deck) Play(ctx context.Context, buf *goaudio.Float32Buffer, rate float64) (Handle, error) {
	validateErr := validate(buf, rate)
	if validateErr != nil {
		return nil, validateErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.current.Stop()
		d.current = nil
	}

	handle, err := d.sink.Play(ctx, buf, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	d.current = handle

	if d.log != nil {
		d.log.Info("Playback started: %d samples at rate %.2f", len(buf.Data), rate)
	}

	return handle, nil
}

// Stop halts the current playback, if any.
func (d *Deck) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return
	}

	d.current.Stop()
	d.current = nil
}

// Active reports whether a playback is still audible.
func (d *Deck) Active() bool {
	d.mu.Lock()
	handle := d.current
	d.mu.Unlock()

	if handle == nil {
		return false
	}

	select {
	case <-handle.Done():
		return false
	default:
		return true
	}
}

// Wait blocks until the current playback ends or ctx is done.
func (d *Deck) Wait(ctx context.Context) error {
	d.mu.Lock()
	handle := d.current
	d.mu.Unlock()

	if handle == nil {
		return nil
	}

	select {
	case <-handle.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for playback: %w", ctx.Err())
	}
}

func validate(buf *goaudio.Float32Buffer, rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("%w: %.2f", ErrInvalidRate, rate)
	}

	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return ErrEmptyBuffer
	}

	return nil
}
