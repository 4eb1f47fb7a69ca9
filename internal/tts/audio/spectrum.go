package audio

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
)

// Analyser geometry. The visualizer renders one bar per bin.
const (
	FFTSize  = 64
	BinCount = FFTSize / 2
)

const (
	smoothingTimeConstant = 0.8
	minDecibels           = -100.0
	maxDecibels           = -30.0
	byteMax               = 255.0
)

// Spectrum is one frequency-magnitude snapshot, each bin in 0..255.
type Spectrum [BinCount]uint8

// Analyser keeps the most recent FFTSize samples and turns them into byte
// frequency snapshots with temporal smoothing and decibel scaling.
type Analyser struct {
	mu       sync.Mutex
	plan     *algofft.Plan[complex128]
	window   []float64
	ring     [FFTSize]float32
	input    []complex128
	output   []complex128
	smoothed [BinCount]float64
	next     int
}

// NewAnalyser returns an analyser with an all-zero history.
func NewAnalyser() (*Analyser, error) {
	plan, err := algofft.NewPlan64(FFTSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create FFT plan: %w", err)
	}

	return &Analyser{
		plan:   plan,
		window: window.Generate(window.TypeBlackman, FFTSize, window.WithPeriodic()),
		input:  make([]complex128, FFTSize),
		output: make([]complex128, FFTSize),
	}, nil
}

// Write appends samples to the rolling window.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, sample := range samples {
		a.ring[a.next] = sample
		a.next = (a.next + 1) % FFTSize
	}
}

// Snapshot computes the current spectrum and advances the smoothing state.
func (a *Analyser) Snapshot() Spectrum {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out Spectrum

	for n := range FFTSize {
		sample := float64(a.ring[(a.next+n)%FFTSize]) * a.window[n]
		a.input[n] = complex(sample, 0)
	}

	err := a.plan.Forward(a.output, a.input)
	if err != nil {
		return out
	}

	magnitudes := spectrum.Magnitude(a.output[:BinCount])

	for k, magnitude := range magnitudes {
		magnitude /= FFTSize
		a.smoothed[k] = smoothingTimeConstant*a.smoothed[k] + (1-smoothingTimeConstant)*magnitude
		out[k] = toByte(a.smoothed[k])
	}

	return out
}

func toByte(magnitude float64) uint8 {
	if magnitude <= 0 {
		return 0
	}

	decibels := 20 * math.Log10(magnitude)
	scaled := byteMax / (maxDecibels - minDecibels) * (decibels - minDecibels)

	switch {
	case scaled <= 0:
		return 0
	case scaled >= byteMax:
		return byteMax
	default:
		return uint8(scaled)
	}
}
