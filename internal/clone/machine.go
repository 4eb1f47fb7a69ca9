// Package clone models the voice cloning flow: record a sample, review it,
// submit it for training and end up with a ready custom voice.
package clone

import (
	"errors"
	"fmt"
	"sync"
)

// MinSampleBytes is the smallest recording accepted for cloning.
const MinSampleBytes = 1000

// MaxProgress marks a finished training job.
const MaxProgress = 100

// Errors returned by the state machine.
var (
	ErrInvalidTransition  = errors.New("invalid clone state transition")
	ErrInsufficientSample = errors.New("recorded sample is too short")
)

// State is a step of the cloning flow.
type State int

// Clone states.
const (
	StateIdle State = iota
	StateRecording
	StateReviewing
	StateCloning
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateReviewing:
		return "reviewing"
	case StateCloning:
		return "cloning"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a copy of the machine state.
type Snapshot struct {
	Err        error
	State      State
	Progress   int
	SampleSize int
}

// Machine is the clone state machine. It is safe for concurrent use.
type Machine struct {
	err      error
	sample   []byte
	state    State
	progress int
	mu       sync.Mutex
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{}
}

// Start begins a recording.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return m.invalid("start recording")
	}

	m.state = StateRecording
	m.err = nil

	return nil
}

// Stop ends the recording and holds sample for review.
func (m *Machine) Stop(sample []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRecording {
		return m.invalid("stop recording")
	}

	m.state = StateReviewing
	m.sample = sample

	return nil
}

// Discard drops the reviewed sample and records again.
func (m *Machine) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReviewing {
		return m.invalid("discard sample")
	}

	m.state = StateRecording
	m.sample = nil
	m.err = nil

	return nil
}

// Confirm accepts the reviewed sample and starts cloning. A sample shorter than
// MinSampleBytes is rejected and the machine stays in review.
func (m *Machine) Confirm() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReviewing {
		return nil, m.invalid("confirm sample")
	}

	if len(m.sample) < MinSampleBytes {
		m.err = fmt.Errorf("%w: %d bytes, need %d", ErrInsufficientSample, len(m.sample), MinSampleBytes)

		return nil, m.err
	}

	m.state = StateCloning
	m.progress = 0
	m.err = nil

	return m.sample, nil
}

// Advance records training progress. Reaching MaxProgress makes the clone ready.
func (m *Machine) Advance(progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCloning {
		return m.invalid("advance progress")
	}

	m.progress = min(max(progress, m.progress), MaxProgress)
	if m.progress == MaxProgress {
		m.state = StateReady
		m.sample = nil
	}

	return nil
}

// Fail returns a cloning machine to review so the sample can be retried.
func (m *Machine) Fail(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCloning {
		return m.invalid("fail cloning")
	}

	m.state = StateReviewing
	m.progress = 0
	m.err = cause

	return nil
}

// Delete removes the ready clone.
func (m *Machine) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady {
		return m.invalid("delete clone")
	}

	m.reset()

	return nil
}

// Abort abandons a recording or review and returns to idle.
func (m *Machine) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRecording && m.state != StateReviewing {
		return m.invalid("abort")
	}

	m.reset()

	return nil
}

// Sample returns the sample held for review, if any.
func (m *Machine) Sample() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sample
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Snapshot returns a copy of the state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:      m.state,
		Progress:   m.progress,
		SampleSize: len(m.sample),
		Err:        m.err,
	}
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.sample = nil
	m.progress = 0
	m.err = nil
}

func (m *Machine) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, m.state)
}
