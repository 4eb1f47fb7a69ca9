package clone

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultStep is the simulated progress gained per poll.
const DefaultStep = 5

// ErrUnknownJob is returned when polling a job that was never submitted.
var ErrUnknownJob = errors.New("unknown training job")

// ErrTrainingFailed is returned when a job ends in the failed state.
var ErrTrainingFailed = errors.New("voice training failed")

// JobID identifies a training job.
type JobID string

// JobState is the lifecycle of a training job.
type JobState string

// Job states.
const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobReady      JobState = "ready"
	JobFailed     JobState = "failed"
)

// Status is the polled state of a training job.
type Status struct {
	State    JobState `json:"state"`
	VoiceID  string   `json:"voiceId,omitempty"`
	Message  string   `json:"message,omitempty"`
	Progress int      `json:"progress"`
}

// Trainer trains a custom voice from a recorded sample.
type Trainer interface {
	Submit(ctx context.Context, sample []byte) (JobID, error)
	Progress(ctx context.Context, id JobID) (Status, error)
}

// SimulatedTrainer stands in for a training backend. Every Progress call
// counts as one tick and adds Step percent, so no audio is ever analysed.
type SimulatedTrainer struct {
	jobs map[JobID]*Status
	step int
	mu   sync.Mutex
}

// NewSimulatedTrainer creates a trainer that gains step percent per poll.
// A non-positive step selects DefaultStep.
func NewSimulatedTrainer(step int) *SimulatedTrainer {
	if step <= 0 {
		step = DefaultStep
	}

	return &SimulatedTrainer{jobs: make(map[JobID]*Status), step: step}
}

// Submit registers a job for sample.
func (t *SimulatedTrainer) Submit(_ context.Context, sample []byte) (JobID, error) {
	if len(sample) < MinSampleBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrInsufficientSample, len(sample))
	}

	id := JobID(uuid.New().String())

	t.mu.Lock()
	t.jobs[id] = &Status{State: JobPending}
	t.mu.Unlock()

	return id, nil
}

// Progress advances the job by one step and returns its status.
func (t *SimulatedTrainer) Progress(_ context.Context, id JobID) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	if job.State == JobReady {
		return *job, nil
	}

	job.Progress = min(job.Progress+t.step, MaxProgress)
	job.State = JobProcessing

	if job.Progress == MaxProgress {
		job.State = JobReady
		job.VoiceID = "custom-" + string(id)
	}

	return *job, nil
}
