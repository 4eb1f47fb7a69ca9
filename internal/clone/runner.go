package clone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/book-expert/logger"
)

// DefaultPollInterval matches the cadence of the simulated training progress.
const DefaultPollInterval = 150 * time.Millisecond

// Callbacks receive job updates from the runner goroutine.
type Callbacks struct {
	// OnProgress is called after every successful poll.
	OnProgress func(Status)
	// OnDone is called once when the job is ready or has failed. It is not
	// called when the job is cancelled.
	OnDone func(Status, error)
}

// Runner submits samples to a trainer and polls them to completion.
type Runner struct {
	trainer  Trainer
	log      *logger.Logger
	interval time.Duration
}

// NewRunner creates a runner polling trainer every interval.
func NewRunner(trainer Trainer, interval time.Duration, log *logger.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Runner{trainer: trainer, interval: interval, log: log}
}

// Job is a running training job.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	id     JobID
	once   sync.Once
}

// ID returns the trainer job id.
func (j *Job) ID() JobID {
	return j.id
}

// Cancel stops polling. It does not wait for the poller to exit.
func (j *Job) Cancel() {
	j.once.Do(j.cancel)
}

// Done is closed when the poller has exited.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Start submits sample and polls the job until it is ready, failed or cancelled.
// Cancelling ctx cancels the job.
func (r *Runner) Start(ctx context.Context, sample []byte, callbacks Callbacks) (*Job, error) {
	id, err := r.trainer.Submit(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("failed to submit training job: %w", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	job := &Job{id: id, cancel: cancel, done: make(chan struct{})}

	if r.log != nil {
		r.log.Info("Training job %s submitted with %d byte sample", id, len(sample))
	}

	go r.poll(pollCtx, job, callbacks)

	return job, nil
}

func (r *Runner) poll(ctx context.Context, job *Job, callbacks Callbacks) {
	defer close(job.done)
	defer job.Cancel()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := r.trainer.Progress(ctx, job.id)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			r.finish(callbacks, status, fmt.Errorf("failed to poll training job %s: %w", job.id, err))

			return
		}

		if callbacks.OnProgress != nil {
			callbacks.OnProgress(status)
		}

		switch status.State {
		case JobReady:
			r.finish(callbacks, status, nil)

			return
		case JobFailed:
			r.finish(callbacks, status, fmt.Errorf("%w: %s", ErrTrainingFailed, status.Message))

			return
		case JobPending, JobProcessing:
		}
	}
}

func (r *Runner) finish(callbacks Callbacks, status Status, err error) {
	if r.log != nil {
		if err != nil {
			r.log.Error("Training job ended: %v", err)
		} else {
			r.log.Info("Training job ready: voice %s", status.VoiceID)
		}
	}

	if callbacks.OnDone != nil {
		callbacks.OnDone(status, err)
	}
}
