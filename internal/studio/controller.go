// Package studio implements the AI studio controller: text to speech with
// replay and WAV export, plus the record, review and clone flow for a custom voice.
package studio

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-studio/internal/capture"
	"github.com/book-expert/voice-studio/internal/clone"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/playback"
	"github.com/book-expert/voice-studio/internal/tts"
	"github.com/book-expert/voice-studio/internal/tts/audio"
	"github.com/book-expert/voice-studio/internal/tts/text"
	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

// Controller errors. Range errors are shared with the synthesizer.
var (
	ErrEmptyText           = tts.ErrEmptyText
	ErrRateOutOfRange      = tts.ErrRateOutOfRange
	ErrPitchOutOfRange     = tts.ErrPitchOutOfRange
	ErrCustomVoiceNotReady = errors.New("custom voice is not ready")
	ErrGenerationInFlight  = errors.New("a generation is already in progress")
	ErrUnknownVoice        = errors.New("unknown voice")
	ErrNoResult            = errors.New("no generated audio available")
	ErrNoSample            = errors.New("no recorded sample available")
	ErrCredentialsHidden   = errors.New("credential selection is not available")
	ErrClosed              = errors.New("studio is closed")
)

// Options wires a controller. Recorder, Runner and Credentials are optional.
type Options struct {
	Synthesizer core.Synthesizer
	Credentials core.CredentialHost
	Deck        *playback.Deck
	Recorder    *capture.Recorder
	Runner      *clone.Runner
	Log         *logger.Logger
	// Now is used for export timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Download is a WAV export ready to be saved.
type Download struct {
	Filename string
	Data     []byte
}

// Controller owns the studio state. All methods are safe for concurrent use.
type Controller struct {
	synth       core.Synthesizer
	credentials core.CredentialHost
	deck        *playback.Deck
	recorder    *capture.Recorder
	runner      *clone.Runner
	log         *logger.Logger
	now         func() time.Time
	machine     *clone.Machine
	ctx         context.Context
	cancel      context.CancelFunc

	errView        *ErrorView
	session        *capture.Session
	cloneJob       *clone.Job
	replayHandle   playback.Handle
	reviewHandle   playback.Handle
	text           string
	lastResult     string
	recordingError string
	voice          tts.Voice
	speakingRate   float64
	pitchShift     int
	wg             sync.WaitGroup
	mu             sync.Mutex
	loading        bool
	quotaExhausted bool
	hasCustomKey   bool
	closed         bool
}

// New creates a controller with the default voice and settings.
func New(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		synth:        opts.Synthesizer,
		credentials:  opts.Credentials,
		deck:         opts.Deck,
		recorder:     opts.Recorder,
		runner:       opts.Runner,
		log:          opts.Log,
		now:          now,
		machine:      clone.NewMachine(),
		ctx:          ctx,
		cancel:       cancel,
		voice:        tts.DefaultVoice,
		speakingRate: tts.DefaultSpeakingRate,
		pitchShift:   tts.DefaultPitchShift,
	}
}

// SetText replaces the text to synthesize.
func (c *Controller) SetText(value string) {
	c.mu.Lock()
	c.text = value
	c.mu.Unlock()
}

// SelectVoice changes the voice. CUSTOM is only selectable once the clone is ready.
func (c *Controller) SelectVoice(voice tts.Voice) error {
	if !voice.IsKnown() {
		return fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}

	if voice == tts.VoiceCustom && c.machine.State() != clone.StateReady {
		return ErrCustomVoiceNotReady
	}

	c.mu.Lock()
	c.voice = voice
	c.mu.Unlock()

	return nil
}

// SetSpeakingRate sets the playback rate within [0.5, 2.0].
func (c *Controller) SetSpeakingRate(rate float64) error {
	if rate < tts.MinSpeakingRate || rate > tts.MaxSpeakingRate {
		return fmt.Errorf("%w: %.2f", ErrRateOutOfRange, rate)
	}

	c.mu.Lock()
	c.speakingRate = rate
	c.mu.Unlock()

	return nil
}

// SetPitchShift sets the pitch shift within [-20, 20].
func (c *Controller) SetPitchShift(pitch int) error {
	if pitch < tts.MinPitchShift || pitch > tts.MaxPitchShift {
		return fmt.Errorf("%w: %d", ErrPitchOutOfRange, pitch)
	}

	c.mu.Lock()
	c.pitchShift = pitch
	c.mu.Unlock()

	return nil
}

// ResetSettings restores the default rate and pitch.
func (c *Controller) ResetSettings() {
	c.mu.Lock()
	c.speakingRate = tts.DefaultSpeakingRate
	c.pitchShift = tts.DefaultPitchShift
	c.mu.Unlock()
}

// CanGenerate reports whether Generate would start a synthesis right now.
func (c *Controller) CanGenerate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gateLocked() == nil
}

func (c *Controller) gateLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case text.IsBlank(c.text):
		return ErrEmptyText
	case c.voice == tts.VoiceCustom && c.machine.State() != clone.StateReady:
		return ErrCustomVoiceNotReady
	case c.loading:
		return ErrGenerationInFlight
	default:
		return nil
	}
}

// Generate synthesizes the current text. Playback of any previous result is
// stopped first. Only one generation runs at a time; overlapping calls fail
// with ErrGenerationInFlight. Failures are also recorded in the error view.
func (c *Controller) Generate(ctx context.Context) (string, error) {
	c.mu.Lock()

	gateErr := c.gateLocked()
	if gateErr != nil {
		c.mu.Unlock()

		return "", gateErr
	}

	c.loading = true
	c.stopPlaybackLocked()
	c.lastResult = ""
	c.errView = nil
	c.quotaExhausted = false

	req := core.Request{
		Text:         c.text,
		Voice:        string(c.voice),
		SpeakingRate: c.speakingRate,
		PitchShift:   c.pitchShift,
	}
	c.mu.Unlock()

	result, err := c.synth.Synthesize(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false

	if err != nil {
		kind := tts.Classify(err)
		c.errView = errorViewFor(kind)

		switch kind {
		case tts.KindEntityNotFound, tts.KindCredential:
			c.hasCustomKey = false
		case tts.KindQuotaExhausted:
			c.quotaExhausted = true
		case tts.KindUnknown:
		}

		if c.log != nil {
			c.log.Error("Generation failed (%s): %v", kind, err)
		}

		return "", fmt.Errorf("failed to generate speech: %w", err)
	}

	c.lastResult = result

	return result, nil
}

// ToggleReplay replays the last result at the current rate, or stops it if it is playing.
func (c *Controller) ToggleReplay(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replayHandle != nil {
		c.stopPlaybackLocked()

		return nil
	}

	if c.lastResult == "" {
		return ErrNoResult
	}

	buf, err := tts.DecodeResult(c.lastResult)
	if err != nil {
		return err
	}

	c.stopPlaybackLocked()

	handle, err := c.deck.Play(ctx, buf, c.speakingRate)
	if err != nil {
		return fmt.Errorf("failed to replay result: %w", err)
	}

	c.replayHandle = handle
	c.watchPlayback(handle)

	return nil
}

// DownloadWAV exports the last result as a WAV file.
func (c *Controller) DownloadWAV() (Download, error) {
	c.mu.Lock()
	result := c.lastResult
	voice := c.voice
	c.mu.Unlock()

	if result == "" {
		return Download{}, ErrNoResult
	}

	pcm, err := audio.DecodeBase64(result)
	if err != nil {
		return Download{}, fmt.Errorf("failed to export result: %w", err)
	}

	return Download{
		Filename: ttsutils.DownloadFilename(voice.DisplayName(), c.now()),
		Data:     audio.EncodeWAV(pcm, audio.SynthesisSampleRate),
	}, nil
}

// Mount checks in the background whether the user already selected a key.
// It never blocks; without a credential host nothing happens.
func (c *Controller) Mount(ctx context.Context) {
	if c.credentials == nil {
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		selected, err := c.credentials.HasSelectedKey(ctx)
		if err != nil {
			if c.log != nil {
				c.log.Warn("Failed to check selected key: %v", err)
			}

			return
		}

		c.mu.Lock()
		c.hasCustomKey = selected
		c.mu.Unlock()
	}()
}

// OpenCredentialDialog lets the user pick a key. On success the quota flag and
// the current error are cleared.
func (c *Controller) OpenCredentialDialog(ctx context.Context) error {
	if !c.credentialSelectable() {
		return ErrCredentialsHidden
	}

	err := c.credentials.OpenSelectKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to open credential dialog: %w", err)
	}

	c.mu.Lock()
	c.hasCustomKey = true
	c.quotaExhausted = false
	c.errView = nil
	c.mu.Unlock()

	return nil
}

// ForgetCredential drops the user selected key and falls back to the configured one.
func (c *Controller) ForgetCredential() error {
	if !c.credentialSelectable() {
		return ErrCredentialsHidden
	}

	c.credentials.Forget()

	c.mu.Lock()
	c.hasCustomKey = false
	c.mu.Unlock()

	return nil
}

func (c *Controller) credentialSelectable() bool {
	return c.credentials != nil && c.credentials.SelectionSupported()
}

// StartRecording opens the microphone and starts a clone sample recording.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.machine.State() != clone.StateIdle {
		return fmt.Errorf("%w: cannot start recording while %s", clone.ErrInvalidTransition, c.machine.State())
	}

	startErr := c.startSessionLocked()
	if startErr != nil {
		return startErr
	}

	return c.machine.Start()
}

// StopRecording ends the recording and moves to review.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return fmt.Errorf("%w: not recording", clone.ErrInvalidTransition)
	}

	sample, err := session.Stop()
	c.finishSession(session, sample, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.State() != clone.StateReviewing {
		return fmt.Errorf("%w: %s", capture.ErrMicrophoneUnavailable, c.recordingError)
	}

	return nil
}

// DiscardRecording drops the reviewed sample and records a new one.
func (c *Controller) DiscardRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.State() != clone.StateReviewing {
		return fmt.Errorf("%w: nothing to discard", clone.ErrInvalidTransition)
	}

	c.stopReviewLocked()

	startErr := c.startSessionLocked()
	if startErr != nil {
		_ = c.machine.Abort()

		return startErr
	}

	return c.machine.Discard()
}

// ConfirmClone submits the reviewed sample for training. A sample that is too
// short is rejected and the studio stays in review.
func (c *Controller) ConfirmClone() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runner == nil {
		return fmt.Errorf("%w: no trainer configured", clone.ErrInvalidTransition)
	}

	c.stopReviewLocked()

	sample, err := c.machine.Confirm()
	if err != nil {
		if errors.Is(err, clone.ErrInsufficientSample) {
			c.recordingError = msgInsufficientSample
		}

		return err
	}

	c.recordingError = ""

	job, err := c.runner.Start(c.ctx, sample, clone.Callbacks{
		OnProgress: func(status clone.Status) {
			_ = c.machine.Advance(status.Progress)
		},
		OnDone: c.cloneFinished,
	})
	if err != nil {
		_ = c.machine.Fail(err)
		c.recordingError = msgCloneFailed

		return fmt.Errorf("failed to start cloning: %w", err)
	}

	c.cloneJob = job

	return nil
}

func (c *Controller) cloneFinished(status clone.Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cloneJob = nil

	if err != nil {
		if c.machine.Fail(err) == nil {
			c.recordingError = msgCloneFailed
		}

		return
	}

	_ = c.machine.Advance(clone.MaxProgress)

	// The clone may have been deleted between the last progress update and now.
	if c.machine.State() != clone.StateReady {
		if c.log != nil {
			c.log.Info("Custom voice %s finished after it was deleted", status.VoiceID)
		}

		return
	}

	c.voice = tts.VoiceCustom
	c.speakingRate = tts.DefaultSpeakingRate
	c.pitchShift = tts.DefaultPitchShift

	if c.log != nil {
		c.log.Info("Custom voice %s is ready", status.VoiceID)
	}
}

// DeleteClone removes the custom voice and selects the default voice.
func (c *Controller) DeleteClone() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleteErr := c.machine.Delete()
	if deleteErr != nil {
		return deleteErr
	}

	if c.cloneJob != nil {
		c.cloneJob.Cancel()
	}

	c.voice = tts.DefaultVoice

	return nil
}

// ToggleReviewPlayback plays the recorded sample, or stops it if it is playing.
func (c *Controller) ToggleReviewPlayback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reviewHandle != nil {
		c.stopPlaybackLocked()

		return nil
	}

	sample := c.machine.Sample()
	if c.machine.State() != clone.StateReviewing || len(sample) == 0 {
		return ErrNoSample
	}

	info, err := audio.DecodeWAV(sample)
	if err != nil {
		return fmt.Errorf("failed to read recorded sample: %w", err)
	}

	buf, err := audio.DecodePCM(info.PCM, info.SampleRate, info.Channels)
	if err != nil {
		return fmt.Errorf("failed to read recorded sample: %w", err)
	}

	c.stopPlaybackLocked()

	handle, err := c.deck.Play(ctx, buf, tts.DefaultSpeakingRate)
	if err != nil {
		return fmt.Errorf("failed to play recorded sample: %w", err)
	}

	c.reviewHandle = handle
	c.watchPlayback(handle)

	return nil
}

// RecordingSpectrum yields live spectrum frames of the active recording. It is
// empty when nothing is being recorded.
func (c *Controller) RecordingSpectrum() iter.Seq[audio.Spectrum] {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return func(func(audio.Spectrum) bool) {}
	}

	return session.Spectrum()
}

// Close stops playback, recording and cloning and waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return
	}

	c.closed = true
	c.stopPlaybackLocked()

	job := c.cloneJob
	session := c.session
	c.mu.Unlock()

	c.cancel()

	if job != nil {
		job.Cancel()
		<-job.Done()
	}

	if session != nil {
		<-session.Done()
	}

	c.wg.Wait()
}

func (c *Controller) startSessionLocked() error {
	if c.recorder == nil {
		c.recordingError = msgMicrophone

		return capture.ErrMicrophoneUnavailable
	}

	session, err := c.recorder.Start(c.ctx)
	if err != nil {
		if errors.Is(err, capture.ErrMicrophoneUnavailable) {
			c.recordingError = msgMicrophone
		}

		return fmt.Errorf("failed to start recording: %w", err)
	}

	c.session = session
	c.recordingError = ""

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		<-session.Done()

		sample, stopErr := session.Stop()
		c.finishSession(session, sample, stopErr)
	}()

	return nil
}

// finishSession moves the machine to review once per session, whichever of
// the manual stop and the auto stop gets here first.
func (c *Controller) finishSession(session *capture.Session, sample *capture.Sample, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != session {
		return
	}

	c.session = nil

	if err != nil || sample == nil {
		_ = c.machine.Abort()

		if !errors.Is(err, context.Canceled) {
			c.recordingError = msgMicrophone
		}

		if c.log != nil {
			c.log.Warn("Recording ended without a sample: %v", err)
		}

		return
	}

	_ = c.machine.Stop(sample.Data)
}

func (c *Controller) stopPlaybackLocked() {
	c.deck.Stop()
	c.replayHandle = nil
	c.reviewHandle = nil
}

func (c *Controller) stopReviewLocked() {
	if c.reviewHandle != nil {
		c.stopPlaybackLocked()
	}
}

// watchPlayback clears the matching flag when handle finishes on its own.
func (c *Controller) watchPlayback(handle playback.Handle) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		select {
		case <-handle.Done():
		case <-c.ctx.Done():
			handle.Stop()
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.replayHandle == handle {
			c.replayHandle = nil
		}

		if c.reviewHandle == handle {
			c.reviewHandle = nil
		}
	}()
}
