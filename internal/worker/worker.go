// Package worker serves speech generation and studio control requests over
// NATS request/reply.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts"
	"github.com/book-expert/voice-studio/internal/tts/audio"
)

const handleMessageTimeout = 90 * time.Second

// kindInvalidRequest marks replies to requests that failed validation.
const kindInvalidRequest = "invalid_request"

// ErrMalformedRequest indicates that the request payload is not valid JSON.
var ErrMalformedRequest = errors.New("malformed request")

// Studio is the part of the studio controller the worker drives.
type Studio interface {
	SetText(value string)
	SelectVoice(voice tts.Voice) error
	SetSpeakingRate(rate float64) error
	SetPitchShift(pitch int) error
	ResetSettings()
	Generate(ctx context.Context) (string, error)
	DownloadWAV() (studio.Download, error)
	ToggleReplay(ctx context.Context) error
	StartRecording() error
	StopRecording() error
	DiscardRecording() error
	ConfirmClone() error
	DeleteClone() error
	ToggleReviewPlayback(ctx context.Context) error
	RecordingSpectrum() iter.Seq[audio.Spectrum]
	OpenCredentialDialog(ctx context.Context) error
	ForgetCredential() error
	Snapshot() studio.View
}

// GenerateRequest is the payload accepted on the generate subject.
type GenerateRequest struct {
	WorkflowID string `json:"workflowId,omitempty"`
	core.Request
}

// ErrorReply is sent instead of an event when a request fails. Control
// requests also carry the studio view after the failed action.
type ErrorReply struct {
	View  *studio.View `json:"view,omitempty"`
	Error string       `json:"error"`
	Kind  string       `json:"kind"`
}

// Subjects names the NATS subjects the worker uses.
type Subjects struct {
	Generate string
	// AudioCreated, when set, receives a copy of every successful reply.
	AudioCreated string
	// Control, when set, accepts studio actions such as recording and cloning.
	Control string
	// Spectrum, when set, receives visualizer frames while recording.
	Spectrum string
}

// NatsWorker listens for generate requests on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	store          core.ObjectStore
	studio         Studio
	log            *logger.Logger
	runCtx         context.Context
	subjects       Subjects
	streams        sync.WaitGroup
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjects Subjects,
	store core.ObjectStore,
	studio Studio,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subjects:       subjects,
		store:          store,
		studio:         studio,
		log:            log,
	}
}

// Run subscribes and serves requests until ctx is done. Messages are handled
// one at a time, which keeps the single-generation rule of the studio.
func (w *NatsWorker) Run(ctx context.Context) error {
	w.runCtx = ctx

	subs := make([]*nats.Subscription, 0, 2)

	sub, err := w.natsConnection.Subscribe(w.subjects.Generate, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subjects.Generate, err)
	}

	subs = append(subs, sub)

	w.log.Info("Listening for generate requests on %s", w.subjects.Generate)

	if w.subjects.Control != "" {
		controlSub, controlErr := w.natsConnection.Subscribe(w.subjects.Control, w.handleControl)
		if controlErr != nil {
			_ = sub.Unsubscribe()

			return fmt.Errorf("failed to subscribe to subject %s: %w", w.subjects.Control, controlErr)
		}

		subs = append(subs, controlSub)

		w.log.Info("Listening for studio actions on %s", w.subjects.Control)
	}

	<-ctx.Done()

	var drainErr error

	for _, subscription := range subs {
		err = subscription.Drain()
		if err != nil && drainErr == nil {
			drainErr = fmt.Errorf("failed to drain subscription: %w", err)
		}
	}

	w.streams.Wait()

	return drainErr
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	req, err := parseRequest(msg)
	if err != nil {
		w.log.Error("Failed to parse generate request: %v", err)
		w.respondError(msg, err, kindInvalidRequest)

		return
	}

	header := events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: req.WorkflowID,
		EventID:    uuid.NewString(),
	}
	if header.WorkflowID == "" {
		header.WorkflowID = uuid.NewString()
	}

	settings := withDefaults(req.Request)

	applyErr := w.apply(settings)
	if applyErr != nil {
		w.log.Error("Invalid generate request for workflow %s: %v", header.WorkflowID, applyErr)
		w.respondError(msg, applyErr, kindInvalidRequest)

		return
	}

	audioKey, err := w.generate(ctx, settings)
	if err != nil {
		w.log.Error("Failed to generate audio for workflow %s: %v", header.WorkflowID, err)
		w.respondError(msg, err, replyKind(err))

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:   header,
		AudioKey: audioKey,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", header.WorkflowID, err)
	}
}

// withDefaults fills the voice and rate a request may omit.
func withDefaults(req core.Request) core.Request {
	if req.Voice == "" {
		req.Voice = string(tts.DefaultVoice)
	}

	if req.SpeakingRate == 0 {
		req.SpeakingRate = tts.DefaultSpeakingRate
	}

	return req
}

func (w *NatsWorker) apply(req core.Request) error {
	w.studio.SetText(req.Text)

	voiceErr := w.studio.SelectVoice(tts.Voice(req.Voice))
	if voiceErr != nil {
		return voiceErr
	}

	rateErr := w.studio.SetSpeakingRate(req.SpeakingRate)
	if rateErr != nil {
		return rateErr
	}

	return w.studio.SetPitchShift(req.PitchShift)
}

// generate synthesizes the request and uploads the WAV export.
func (w *NatsWorker) generate(ctx context.Context, req core.Request) (string, error) {
	_, err := w.studio.Generate(ctx)
	if err != nil {
		return "", err
	}

	download, err := w.studio.DownloadWAV()
	if err != nil {
		return "", fmt.Errorf("failed to export audio: %w", err)
	}

	audioKey := uuid.NewString() + ".wav"

	err = w.store.Upload(ctx, audioKey, download.Data, core.ClipInfo{
		Filename:     download.Filename,
		Voice:        req.Voice,
		SpeakingRate: req.SpeakingRate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	return audioKey, nil
}

// publishReplyEvent responds with the AudioChunkCreatedEvent and announces it.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if w.subjects.AudioCreated != "" {
		publishErr := w.natsConnection.Publish(w.subjects.AudioCreated, replyData)
		if publishErr != nil {
			w.log.Warn("Failed to announce audio %s: %v", replyEvent.AudioKey, publishErr)
		}
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) respondError(msg *nats.Msg, cause error, kind string) {
	data, err := json.Marshal(ErrorReply{Error: cause.Error(), Kind: kind})
	if err != nil {
		w.log.Error("Failed to marshal error reply: %v", err)

		return
	}

	respondErr := msg.Respond(data)
	if respondErr != nil {
		w.log.Error("Failed to send error reply: %v", respondErr)
	}
}

// replyKind names the failure for clients. Gate rejections are reported as
// invalid requests; everything else goes through the synthesis classifier.
func replyKind(err error) string {
	switch {
	case errors.Is(err, studio.ErrEmptyText),
		errors.Is(err, studio.ErrCustomVoiceNotReady),
		errors.Is(err, studio.ErrGenerationInFlight):
		return kindInvalidRequest
	default:
		return tts.Classify(err).String()
	}
}

func parseRequest(msg *nats.Msg) (*GenerateRequest, error) {
	var req GenerateRequest

	err := json.Unmarshal(msg.Data, &req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	return &req, nil
}
