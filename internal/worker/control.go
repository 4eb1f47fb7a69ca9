package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-studio/internal/capture"
	"github.com/book-expert/voice-studio/internal/clone"
	"github.com/book-expert/voice-studio/internal/credentials"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts/audio"
)

// Actions accepted on the control subject.
const (
	ActionView             = "view"
	ActionResetSettings    = "settings.reset"
	ActionReplayToggle     = "replay.toggle"
	ActionRecordStart      = "record.start"
	ActionRecordStop       = "record.stop"
	ActionRecordDiscard    = "record.discard"
	ActionReviewToggle     = "review.toggle"
	ActionCloneConfirm     = "clone.confirm"
	ActionCloneDelete      = "clone.delete"
	ActionCredentialSelect = "credential.select"
	ActionCredentialForget = "credential.forget"
)

// Reply kinds for control failures.
const (
	kindMicrophoneUnavailable = "microphone_unavailable"
	kindInsufficientSample    = "insufficient_sample"
	kindRejected              = "rejected"
)

// ErrUnknownAction is returned for control requests naming no known action.
var ErrUnknownAction = errors.New("unknown studio action")

// ControlRequest is the payload accepted on the control subject.
type ControlRequest struct {
	Action string `json:"action"`
	// Key is the credential offered with credential.select.
	Key string `json:"key,omitempty"`
}

// SpectrumFrame is published on the spectrum subject while recording.
type SpectrumFrame struct {
	Bins    audio.Spectrum `json:"bins"`
	Elapsed int            `json:"elapsed"`
}

// handleControl applies one studio action and replies with the resulting view.
func (w *NatsWorker) handleControl(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(w.runCtx, handleMessageTimeout)
	defer cancel()

	var req ControlRequest

	err := json.Unmarshal(msg.Data, &req)
	if err != nil {
		w.log.Error("Failed to parse control request: %v", err)
		w.respondError(msg, fmt.Errorf("%w: %w", ErrMalformedRequest, err), kindInvalidRequest)

		return
	}

	err = w.applyAction(ctx, req)
	if err != nil {
		w.log.Warn("Studio action %s failed: %v", req.Action, err)

		view := w.studio.Snapshot()
		w.reply(msg, ErrorReply{Error: err.Error(), Kind: controlKind(err), View: &view})

		return
	}

	w.reply(msg, w.studio.Snapshot())
}

func (w *NatsWorker) applyAction(ctx context.Context, req ControlRequest) error {
	switch req.Action {
	case ActionView:
		return nil
	case ActionResetSettings:
		w.studio.ResetSettings()

		return nil
	case ActionReplayToggle:
		return w.studio.ToggleReplay(w.runCtx)
	case ActionRecordStart:
		return w.startRecording(w.studio.StartRecording)
	case ActionRecordStop:
		return w.studio.StopRecording()
	case ActionRecordDiscard:
		return w.startRecording(w.studio.DiscardRecording)
	case ActionReviewToggle:
		return w.studio.ToggleReviewPlayback(w.runCtx)
	case ActionCloneConfirm:
		return w.studio.ConfirmClone()
	case ActionCloneDelete:
		return w.studio.DeleteClone()
	case ActionCredentialSelect:
		return w.studio.OpenCredentialDialog(credentials.WithKey(ctx, req.Key))
	case ActionCredentialForget:
		return w.studio.ForgetCredential()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

// startRecording runs start and, on success, streams the visualizer.
func (w *NatsWorker) startRecording(start func() error) error {
	err := start()
	if err != nil {
		return err
	}

	if w.subjects.Spectrum == "" {
		return nil
	}

	frames := w.studio.RecordingSpectrum()

	w.streams.Add(1)

	go func() {
		defer w.streams.Done()

		for frame := range frames {
			if w.runCtx.Err() != nil {
				return
			}

			data, marshalErr := json.Marshal(SpectrumFrame{Bins: frame, Elapsed: w.studio.Snapshot().RecordingElapsed})
			if marshalErr != nil {
				w.log.Warn("Failed to marshal spectrum frame: %v", marshalErr)

				return
			}

			publishErr := w.natsConnection.Publish(w.subjects.Spectrum, data)
			if publishErr != nil {
				w.log.Warn("Failed to publish spectrum frame: %v", publishErr)

				return
			}
		}
	}()

	return nil
}

func (w *NatsWorker) reply(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("Failed to marshal control reply: %v", err)

		return
	}

	respondErr := msg.Respond(data)
	if respondErr != nil {
		w.log.Error("Failed to send control reply: %v", respondErr)
	}
}

func controlKind(err error) string {
	switch {
	case errors.Is(err, capture.ErrMicrophoneUnavailable):
		return kindMicrophoneUnavailable
	case errors.Is(err, clone.ErrInsufficientSample):
		return kindInsufficientSample
	case errors.Is(err, ErrUnknownAction),
		errors.Is(err, clone.ErrInvalidTransition),
		errors.Is(err, capture.ErrCaptureActive),
		errors.Is(err, studio.ErrNoResult),
		errors.Is(err, studio.ErrNoSample),
		errors.Is(err, studio.ErrCredentialsHidden),
		errors.Is(err, studio.ErrClosed):
		return kindInvalidRequest
	default:
		return kindRejected
	}
}
