package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/capture"
	"github.com/book-expert/voice-studio/internal/clone"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/credentials"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts/audio"
	"github.com/book-expert/voice-studio/internal/worker"
)

func withCloning(opts *studio.Options) {
	device := &capture.SignalDevice{SampleRate: 24000, Generator: capture.Tone(440, 0.4, 24000)}
	opts.Recorder = capture.NewRecorder(device, capture.Config{
		SampleRate:    24000,
		FrameSize:     240,
		MaxTicks:      3,
		TickInterval:  20 * time.Millisecond,
		FrameInterval: 5 * time.Millisecond,
	}, nil)
	opts.Runner = clone.NewRunner(clone.NewSimulatedTrainer(25), time.Millisecond, nil)
}

func control(t *testing.T, natsConnection *nats.Conn, req worker.ControlRequest) (studio.View, *worker.ErrorReply) {
	t.Helper()

	data, err := json.Marshal(req)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request(controlSubject, data, requestTimeout)
	require.NoError(t, err)

	var envelope struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(replyMsg.Data, &envelope))

	if envelope.Kind != "" {
		var failure worker.ErrorReply
		require.NoError(t, json.Unmarshal(replyMsg.Data, &failure))
		require.NotNil(t, failure.View)

		return *failure.View, &failure
	}

	var view studio.View
	require.NoError(t, json.Unmarshal(replyMsg.Data, &view))

	return view, nil
}

func TestControl_RecordCloneGenerateDelete(t *testing.T) {
	t.Parallel()

	h := setupStudio(t, withCloning)

	frames, err := h.natsConnection.SubscribeSync(spectrumSubject)
	require.NoError(t, err)
	require.NoError(t, h.natsConnection.Flush())

	view, failure := control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionRecordStart})
	require.Nil(t, failure)
	assert.Equal(t, "recording", view.CloneState)

	msg, err := frames.NextMsg(requestTimeout)
	require.NoError(t, err)

	var frame worker.SpectrumFrame
	require.NoError(t, json.Unmarshal(msg.Data, &frame))
	assert.Len(t, frame.Bins, len(audio.Spectrum{}))

	require.Eventually(t, func() bool {
		current, _ := control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionView})

		return current.CloneState == "reviewing"
	}, requestTimeout, 10*time.Millisecond)

	_, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionReviewToggle})
	require.Nil(t, failure)

	_, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionCloneConfirm})
	require.Nil(t, failure)

	require.Eventually(t, func() bool {
		current, _ := control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionView})

		return current.CloneState == "ready" && current.Voice == "CUSTOM"
	}, requestTimeout, 10*time.Millisecond)

	replyData := request(t, h.natsConnection, worker.GenerateRequest{
		Request: core.Request{Text: "Můj hlas", Voice: "CUSTOM"},
	})
	assert.NotContains(t, string(replyData), `"error"`)

	view, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionReplayToggle})
	require.Nil(t, failure)
	assert.True(t, view.HasResult)

	view, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionCloneDelete})
	require.Nil(t, failure)
	assert.Equal(t, "idle", view.CloneState)
	assert.Equal(t, "Kore", string(view.Voice))
}

func TestControl_Failures(t *testing.T) {
	t.Parallel()

	h := setupTest(t)

	testCases := []struct {
		name string
		kind string
		req  worker.ControlRequest
	}{
		{name: "unknown action", req: worker.ControlRequest{Action: "dance"}, kind: "invalid_request"},
		{name: "confirm while idle", req: worker.ControlRequest{Action: worker.ActionCloneConfirm}, kind: "invalid_request"},
		{name: "no microphone", req: worker.ControlRequest{Action: worker.ActionRecordStart}, kind: "microphone_unavailable"},
		{name: "replay without result", req: worker.ControlRequest{Action: worker.ActionReplayToggle}, kind: "invalid_request"},
		{name: "no credential host", req: worker.ControlRequest{Action: worker.ActionCredentialSelect}, kind: "invalid_request"},
	}

	for _, tc := range testCases {
		view, failure := control(t, h.natsConnection, tc.req)
		require.NotNil(t, failure, tc.name)
		assert.Equal(t, tc.kind, failure.Kind, tc.name)
		assert.NotEmpty(t, failure.Error, tc.name)
		assert.Equal(t, "idle", view.CloneState, tc.name)
	}
}

func TestControl_CredentialSelection(t *testing.T) {
	t.Parallel()

	keyring := credentials.NewKeyring("shared", credentials.ContextPrompt)
	h := setupStudio(t, func(opts *studio.Options) { opts.Credentials = keyring })

	view, failure := control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionView})
	require.Nil(t, failure)
	assert.True(t, view.CredentialSelectable)
	assert.False(t, view.HasCustomKey)

	_, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionCredentialSelect})
	require.NotNil(t, failure)
	assert.Equal(t, "rejected", failure.Kind)

	view, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionCredentialSelect, Key: "mine"})
	require.Nil(t, failure)
	assert.True(t, view.HasCustomKey)

	key, err := keyring.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mine", key)

	view, failure = control(t, h.natsConnection, worker.ControlRequest{Action: worker.ActionCredentialForget})
	require.Nil(t, failure)
	assert.False(t, view.HasCustomKey)
}
