package studio

import (
	"github.com/book-expert/voice-studio/internal/clone"
	"github.com/book-expert/voice-studio/internal/tts"
)

// View is the UI facing state of the studio.
type View struct {
	Error                *ErrorView `json:"error,omitempty"`
	Text                 string     `json:"text"`
	Voice                tts.Voice  `json:"voice"`
	VoiceLabel           string     `json:"voiceLabel"`
	CloneState           string     `json:"cloneState"`
	RecordingError       string     `json:"recordingError,omitempty"`
	SpeakingRate         float64    `json:"speakingRate"`
	PitchShift           int        `json:"pitchShift"`
	CloneProgress        int        `json:"cloneProgress"`
	RecordingElapsed     int        `json:"recordingElapsed"`
	HasResult            bool       `json:"hasResult"`
	Loading              bool       `json:"loading"`
	CanGenerate          bool       `json:"canGenerate"`
	Replaying            bool       `json:"replaying"`
	ReviewPlaying        bool       `json:"reviewPlaying"`
	QuotaExhausted       bool       `json:"quotaExhausted"`
	HasCustomKey         bool       `json:"hasCustomKey"`
	CredentialSelectable bool       `json:"credentialSelectable"`
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	cloneState := c.machine.Snapshot()

	view := View{
		Text:                 c.text,
		Voice:                c.voice,
		VoiceLabel:           c.voice.DisplayName(),
		SpeakingRate:         c.speakingRate,
		PitchShift:           c.pitchShift,
		HasResult:            c.lastResult != "",
		Loading:              c.loading,
		CanGenerate:          c.gateLocked() == nil,
		Replaying:            c.replayHandle != nil,
		ReviewPlaying:        c.reviewHandle != nil,
		QuotaExhausted:       c.quotaExhausted,
		HasCustomKey:         c.hasCustomKey,
		CredentialSelectable: c.credentialSelectable(),
		CloneState:           cloneState.State.String(),
		CloneProgress:        cloneState.Progress,
		RecordingError:       c.recordingError,
	}

	if c.session != nil {
		view.RecordingElapsed = c.session.Elapsed()
	}

	if c.errView != nil {
		errView := *c.errView
		view.Error = &errView
	}

	return view
}

// CloneState returns the state of the clone flow.
func (c *Controller) CloneState() clone.State {
	return c.machine.State()
}
