package tts

import (
	"errors"
	"fmt"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/tts/text"
)

// Utterance tuning ranges and defaults.
const (
	MinSpeakingRate     = 0.5
	MaxSpeakingRate     = 2.0
	SpeakingRateStep    = 0.05
	DefaultSpeakingRate = 1.0
	MinPitchShift       = -20
	MaxPitchShift       = 20
	DefaultPitchShift   = 0
)

// Validation errors for utterance requests.
var (
	ErrRateOutOfRange  = errors.New("speaking rate out of range")
	ErrPitchOutOfRange = errors.New("pitch shift out of range")
)

// ValidateRequest checks the text and tuning of req.
func ValidateRequest(req core.Request) error {
	if text.IsBlank(req.Text) {
		return ErrEmptyText
	}

	if req.SpeakingRate < MinSpeakingRate || req.SpeakingRate > MaxSpeakingRate {
		return fmt.Errorf("%w: %.2f not in [%.1f, %.1f]",
			ErrRateOutOfRange, req.SpeakingRate, MinSpeakingRate, MaxSpeakingRate)
	}

	if req.PitchShift < MinPitchShift || req.PitchShift > MaxPitchShift {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrPitchOutOfRange, req.PitchShift, MinPitchShift, MaxPitchShift)
	}

	return nil
}
