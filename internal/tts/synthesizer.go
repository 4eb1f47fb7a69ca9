package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	goaudio "github.com/go-audio/audio"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/playback"
	"github.com/book-expert/voice-studio/internal/tts/audio"
	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

// SpeechGenerator produces base64 PCM for a voice. GeminiClient implements it.
type SpeechGenerator interface {
	Generate(ctx context.Context, input string, voice Voice) (string, error)
}

// Player starts audible playback. playback.Deck implements it.
type Player interface {
	Play(ctx context.Context, buf *goaudio.Float32Buffer, rate float64) (playback.Handle, error)
}

// Synthesizer generates speech and starts playing it at the requested rate.
type Synthesizer struct {
	generator SpeechGenerator
	player    Player
	log       *logger.Logger
}

// NewSynthesizer wires a generator to a player.
func NewSynthesizer(generator SpeechGenerator, player Player, log *logger.Logger) *Synthesizer {
	return &Synthesizer{generator: generator, player: player, log: log}
}

// Synthesize returns the base64 encoded PCM for req and begins playback.
// The pitch shift is accepted and logged but not applied to the audio.
func (s *Synthesizer) Synthesize(ctx context.Context, req core.Request) (string, error) {
	validateErr := ValidateRequest(req)
	if validateErr != nil {
		return "", validateErr
	}

	if req.PitchShift != DefaultPitchShift && s.log != nil {
		s.log.Warn("Pitch shift %d requested; playback keeps the original pitch", req.PitchShift)
	}

	encoded, err := s.generator.Generate(ctx, req.Text, Voice(req.Voice))
	if err != nil {
		return "", fmt.Errorf("failed to generate speech: %w", err)
	}

	buf, err := DecodeResult(encoded)
	if err != nil {
		return "", err
	}

	if s.log != nil {
		length := time.Duration(buf.NumFrames()) * time.Second / time.Duration(audio.SynthesisSampleRate)
		s.log.Info("Synthesized %s of audio with voice %s", ttsutils.FormatDuration(length), req.Voice)
	}

	_, playErr := s.player.Play(ctx, buf, req.SpeakingRate)
	if playErr != nil && s.log != nil {
		s.log.Warn("Generated audio could not be played: %v", playErr)
	}

	return encoded, nil
}

// DecodeResult turns a synthesis result into a playable buffer.
func DecodeResult(encoded string) (*goaudio.Float32Buffer, error) {
	pcm, err := audio.DecodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesis result: %w", err)
	}

	buf, err := audio.DecodePCM(pcm, audio.SynthesisSampleRate, audio.SynthesisChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesis result: %w", err)
	}

	return buf, nil
}
