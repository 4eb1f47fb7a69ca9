//go:build speaker

package main

import "github.com/book-expert/voice-studio/internal/playback"

func newSink(sampleRate int) (playback.Sink, error) {
	sink, err := playback.NewSpeakerSink(sampleRate)
	if err != nil {
		return nil, err
	}

	return sink, nil
}
