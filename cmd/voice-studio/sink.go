//go:build !speaker

package main

import "github.com/book-expert/voice-studio/internal/playback"

func newSink(int) (playback.Sink, error) {
	return playback.NewClockSink(), nil
}
