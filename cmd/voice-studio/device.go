//go:build !portaudio

package main

import "github.com/book-expert/voice-studio/internal/capture"

func newDevice() capture.Device {
	return nil
}
