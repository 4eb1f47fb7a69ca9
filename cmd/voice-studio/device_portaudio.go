//go:build portaudio

package main

import "github.com/book-expert/voice-studio/internal/capture"

func newDevice() capture.Device {
	return capture.PortAudioDevice{SampleRate: capture.DefaultSampleRate, FramesPerBuffer: capture.DefaultFrameSize}
}
