// Package core defines the shared contracts between the studio components.
package core

import "context"

// Request describes a single utterance to synthesize.
type Request struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	SpeakingRate float64 `json:"speakingRate"`
	PitchShift   int     `json:"pitchShift"`
}

// Synthesizer turns a request into base64 encoded PCM and starts playing it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// KeySource supplies the API credential right before each synthesis call.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// CredentialHost is the optional host capability that lets a user pick their own API key.
// When SelectionSupported is false the selection affordance is hidden.
type CredentialHost interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
	SelectionSupported() bool
	Forget()
}

// ClipInfo carries the descriptive metadata stored next to an exported clip.
type ClipInfo struct {
	Filename     string
	Voice        string
	SpeakingRate float64
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, info ClipInfo) error
}
