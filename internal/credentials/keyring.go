// Package credentials holds the API key used for speech synthesis and lets
// the user select their own key when the host supports it.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSelectionUnsupported is returned when no prompt is configured.
var ErrSelectionUnsupported = errors.New("key selection is not supported")

// ErrNoKeySelected is returned when the prompt finishes without a key.
var ErrNoKeySelected = errors.New("no key selected")

// PromptFunc asks the user for a key.
type PromptFunc func(ctx context.Context) (string, error)

// Keyring stores a default key and an optional user selected key. The
// selected key takes precedence.
type Keyring struct {
	prompt      PromptFunc
	defaultKey  string
	selectedKey string
	mu          sync.RWMutex
}

// NewKeyring creates a keyring. prompt may be nil, in which case OpenSelectKey
// fails with ErrSelectionUnsupported.
func NewKeyring(defaultKey string, prompt PromptFunc) *Keyring {
	return &Keyring{defaultKey: strings.TrimSpace(defaultKey), prompt: prompt}
}

// APIKey returns the selected key, or the default key. An empty result means no key.
func (k *Keyring) APIKey(_ context.Context) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.selectedKey != "" {
		return k.selectedKey, nil
	}

	return k.defaultKey, nil
}

// HasSelectedKey reports whether the user has picked their own key.
func (k *Keyring) HasSelectedKey(_ context.Context) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.selectedKey != "", nil
}

// OpenSelectKey runs the prompt and stores the chosen key.
func (k *Keyring) OpenSelectKey(ctx context.Context) error {
	if k.prompt == nil {
		return ErrSelectionUnsupported
	}

	key, err := k.prompt(ctx)
	if err != nil {
		return fmt.Errorf("failed to select key: %w", err)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoKeySelected
	}

	k.mu.Lock()
	k.selectedKey = key
	k.mu.Unlock()

	return nil
}

// Forget drops the selected key, falling back to the default.
func (k *Keyring) Forget() {
	k.mu.Lock()
	k.selectedKey = ""
	k.mu.Unlock()
}

// SelectionSupported reports whether OpenSelectKey can succeed.
func (k *Keyring) SelectionSupported() bool {
	return k.prompt != nil
}

type keyContextKey struct{}

// WithKey attaches a key offered by the caller to ctx for ContextPrompt.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyContextKey{}, key)
}

// ContextPrompt is a PromptFunc that returns the key attached with WithKey.
// It lets a remote caller supply the key with the request that selects it.
func ContextPrompt(ctx context.Context) (string, error) {
	key, _ := ctx.Value(keyContextKey{}).(string)
	if strings.TrimSpace(key) == "" {
		return "", ErrNoKeySelected
	}

	return key, nil
}
