package tts

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Errors returned by the speech client.
var (
	ErrNoAPIKey  = errors.New("API Key not found")
	ErrNoAudio   = errors.New("no audio data received")
	ErrEmptyText = errors.New("text cannot be empty")
)

// Kind classifies a synthesis failure by the remediation it needs.
type Kind int

// Failure kinds, checked in declaration order.
const (
	KindUnknown Kind = iota
	KindEntityNotFound
	KindQuotaExhausted
	KindCredential
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEntityNotFound:
		return "entity_not_found"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindCredential:
		return "credential"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// APIError is the error envelope returned by the Gemini API.
type APIError struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	Code       int    `json:"code"`
	HTTPStatus int    `json:"-"`
}

// Error returns code, status and message so text based classification keeps working.
func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error %d %s: %s", e.Code, e.Status, e.Message)
}

var (
	entityNotFoundMarkers = []string{"requested entity was not found"}
	quotaMarkers          = []string{"quota", "429", "resource_exhausted", "limit"}
	credentialMarkers     = []string{"key", "api"}
)

// Classify maps err to a failure kind by case-insensitive inspection of its text.
// Transport failures (a *url.Error or net.Error that is not an API response)
// are always KindUnknown, since their text repeats the endpoint host.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, ErrNoAPIKey) {
		return KindCredential
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return classifyText(fmt.Sprintf("%d %s %s", apiErr.Code, apiErr.Status, apiErr.Message))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUnknown
	}

	return classifyText(err.Error())
}

func classifyText(text string) Kind {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, entityNotFoundMarkers):
		return KindEntityNotFound
	case containsAny(lower, quotaMarkers):
		return KindQuotaExhausted
	case containsAny(lower, credentialMarkers):
		return KindCredential
	default:
		return KindUnknown
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}
