package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/tts"
)

const (
	testAPIKey    = "test-key"
	testAudioData = "AAABAAIA"
	generatePath  = "/models/gemini-2.5-flash-preview-tts:generateContent"
)

type staticKey string

func (k staticKey) APIKey(_ context.Context) (string, error) {
	return string(k), nil
}

type failingKey struct{}

func (failingKey) APIKey(_ context.Context) (string, error) {
	return "", errors.New("host unavailable")
}

// capturedRequest mirrors the JSON body the client sends.
type capturedRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

func newClient(t *testing.T, handler http.HandlerFunc) *tts.GeminiClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return tts.NewGeminiClient(
		tts.WithBaseURL(server.URL),
		tts.WithKeySource(staticKey(testAPIKey)),
		tts.WithTimeout(5*time.Second),
	)
}

func writeAudio(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"`+data+`"}}]},"finishReason":"STOP"}]}`)
}

func TestGeminiClient_Generate_SendsSpeechRequest(t *testing.T) {
	t.Parallel()

	var captured capturedRequest

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, generatePath, r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeAudio(w, testAudioData)
	})

	data, err := client.Generate(context.Background(), "  Dobrý  den ", tts.VoiceLuna)
	require.NoError(t, err)
	assert.Equal(t, testAudioData, data)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Equal(t, "Přečti nahlas: Dobrý den", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, []string{"AUDIO"}, captured.GenerationConfig.ResponseModalities)
	assert.Equal(t, "Puck", captured.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestGeminiClient_Generate_MissingKey(t *testing.T) {
	t.Parallel()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	noSource := tts.NewGeminiClient(tts.WithBaseURL(server.URL))
	_, err := noSource.Generate(context.Background(), "text", tts.VoiceKore)
	require.ErrorIs(t, err, tts.ErrNoAPIKey)

	emptyKey := tts.NewGeminiClient(tts.WithBaseURL(server.URL), tts.WithKeySource(staticKey("  ")))
	_, err = emptyKey.Generate(context.Background(), "text", tts.VoiceKore)
	require.ErrorIs(t, err, tts.ErrNoAPIKey)
	assert.Equal(t, "API Key not found", tts.ErrNoAPIKey.Error())

	broken := tts.NewGeminiClient(tts.WithBaseURL(server.URL), tts.WithKeySource(failingKey{}))
	_, err = broken.Generate(context.Background(), "text", tts.VoiceKore)
	require.Error(t, err)

	assert.False(t, called, "no request should be sent without a key")
}

func TestGeminiClient_Generate_EmptyText(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty text")
	})

	_, err := client.Generate(context.Background(), " \n ", tts.VoiceKore)
	require.ErrorIs(t, err, tts.ErrEmptyText)
}

func TestGeminiClient_Generate_NoAudioReportsFinishReason(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"nope"}]},"finishReason":"SAFETY"}]}`)
	})

	_, err := client.Generate(context.Background(), "text", tts.VoiceKore)
	require.ErrorIs(t, err, tts.ErrNoAudio)
	assert.Contains(t, err.Error(), "SAFETY")

	empty := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})

	_, err = empty.Generate(context.Background(), "text", tts.VoiceKore)
	require.ErrorIs(t, err, tts.ErrNoAudio)
}

func TestGeminiClient_Generate_APIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		status   int
		expected tts.Kind
	}{
		{
			name:     "entity not found",
			status:   http.StatusNotFound,
			body:     `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`,
			expected: tts.KindEntityNotFound,
		},
		{
			name:     "quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"You exceeded your current quota.","status":"RESOURCE_EXHAUSTED"}}`,
			expected: tts.KindQuotaExhausted,
		},
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`,
			expected: tts.KindCredential,
		},
		{
			name:     "internal",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"code":500,"message":"Internal error encountered.","status":"INTERNAL"}}`,
			expected: tts.KindUnknown,
		},
		{
			name:     "plain text body",
			status:   http.StatusBadGateway,
			body:     `upstream failure`,
			expected: tts.KindUnknown,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = io.WriteString(w, testCase.body)
			})

			_, err := client.Generate(context.Background(), "text", tts.VoiceKore)
			require.Error(t, err)

			var apiErr *tts.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, testCase.status, apiErr.HTTPStatus)
			assert.Equal(t, testCase.expected, tts.Classify(err))
		})
	}
}

func TestGeminiClient_Generate_CustomModelAndPrefix(t *testing.T) {
	t.Parallel()

	var captured capturedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/other-model:generateContent", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeAudio(w, testAudioData)
	}))
	defer server.Close()

	client := tts.NewGeminiClient(
		tts.WithBaseURL(server.URL+"/"),
		tts.WithModel("other-model"),
		tts.WithPromptPrefix("Say: "),
		tts.WithKeySource(staticKey(testAPIKey)),
		tts.WithHTTPClient(server.Client()),
	)

	_, err := client.Generate(context.Background(), "hi", tts.VoiceCustom)
	require.NoError(t, err)
	assert.Equal(t, "Say: hi", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "Zephyr", captured.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestGeminiClient_Generate_ContextCancelled(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeAudio(w, testAudioData)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "text", tts.VoiceKore)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGeminiClient_Generate_UnreachableHostIsUnknown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL + "/generativelanguage.googleapis.com/v1beta"
	server.Close()

	client := tts.NewGeminiClient(
		tts.WithBaseURL(baseURL),
		tts.WithKeySource(staticKey(testAPIKey)),
		tts.WithTimeout(5*time.Second),
	)

	_, err := client.Generate(context.Background(), "Ahoj", tts.VoiceKore)
	require.Error(t, err)
	assert.Equal(t, tts.KindUnknown, tts.Classify(err))
}
