package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts/audio"
)

const testAudioData = "AAABAAIA"

// TestParseFlags verifies that command-line flags are parsed correctly.
func TestParseFlags(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags([]string{"--text", "Hello, world!", "--voice", "Puck", "--rate", "1.5", "--pitch", "-3"})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world!", flags.text)
	assert.Equal(t, "Puck", flags.voice)
	assert.InDelta(t, 1.5, flags.rate, 1e-9)
	assert.Equal(t, -3, flags.pitch)

	defaults, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "Kore", defaults.voice)
	assert.InDelta(t, 1.0, defaults.rate, 1e-9)

	_, err = parseFlags([]string{"--rate", "fast"})
	require.Error(t, err)
}

// TestArgumentValidation verifies the rules for required and bounded arguments.
func TestArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		args    []string
	}{
		{name: "success with text flag", args: []string{"--text", "some text"}},
		{name: "missing text", args: nil, wantErr: errMissingText},
		{name: "blank text", args: []string{"--text", "   "}, wantErr: errMissingText},
		{name: "unknown voice", args: []string{"--text", "a", "--voice", "Nobody"}, wantErr: studio.ErrUnknownVoice},
		{name: "custom voice", args: []string{"--text", "a", "--voice", "CUSTOM"}, wantErr: studio.ErrUnknownVoice},
		{name: "rate too high", args: []string{"--text", "a", "--rate", "2.5"}, wantErr: studio.ErrRateOutOfRange},
		{name: "pitch too low", args: []string{"--text", "a", "--pitch", "-21"}, wantErr: studio.ErrPitchOutOfRange},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			flags, err := parseFlags(testCase.args)
			require.NoError(t, err)

			err = validateArguments(flags)
			if testCase.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestRun_ListVoices(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"--voices"}, &stdout))
	assert.Contains(t, stdout.String(), "Kore")
	assert.Contains(t, stdout.String(), "Eos")
	assert.NotContains(t, stdout.String(), "CUSTOM")
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "project.toml")
	content := fmt.Sprintf(`
[gemini]
api_key = "test-key"
base_url = %q

[paths]
base_logs_dir = %q
`, baseURL, filepath.Join(dir, "logs"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRun_WritesWAV(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/pcm","data":%q}}]}}]}`,
			testAudioData)
	}))
	t.Cleanup(server.Close)

	output := filepath.Join(t.TempDir(), "out", "speech.wav")

	var stdout bytes.Buffer

	err := run(context.Background(), []string{
		"--config", writeConfig(t, server.URL),
		"--text", "Dobrý den",
		"--voice", "Charon",
		"--output", output,
	}, &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	info, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, audio.SynthesisSampleRate, info.SampleRate)
	assert.Len(t, info.PCM, 6)
	assert.Contains(t, stdout.String(), output)
}

func TestRun_ReportsQuotaMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`)
	}))
	t.Cleanup(server.Close)

	var stdout bytes.Buffer

	err := run(context.Background(), []string{
		"--config", writeConfig(t, server.URL),
		"--text", "Ahoj",
		"--output", filepath.Join(t.TempDir(), "never.wav"),
	}, &stdout)
	require.Error(t, err)
	assert.NotEmpty(t, stdout.String())
}
