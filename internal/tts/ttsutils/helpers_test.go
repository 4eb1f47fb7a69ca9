package ttsutils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

func TestDownloadFilename(t *testing.T) {
	t.Parallel()

	at := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		voice    string
		expected string
	}{
		{name: "prebuilt voice", voice: "Kore", expected: "namluvto_kore_1700000000123.wav"},
		{name: "custom voice label", voice: "Vlastní hlas", expected: "namluvto_vlastní_hlas_1700000000123.wav"},
		{name: "whitespace runs", voice: " Deep \t Voice ", expected: "namluvto_deep_voice_1700000000123.wav"},
		{name: "unsafe characters", voice: "a/b", expected: "namluvto_a_b_1700000000123.wav"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := ttsutils.DownloadFilename(testCase.voice, at)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "exports")

	err := ttsutils.EnsureDir(path)
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("Expected directory at %q", path)
	}

	err = ttsutils.EnsureDir(path)
	if err != nil {
		t.Errorf("EnsureDir on existing directory failed: %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := map[time.Duration]string{
		1500 * time.Millisecond: "1.5s",
		10 * time.Second:        "10.0s",
		90 * time.Second:        "1m 30.0s",
	}

	for input, expected := range tests {
		result := ttsutils.FormatDuration(input)
		if result != expected {
			t.Errorf("FormatDuration(%v): expected %q, got %q", input, expected, result)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		512:                    "512 B",
		2048:                   "2.0 KB",
		5 * 1024 * 1024:        "5.0 MB",
		3 * 1024 * 1024 * 1024: "3.0 GB",
	}

	for input, expected := range tests {
		result := ttsutils.FormatFileSize(input)
		if result != expected {
			t.Errorf("FormatFileSize(%d): expected %q, got %q", input, expected, result)
		}
	}
}

func TestIsValidAudioFile(t *testing.T) {
	t.Parallel()

	if !ttsutils.IsValidAudioFile("clip.WAV") {
		t.Error("Expected .WAV to be an audio file")
	}

	if ttsutils.IsValidAudioFile("notes.txt") {
		t.Error("Expected .txt not to be an audio file")
	}
}

func TestMimeType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"demo.mp3":   "audio/mpeg",
		"avatar.PNG": "image/png",
		"clip.wav":   "audio/wav",
		"blob":       "application/octet-stream",
	}

	for input, expected := range tests {
		result := ttsutils.MimeType(input)
		if result != expected {
			t.Errorf("MimeType(%q): expected %q, got %q", input, expected, result)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	result := ttsutils.SanitizeFilename(`a<b>c:d"e/f\g|h?i*j`)
	if result != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("Unexpected sanitized name %q", result)
	}
}
