// Package ttsutils provides file naming, formatting and path helpers for
// exported studio audio.
package ttsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Export naming constants.
const (
	downloadPrefix         = "namluvto"
	downloadSeparator      = "_"
	defaultDirPermissions  = 0o750
	invalidCharReplacement = "_"
	defaultMimeType        = "application/octet-stream"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Time and size formatting constants.
const (
	secondsInMinute = 60
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatGB        = "%.1f GB"
	formatMB        = "%.1f MB"
	formatKB        = "%.1f KB"
	formatBytes     = "%d B"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extJPEG = ".jpeg"
	extJPG  = ".jpg"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extPNG  = ".png"
	extSVG  = ".svg"
	extWAV  = ".wav"
	extWEBP = ".webp"
)

var mimeTypes = map[string]string{
	extAAC:  "audio/aac",
	extFLAC: "audio/flac",
	extJPEG: "image/jpeg",
	extJPG:  "image/jpeg",
	extM4A:  "audio/mp4",
	extMP3:  "audio/mpeg",
	extOGG:  "audio/ogg",
	extPNG:  "image/png",
	extSVG:  "image/svg+xml",
	extWAV:  "audio/wav",
	extWEBP: "image/webp",
}

// DownloadFilename names a WAV export: namluvto_<voice>_<unix millis>.wav, with
// the voice lowercased and whitespace runs replaced by underscores.
func DownloadFilename(voice string, at time.Time) string {
	slug := strings.Join(strings.FieldsFunc(strings.ToLower(voice), unicode.IsSpace), downloadSeparator)

	return SanitizeFilename(fmt.Sprintf("%s_%s_%d%s", downloadPrefix, slug, at.UnixMilli(), extWAV))
}

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

// FormatDuration formats a duration in a human-readable string (e.g., "5m 30.5s", "45.2s").
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	minutes := int(seconds / secondsInMinute)

	return fmt.Sprintf(formatMinutes, minutes, seconds-float64(minutes*secondsInMinute))
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5 MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// MimeType guesses the media type of filename from its extension.
func MimeType(filename string) string {
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return defaultMimeType
	}

	return mime
}

// SanitizeFilename removes or replaces characters that are invalid in most filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}
