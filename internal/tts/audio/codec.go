// Package audio converts between the wire and playback representations of
// synthesized speech: base64 payloads, signed 16-bit PCM, float buffers and WAV files.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output format of the speech synthesis service.
const (
	SynthesisSampleRate = 24000
	SynthesisChannels   = 1
	BitDepth            = 16
)

// WAV layout constants.
const (
	WAVHeaderSize    = 44
	wavFmtChunkSize  = 16
	wavFormatPCM     = 1
	wavRIFFOverhead  = 36
	bytesPerSample   = 2
	maxSampleRate    = 192000
	maxChannels      = 8
	pcmScale         = 32768.0
	pcmMaxPositive   = 32767
	pcmMinNegative   = -32768
	chunkIDRIFF      = "RIFF"
	chunkIDWAVE      = "WAVE"
	chunkIDFormat    = "fmt "
	chunkIDData      = "data"
	errFmtSampleRate = "%w: sample rate must be between 1 and %d Hz, got %d"
	errFmtChannels   = "%w: channels must be between 1 and %d, got %d"
)

var (
	// ErrDecode reports malformed base64, PCM or WAV input.
	ErrDecode = errors.New("audio decode error")
	// ErrInvalidWAV is returned when a WAV reader rejects the file.
	ErrInvalidWAV = errors.New("invalid WAV file")
)

// WAVInfo describes a decoded WAV file.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	PCM        []byte
}

// DecodeBase64 decodes a standard base64 string into raw bytes.
func DecodeBase64(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64: %w", ErrDecode, err)
	}

	return data, nil
}

// EncodeBase64 is the inverse of DecodeBase64.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodePCM interprets pcm as signed 16-bit little-endian samples and returns
// them normalized to [-1, 1]. A trailing odd byte is dropped.
func DecodePCM(pcm []byte, sampleRate, channels int) (*goaudio.Float32Buffer, error) {
	formatErr := validateFormat(sampleRate, channels)
	if formatErr != nil {
		return nil, formatErr
	}

	sampleCount := len(pcm) / bytesPerSample
	data := make([]float32, sampleCount)

	for i := range sampleCount {
		raw := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		data[i] = float32(raw) / pcmScale
	}

	return &goaudio.Float32Buffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}, nil
}

// EncodePCM converts a float buffer back into signed 16-bit little-endian bytes.
// Samples produced by DecodePCM round-trip exactly.
func EncodePCM(buf *goaudio.Float32Buffer) []byte {
	if buf == nil {
		return nil
	}

	out := make([]byte, len(buf.Data)*bytesPerSample)

	for i, sample := range buf.Data {
		scaled := math.Round(float64(sample) * pcmScale)
		if scaled > pcmMaxPositive {
			scaled = pcmMaxPositive
		}

		if scaled < pcmMinNegative {
			scaled = pcmMinNegative
		}

		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(scaled)))
	}

	return out
}

// EncodeWAV wraps mono 16-bit PCM in a canonical 44-byte RIFF/WAVE header.
// The payload is copied verbatim after the header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	dataSize := len(pcm)
	out := make([]byte, WAVHeaderSize+dataSize)

	copy(out[0:4], chunkIDRIFF)
	binary.LittleEndian.PutUint32(out[4:8], uint32(wavRIFFOverhead+dataSize))
	copy(out[8:12], chunkIDWAVE)

	copy(out[12:16], chunkIDFormat)
	binary.LittleEndian.PutUint32(out[16:20], wavFmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], SynthesisChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:34], bytesPerSample)
	binary.LittleEndian.PutUint16(out[34:36], BitDepth)

	copy(out[36:40], chunkIDData)
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	copy(out[WAVHeaderSize:], pcm)

	return out
}

// DecodeWAV reads a 16-bit PCM WAV file and returns its format and raw sample bytes.
func DecodeWAV(data []byte) (*WAVInfo, error) {
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a WAV header", ErrInvalidWAV, len(data))
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	if decoder.BitDepth != BitDepth {
		return nil, fmt.Errorf("%w: bit depth %d, want %d", ErrInvalidWAV, decoder.BitDepth, BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	pcm := make([]byte, len(buf.Data)*bytesPerSample)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*bytesPerSample:], uint16(int16(sample)))
	}

	return &WAVInfo{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		PCM:        pcm,
	}, nil
}

// Duration returns the playback length of mono 16-bit PCM of the given size.
func Duration(pcmBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	samples := pcmBytes / bytesPerSample

	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func validateFormat(sampleRate, channels int) error {
	if sampleRate <= 0 || sampleRate > maxSampleRate {
		return fmt.Errorf(errFmtSampleRate, ErrDecode, maxSampleRate, sampleRate)
	}

	if channels <= 0 || channels > maxChannels {
		return fmt.Errorf(errFmtChannels, ErrDecode, maxChannels, channels)
	}

	return nil
}
