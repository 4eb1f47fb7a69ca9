// Package tts provides speech synthesis through the Gemini generateContent API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/tts/text"
)

// Defaults for the Gemini speech endpoint.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-preview-tts"
	DefaultTimeout = 60 * time.Second
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAPIKey      = "x-goog-api-key"
	contentTypeJSON   = "application/json"
	modalityAudio     = "AUDIO"
	maxErrorBodyBytes = 64 << 10
)

// Error messages.
const (
	errFmtNoAudioReason    = "%w (finish reason: %s)"
	errFmtServiceNonOK     = "speech service returned %s: %s"
	errFmtReadingKey       = "failed to read credential: %w"
	errFmtSendingRequest   = "failed to send speech request: %w"
	errFmtDecodingResponse = "failed to decode speech response: %w"
)

// GeminiClient calls the Gemini generateContent endpoint with an audio response modality.
type GeminiClient struct {
	httpClient *http.Client
	keys       core.KeySource
	log        *logger.Logger
	prompts    *text.Preprocessor
	baseURL    string
	model      string
	prefix     string
	timeout    time.Duration
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel overrides the speech model.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		c.model = model
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *GeminiClient) {
		c.timeout = timeout
	}
}

// WithKeySource sets where the API key is read from before each call.
func WithKeySource(keys core.KeySource) Option {
	return func(c *GeminiClient) {
		c.keys = keys
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its timeout is left untouched.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *GeminiClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *GeminiClient) {
		c.log = log
	}
}

// WithPromptPrefix changes the instruction prepended to the user text.
func WithPromptPrefix(prefix string) Option {
	return func(c *GeminiClient) {
		c.prefix = prefix
	}
}

// NewGeminiClient creates a client. Without a key source every call fails with ErrNoAPIKey.
func NewGeminiClient(opts ...Option) *GeminiClient {
	client := &GeminiClient{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}

	client.prompts = text.NewPreprocessor(client.prefix)

	return client
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	InlineData *inlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	SpeechConfig       speechConfig `json:"speechConfig"`
	ResponseModalities []string     `json:"responseModalities"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	FinishReason string  `json:"finishReason"`
	Content      content `json:"content"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// Generate synthesizes text with the engine voice for voice and returns the
// base64 encoded 24 kHz mono PCM16 payload.
func (c *GeminiClient) Generate(ctx context.Context, input string, voice Voice) (string, error) {
	if text.IsBlank(input) {
		return "", ErrEmptyText
	}

	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(c.buildRequest(input, voice))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf(errFmtSendingRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(resp)
	}

	var decoded generateResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if decodeErr != nil {
		return "", fmt.Errorf(errFmtDecodingResponse, decodeErr)
	}

	return extractAudio(decoded)
}

func (c *GeminiClient) apiKey(ctx context.Context) (string, error) {
	if c.keys == nil {
		return "", ErrNoAPIKey
	}

	apiKey, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf(errFmtReadingKey, err)
	}

	if strings.TrimSpace(apiKey) == "" {
		return "", ErrNoAPIKey
	}

	return apiKey, nil
}

func (c *GeminiClient) buildRequest(input string, voice Voice) generateRequest {
	engineVoice := voice.EngineVoice()

	if c.log != nil {
		c.log.Info("Synthesizing %d characters with voice %s (engine %s)", len(input), voice, engineVoice)
	}

	return generateRequest{
		Contents: []content{{Parts: []part{{Text: c.prompts.BuildPrompt(input)}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{modalityAudio},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: string(engineVoice)},
				},
			},
		},
	}
}

func extractAudio(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", ErrNoAudio
	}

	first := resp.Candidates[0]
	for _, p := range first.Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, nil
		}
	}

	if first.FinishReason != "" {
		return "", fmt.Errorf(errFmtNoAudioReason, ErrNoAudio, first.FinishReason)
	}

	return "", ErrNoAudio
}

// parseErrorResponse decodes the structured error envelope. If that fails the raw body is kept.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var envelope errorEnvelope

	err := json.Unmarshal(body, &envelope)
	if err == nil && envelope.Error != nil {
		envelope.Error.HTTPStatus = resp.StatusCode
		if envelope.Error.Code == 0 {
			envelope.Error.Code = resp.StatusCode
		}

		return envelope.Error
	}

	return &APIError{
		Code:       resp.StatusCode,
		HTTPStatus: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Message:    fmt.Sprintf(errFmtServiceNonOK, resp.Status, strings.TrimSpace(string(body))),
	}
}
