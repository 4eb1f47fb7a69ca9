// Package config provides the configuration structure for the voice studio.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultGenerateSubject     = "studio.generate"
	DefaultAudioCreatedSubject = "studio.audio.created"
	DefaultControlSubject      = "studio.control"
	DefaultSpectrumSubject     = "studio.spectrum"
	DefaultClipBucket          = "VOICE_CLIPS"
	DefaultCatalogBucket       = "VOICE_CATALOG"
	DefaultAPIKeyEnv           = "GEMINI_API_KEY"
	DefaultTimeoutSeconds      = 60
	DefaultCloneStep           = 5
	DefaultClonePollMillis     = 150
	DefaultLogsDir             = "logs"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                 string `toml:"url"`
	GenerateSubject     string `toml:"generate_subject"`
	AudioCreatedSubject string `toml:"audio_created_subject"`
	ControlSubject      string `toml:"control_subject"`
	SpectrumSubject     string `toml:"spectrum_subject"`
	ClipBucket          string `toml:"clip_bucket"`
	CatalogBucket       string `toml:"catalog_bucket"`
}

// GeminiConfig holds the speech model settings.
type GeminiConfig struct {
	// APIKey is used when set; otherwise the key is read from APIKeyEnv.
	APIKey         string `toml:"api_key"`
	APIKeyEnv      string `toml:"api_key_env"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	PromptPrefix   string `toml:"prompt_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StudioConfig tunes the clone simulation.
type StudioConfig struct {
	CloneStep       int `toml:"clone_step"`
	ClonePollMillis int `toml:"clone_poll_ms"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig   `toml:"nats"`
	Gemini GeminiConfig `toml:"gemini"`
	Studio StudioConfig `toml:"studio"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads the configuration for the voice studio.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Parse decodes a TOML document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// LoadFile reads and parses the TOML file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	return Parse(data)
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	setDefault(&c.NATS.GenerateSubject, DefaultGenerateSubject)
	setDefault(&c.NATS.AudioCreatedSubject, DefaultAudioCreatedSubject)
	setDefault(&c.NATS.ControlSubject, DefaultControlSubject)
	setDefault(&c.NATS.SpectrumSubject, DefaultSpectrumSubject)
	setDefault(&c.NATS.ClipBucket, DefaultClipBucket)
	setDefault(&c.NATS.CatalogBucket, DefaultCatalogBucket)
	setDefault(&c.Gemini.APIKeyEnv, DefaultAPIKeyEnv)
	setDefault(&c.Paths.BaseLogsDir, DefaultLogsDir)

	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Studio.CloneStep <= 0 {
		c.Studio.CloneStep = DefaultCloneStep
	}

	if c.Studio.ClonePollMillis <= 0 {
		c.Studio.ClonePollMillis = DefaultClonePollMillis
	}
}

// Validate reports missing settings the service cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.NATS.URL) == "" {
		problems = append(problems, "nats.url is required")
	}

	if c.NATS.ClipBucket == c.NATS.CatalogBucket && c.NATS.ClipBucket != "" {
		problems = append(problems, "nats.clip_bucket and nats.catalog_bucket must differ")
	}

	if c.Studio.CloneStep > 100 {
		problems = append(problems, "studio.clone_step must not exceed 100")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}

// ResolveAPIKey returns the configured key, falling back to the environment.
func (c *Config) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.Gemini.APIKey); key != "" {
		return key
	}

	return strings.TrimSpace(os.Getenv(c.Gemini.APIKeyEnv))
}

// Timeout returns the Gemini request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// ClonePollInterval returns how often clone progress is polled.
func (c *Config) ClonePollInterval() time.Duration {
	return time.Duration(c.Studio.ClonePollMillis) * time.Millisecond
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
