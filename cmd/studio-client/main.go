// Command studio-client synthesizes a single text to a WAV file, or sends a
// control action to a running voice-studio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/credentials"
	"github.com/book-expert/voice-studio/internal/playback"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts"
	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

// Flag descriptions.
const (
	flagTextDesc    = "Text to convert to speech"
	flagVoiceDesc   = "Voice name (Kore, Puck, Charon, Fenrir, Zephyr, Aura, Luna, Terra, Nova, Eos)"
	flagRateDesc    = "Speaking rate between 0.5 and 2.0"
	flagPitchDesc   = "Pitch shift between -20 and 20"
	flagOutputDesc  = "Output file path (.wav); defaults to the generated download name"
	flagConfigDesc  = "Path to project.toml"
	flagVerboseDesc = "Enable verbose logging"
	flagVoicesDesc  = "List the available voices and exit"
	flagControlDesc = "Send a control action (view, record.start, clone.confirm, ...) to a running voice-studio"
	flagNatsDesc    = "NATS URL for --control; defaults to the configured url"
	flagKeyDesc     = "API key passed with --control credential.select"
)

// Flag names.
const (
	flagText    = "text"
	flagVoice   = "voice"
	flagRate    = "rate"
	flagPitch   = "pitch"
	flagOutput  = "output"
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagVoices  = "voices"
	flagControl = "control"
	flagNatsURL = "nats-url"
	flagKey     = "key"
)

// Error and log messages.
const (
	errTextRequired          = "--text must be provided"
	errFailedToLoadConfig    = "failed to load configuration: %w"
	errFailedToInitLogger    = "failed to initialize logger: %w"
	logGenerating            = "Generating %d characters with voice %s at rate %.2f"
	logSuccessfullyGenerated = "Successfully generated speech: %s (%s)"
	logGenerated             = "Generated: %s (%s)\n"
)

// File names.
const (
	logFileNameDefault = "studio-client.log"
	logFileNameVerbose = "studio-client-verbose.log"
)

var errMissingText = errors.New(errTextRequired)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text    string
	voice   string
	output  string
	config  string
	control string
	natsURL string
	key     string
	rate    float64
	pitch   int
	verbose bool
	voices  bool
}

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout)
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	if flags.voices {
		printVoices(stdout)

		return nil
	}

	if flags.control != "" {
		cfg, loadErr := loadConfig(flags.config)
		if loadErr != nil {
			return fmt.Errorf(errFailedToLoadConfig, loadErr)
		}

		return sendControl(ctx, cfg, flags, stdout)
	}

	err = validateArguments(flags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return fmt.Errorf(errFailedToLoadConfig, err)
	}

	logFileName := logFileNameDefault
	if flags.verbose {
		logFileName = logFileNameVerbose
	}

	clientLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}
	defer clientLog.Close()

	controller := newController(cfg, clientLog)
	defer controller.Close()

	return generate(ctx, controller, clientLog, flags, stdout)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("studio-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.voice, flagVoice, string(tts.DefaultVoice), flagVoiceDesc)
	flagSet.Float64Var(&flags.rate, flagRate, tts.DefaultSpeakingRate, flagRateDesc)
	flagSet.IntVar(&flags.pitch, flagPitch, tts.DefaultPitchShift, flagPitchDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flagSet.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flagSet.BoolVar(&flags.voices, flagVoices, false, flagVoicesDesc)
	flagSet.StringVar(&flags.control, flagControl, "", flagControlDesc)
	flagSet.StringVar(&flags.natsURL, flagNatsURL, "", flagNatsDesc)
	flagSet.StringVar(&flags.key, flagKey, "", flagKeyDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// validateArguments checks the flags before any network or file access.
func validateArguments(flags appFlags) error {
	if strings.TrimSpace(flags.text) == "" {
		return errMissingText
	}

	voice := tts.Voice(flags.voice)
	if !voice.IsKnown() || voice == tts.VoiceCustom {
		return fmt.Errorf("%w: %q", studio.ErrUnknownVoice, flags.voice)
	}

	if flags.rate < tts.MinSpeakingRate || flags.rate > tts.MaxSpeakingRate {
		return fmt.Errorf("%w: %.2f", studio.ErrRateOutOfRange, flags.rate)
	}

	if flags.pitch < tts.MinPitchShift || flags.pitch > tts.MaxPitchShift {
		return fmt.Errorf("%w: %d", studio.ErrPitchOutOfRange, flags.pitch)
	}

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse(nil)
	}

	return config.LoadFile(path)
}

func newController(cfg *config.Config, clientLog *logger.Logger) *studio.Controller {
	deck := playback.NewDeck(playback.NewClockSink(), clientLog)
	keyring := credentials.NewKeyring(cfg.ResolveAPIKey(), nil)

	client := tts.NewGeminiClient(
		tts.WithBaseURL(cfg.Gemini.BaseURL),
		tts.WithModel(cfg.Gemini.Model),
		tts.WithPromptPrefix(cfg.Gemini.PromptPrefix),
		tts.WithTimeout(cfg.Timeout()),
		tts.WithKeySource(keyring),
		tts.WithLogger(clientLog),
	)

	return studio.New(studio.Options{
		Synthesizer: tts.NewSynthesizer(client, deck, clientLog),
		Credentials: keyring,
		Deck:        deck,
		Log:         clientLog,
	})
}

// generate drives the controller and writes the WAV export.
func generate(
	ctx context.Context,
	controller *studio.Controller,
	clientLog *logger.Logger,
	flags appFlags,
	stdout io.Writer,
) error {
	controller.SetText(flags.text)

	err := controller.SelectVoice(tts.Voice(flags.voice))
	if err != nil {
		return err
	}

	err = controller.SetSpeakingRate(flags.rate)
	if err != nil {
		return err
	}

	err = controller.SetPitchShift(flags.pitch)
	if err != nil {
		return err
	}

	clientLog.Info(logGenerating, len([]rune(flags.text)), flags.voice, flags.rate)

	_, err = controller.Generate(ctx)
	if err != nil {
		if view := controller.Snapshot().Error; view != nil {
			fmt.Fprintln(stdout, view.Message)
		}

		return err
	}

	download, err := controller.DownloadWAV()
	if err != nil {
		return err
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = download.Filename
	}

	err = ttsutils.EnsureDir(filepath.Dir(outputPath))
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = os.WriteFile(outputPath, download.Data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	size := ttsutils.FormatFileSize(int64(len(download.Data)))
	clientLog.Info(logSuccessfullyGenerated, outputPath, size)
	fmt.Fprintf(stdout, logGenerated, outputPath, size)

	return nil
}

func printVoices(stdout io.Writer) {
	for _, voice := range tts.Voices() {
		fmt.Fprintf(stdout, "%s\t%s\n", voice, voice.DisplayName())
	}
}
