// main package for the voice-studio service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-studio/internal/capture"
	"github.com/book-expert/voice-studio/internal/catalog"
	"github.com/book-expert/voice-studio/internal/clone"
	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/credentials"
	"github.com/book-expert/voice-studio/internal/objectstore"
	"github.com/book-expert/voice-studio/internal/playback"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/tts"
	"github.com/book-expert/voice-studio/internal/tts/audio"
	"github.com/book-expert/voice-studio/internal/worker"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-studio-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		bootstrapLog.Error("Configuration rejected: %v", err)

		return err
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

// serve connects to NATS, wires the studio and blocks until ctx is done.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		log.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.ClipBucket)
	if err != nil {
		return fmt.Errorf("failed to open clip store: %w", err)
	}

	repo, err := catalog.NewKVRepository(jetstreamContext, cfg.NATS.CatalogBucket, log)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	catalogService := catalog.NewService(repo, log)

	siteConfig, err := catalogService.Config(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	log.Info("Catalog ready for %q (maintenance: %t)", siteConfig.SiteTitle, siteConfig.IsMaintenanceMode)

	go watchCatalog(ctx, repo, log)

	controller, err := newController(cfg, log)
	if err != nil {
		return err
	}
	defer controller.Close()

	controller.Mount(ctx)

	natsWorker := worker.NewNatsWorker(
		natsConnection,
		worker.Subjects{
			Generate:     cfg.NATS.GenerateSubject,
			AudioCreated: cfg.NATS.AudioCreatedSubject,
			Control:      cfg.NATS.ControlSubject,
			Spectrum:     cfg.NATS.SpectrumSubject,
		},
		store,
		controller,
		log,
	)

	log.System(
		"Voice studio initialized. Listening for jobs on %s and controls on %s",
		cfg.NATS.GenerateSubject,
		cfg.NATS.ControlSubject,
	)

	err = natsWorker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.System("Voice studio stopped.")

	return nil
}

func newController(cfg *config.Config, log *logger.Logger) (*studio.Controller, error) {
	sink, err := newSink(audio.SynthesisSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	deck := playback.NewDeck(sink, log)
	keyring := credentials.NewKeyring(cfg.ResolveAPIKey(), credentials.ContextPrompt)

	client := tts.NewGeminiClient(
		tts.WithBaseURL(cfg.Gemini.BaseURL),
		tts.WithModel(cfg.Gemini.Model),
		tts.WithPromptPrefix(cfg.Gemini.PromptPrefix),
		tts.WithTimeout(cfg.Timeout()),
		tts.WithKeySource(keyring),
		tts.WithLogger(log),
	)

	var recorder *capture.Recorder
	if device := newDevice(); device != nil {
		recorder = capture.NewRecorder(device, capture.Config{}, log)
	} else {
		log.Warn("No microphone backend compiled in; recording is unavailable.")
	}

	return studio.New(studio.Options{
		Synthesizer: tts.NewSynthesizer(client, deck, log),
		Credentials: keyring,
		Deck:        deck,
		Recorder:    recorder,
		Runner:      clone.NewRunner(clone.NewSimulatedTrainer(cfg.Studio.CloneStep), cfg.ClonePollInterval(), log),
		Log:         log,
	}), nil
}

// watchCatalog logs every catalog write until ctx is done.
func watchCatalog(ctx context.Context, repo catalog.Repository, log *logger.Logger) {
	updates, err := repo.Subscribe(ctx)
	if err != nil {
		log.Warn("Failed to watch catalog: %v", err)

		return
	}

	for doc := range updates {
		log.Info("Catalog updated: %d actors, %d sounds, %d plans", len(doc.Actors), len(doc.Sounds), len(doc.Plans))
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
