package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/worker"
)

const controlTimeout = 10 * time.Second

var errControlRejected = errors.New("control action rejected")

// sendControl asks a running voice-studio to perform one action and prints its view.
func sendControl(ctx context.Context, cfg *config.Config, flags appFlags, stdout io.Writer) error {
	url := flags.natsURL
	if url == "" {
		url = cfg.NATS.URL
	}

	if url == "" {
		url = nats.DefaultURL
	}

	natsConnection, err := nats.Connect(url)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	defer natsConnection.Close()

	data, err := json.Marshal(worker.ControlRequest{Action: flags.control, Key: flags.key})
	if err != nil {
		return fmt.Errorf("failed to encode control request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	msg, err := natsConnection.RequestWithContext(ctx, cfg.NATS.ControlSubject, data)
	if err != nil {
		return fmt.Errorf("control request on %s failed: %w", cfg.NATS.ControlSubject, err)
	}

	var envelope struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}

	var pretty bytes.Buffer

	err = json.Indent(&pretty, msg.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("malformed control reply: %w", err)
	}

	fmt.Fprintln(stdout, pretty.String())

	// A view may carry an error object, so only a reply with a kind is a failure.
	if json.Unmarshal(msg.Data, &envelope) == nil && envelope.Kind != "" {
		return fmt.Errorf("%w: %s: %s", errControlRejected, envelope.Kind, envelope.Error)
	}

	return nil
}
