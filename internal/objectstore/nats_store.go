// Package objectstore keeps exported WAV clips in a NATS JetStream object store.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/book-expert/voice-studio/internal/core"
)

// Metadata keys stored with every clip.
const (
	metaVoice        = "voice"
	metaSpeakingRate = "speaking-rate"
	metaFilename     = "filename"
)

// NatsObjectStore implements core.ObjectStore using NATS JetStream.
type NatsObjectStore struct {
	store  nats.ObjectStore
	bucket string
}

// New creates the bucket, or binds to it if it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Exported studio clips for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{store: store, bucket: bucketName}, nil
}

// Download retrieves a clip.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores a clip with its descriptive metadata.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte, info core.ClipInfo) error {
	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: info.Filename,
		Metadata: map[string]string{
			metaVoice:        info.Voice,
			metaSpeakingRate: strconv.FormatFloat(info.SpeakingRate, 'f', -1, 64),
			metaFilename:     info.Filename,
		},
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// Info returns the metadata stored with a clip.
func (n *NatsObjectStore) Info(_ context.Context, key string) (core.ClipInfo, error) {
	info, err := n.store.GetInfo(key)
	if err != nil {
		return core.ClipInfo{}, fmt.Errorf("failed to get info for object '%s' in bucket '%s': %w", key, n.bucket, err)
	}

	rate, parseErr := strconv.ParseFloat(info.Metadata[metaSpeakingRate], 64)
	if parseErr != nil {
		rate = 0
	}

	return core.ClipInfo{
		Filename:     info.Metadata[metaFilename],
		Voice:        info.Metadata[metaVoice],
		SpeakingRate: rate,
	}, nil
}
