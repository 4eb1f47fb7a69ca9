package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

// KVRepository stores the catalog document under DocumentKey in a NATS
// JetStream key-value bucket.
type KVRepository struct {
	kv     nats.KeyValue
	log    *logger.Logger
	bucket string
}

// NewKVRepository binds to bucket, creating it if needed, and writes the seed
// document when the key is missing.
func NewKVRepository(js nats.JetStreamContext, bucket string, log *logger.Logger) (*KVRepository, error) {
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "Marketplace catalog document.",
			History:     1,
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open key-value bucket '%s': %w", bucket, err)
	}

	repo := &KVRepository{kv: kv, log: log, bucket: bucket}

	seedErr := repo.seed()
	if seedErr != nil {
		return nil, seedErr
	}

	return repo, nil
}

func (r *KVRepository) seed() error {
	data, err := encodeDocument(Seed(time.Now()))
	if err != nil {
		return err
	}

	_, err = r.kv.Create(DocumentKey, data)
	if errors.Is(err, nats.ErrKeyExists) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to seed catalog in bucket '%s': %w", r.bucket, err)
	}

	if r.log != nil {
		r.log.Info("Seeded catalog document in bucket %s", r.bucket)
	}

	return nil
}

// Get reads the current document.
func (r *KVRepository) Get(_ context.Context) (*Document, error) {
	entry, err := r.kv.Get(DocumentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get '%s' from bucket '%s': %w", DocumentKey, r.bucket, err)
	}

	return decodeDocument(entry.Value())
}

// Put rewrites the whole document.
func (r *KVRepository) Put(_ context.Context, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = r.kv.Put(DocumentKey, data)
	if err != nil {
		return fmt.Errorf("failed to put '%s' to bucket '%s': %w", DocumentKey, r.bucket, err)
	}

	return nil
}

// Subscribe watches the document key and delivers every later write.
func (r *KVRepository) Subscribe(ctx context.Context) (<-chan *Document, error) {
	watcher, err := r.kv.Watch(DocumentKey, nats.UpdatesOnly(), nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to watch '%s' in bucket '%s': %w", DocumentKey, r.bucket, err)
	}

	updates := make(chan *Document, subscriberBuffer)

	go r.forward(ctx, watcher, updates)

	return updates, nil
}

func (r *KVRepository) forward(ctx context.Context, watcher nats.KeyWatcher, updates chan<- *Document) {
	defer close(updates)
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				return
			}

			if entry == nil || entry.Operation() != nats.KeyValuePut {
				continue
			}

			doc, err := decodeDocument(entry.Value())
			if err != nil {
				if r.log != nil {
					r.log.Warn("Skipping undecodable catalog revision %d: %v", entry.Revision(), err)
				}

				continue
			}

			select {
			case updates <- doc:
			case <-ctx.Done():
				return
			}
		}
	}
}
