package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNilDocument is returned when storing a nil document.
var ErrNilDocument = errors.New("catalog document is nil")

// subscriberBuffer is the number of undelivered documents a subscriber may lag behind.
const subscriberBuffer = 16

// Repository persists the catalog document. Every Put is delivered to every
// active subscriber. Concurrent writers are not reconciled; the last Put wins.
type Repository interface {
	Get(ctx context.Context) (*Document, error)
	Put(ctx context.Context, doc *Document) error
	// Subscribe delivers each document written after the call until ctx is done,
	// then closes the channel.
	Subscribe(ctx context.Context) (<-chan *Document, error)
}

func encodeDocument(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog document: %w", err)
	}

	return data, nil
}

func decodeDocument(data []byte) (*Document, error) {
	var doc Document

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog document: %w", err)
	}

	return &doc, nil
}

// MemoryRepository keeps the document in process memory.
type MemoryRepository struct {
	subscribers map[chan *Document]<-chan struct{}
	data        []byte
	mu          sync.Mutex
}

// NewMemoryRepository creates a repository holding initial.
func NewMemoryRepository(initial *Document) (*MemoryRepository, error) {
	data, err := encodeDocument(initial)
	if err != nil {
		return nil, err
	}

	return &MemoryRepository{data: data, subscribers: make(map[chan *Document]<-chan struct{})}, nil
}

// Get returns a copy of the stored document.
func (r *MemoryRepository) Get(_ context.Context) (*Document, error) {
	r.mu.Lock()
	data := r.data
	r.mu.Unlock()

	return decodeDocument(data)
}

// Put replaces the document and notifies subscribers.
func (r *MemoryRepository) Put(ctx context.Context, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = data

	for subscriber, gone := range r.subscribers {
		update, decodeErr := decodeDocument(data)
		if decodeErr != nil {
			return decodeErr
		}

		select {
		case subscriber <- update:
		case <-gone:
		case <-ctx.Done():
			return fmt.Errorf("failed to notify subscribers: %w", ctx.Err())
		}
	}

	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (r *MemoryRepository) Subscribe(ctx context.Context) (<-chan *Document, error) {
	updates := make(chan *Document, subscriberBuffer)

	r.mu.Lock()
	r.subscribers[updates] = ctx.Done()
	r.mu.Unlock()

	go func() {
		<-ctx.Done()

		r.mu.Lock()
		delete(r.subscribers, updates)
		close(updates)
		r.mu.Unlock()
	}()

	return updates, nil
}
