package catalog

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"ovostore/internal/events"
	"ovostore/internal/models"
)

// Loader reads the full product collection.
type Loader interface {
	GetAll(ctx context.Context) ([]models.Product, error)
}

// Feed turns change notifications into full-list snapshots.
type Feed struct {
	loader Loader

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]chan struct{}
}

// NewFeed creates a feed reading snapshots from loader.
func NewFeed(loader Loader) *Feed {
	return &Feed{
		loader:    loader,
		listeners: make(map[uint64]chan struct{}),
	}
}

// OnCatalogChanged wakes every active snapshot sequence. It is the event bus handler
// for events.TopicCatalogChanged.
func (f *Feed) OnCatalogChanged(events.CatalogChanged) {
	f.Notify()
}

// Notify wakes every active snapshot sequence. Pending wake-ups coalesce.
func (f *Feed) Notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners returns the number of active snapshot sequences.
func (f *Feed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *Feed) listen() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan struct{}, 1)
	f.listeners[id] = ch
	return ch, func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Snapshots yields the current product list, then a fresh full list after every change.
// Each range over the sequence registers its own listener and unregisters it when the
// loop stops or ctx is done. A failed load is yielded once as an error and ends the
// sequence.
func (f *Feed) Snapshots(ctx context.Context) iter.Seq2[[]models.Product, error] {
	return func(yield func([]models.Product, error) bool) {
		wake, stop := f.listen()
		defer stop()

		for {
			products, err := f.loader.GetAll(ctx)
			if err != nil {
				if ctx.Err() == nil {
					yield(nil, fmt.Errorf("load catalog snapshot: %w", err))
				}
				return
			}
			if !yield(products, nil) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
		}
	}
}
