package catalog

import (
	"context"
	"iter"
	"sync"

	"go.uber.org/zap"

	"ovostore/internal/models"
)

// Source opens a snapshot subscription.
type Source interface {
	Snapshots(ctx context.Context) iter.Seq2[[]models.Product, error]
}

// Live holds the most recent catalog snapshot for readers.
type Live struct {
	mu       sync.RWMutex
	products []models.Product
	loading  bool
	version  uint64
	lastErr  error

	// subscription started by Start
	ctx     context.Context
	src     Source
	running bool
	wg      sync.WaitGroup

	memo Memo
}

// NewLive returns an empty store in the loading state.
func NewLive() *Live {
	return &Live{loading: true}
}

// Run replaces the product list with every snapshot from seq. When seq reports an
// error the last known list is kept, loading is cleared and Run returns the error.
// Run never retries on its own; see Resume.
func (l *Live) Run(ctx context.Context, seq iter.Seq2[[]models.Product, error]) error {
	for products, err := range seq {
		if err != nil {
			zap.S().Errorf("Error fetching products: %v", err)
			l.mu.Lock()
			l.loading = false
			l.lastErr = err
			l.mu.Unlock()
			return err
		}
		l.replace(products)
	}
	return ctx.Err()
}

// Start subscribes to src in the background until ctx is done. Use Wait to block
// until the subscription has stopped.
func (l *Live) Start(ctx context.Context, src Source) {
	l.mu.Lock()
	l.ctx, l.src = ctx, src
	l.mu.Unlock()
	l.spawn()
}

// Resume restarts a subscription that stopped on a snapshot error. It is a no-op
// while the subscription is healthy or already restarting, and reports whether a
// new subscription was started.
func (l *Live) Resume() bool {
	if l.Err() == nil {
		return false
	}
	if !l.spawn() {
		return false
	}
	zap.S().Info("Catalog subscription restarted")
	return true
}

// Wait blocks until the background subscription has returned.
func (l *Live) Wait() {
	l.wg.Wait()
}

func (l *Live) spawn() bool {
	l.mu.Lock()
	if l.running || l.src == nil || l.ctx.Err() != nil {
		l.mu.Unlock()
		return false
	}
	l.running = true
	ctx, src := l.ctx, l.src
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		_ = l.Run(ctx, src.Snapshots(ctx))
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()
	return true
}

func (l *Live) replace(products []models.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = products
	l.loading = false
	l.lastErr = nil
	l.version++
}

// Products returns the current list. Callers must not modify it.
func (l *Live) Products() []models.Product {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.products
}

// Find returns the product with id from the current list.
func (l *Live) Find(id string) (models.Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Loading reports whether no snapshot or error has arrived yet.
func (l *Live) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Version counts the snapshots applied so far.
func (l *Live) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Err returns the error that stopped the subscription, if any.
func (l *Live) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Filtered applies f to the current list, reusing the last result for identical input.
func (l *Live) Filtered(f Filter) []models.Product {
	l.mu.RLock()
	version, products := l.version, l.products
	l.mu.RUnlock()
	return l.memo.Apply(version, products, f)
}
