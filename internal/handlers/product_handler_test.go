package handlers

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ovostore/internal/catalog"
	"ovostore/internal/models"
	"ovostore/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connWriter stands in for a client connection that can go away.
type connWriter struct {
	mu     sync.Mutex
	buf    strings.Builder
	closed bool
}

func (w *connWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errors.New("connection closed")
	}
	return w.buf.Write(p)
}

func (w *connWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *connWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func newStreamHandler(t *testing.T, ctx context.Context) (*ProductHandler, *catalog.Feed) {
	t.Helper()
	repo := repositories.NewMemoryProductRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Product{
		Name: "Linen Shirt", Price: 100, Category: models.CategoryMen, Type: models.TypeTShirt,
		Image: "https://images.example.com/linen-shirt.jpg", Description: "Breathable linen.",
	}))
	feed := catalog.NewFeed(repo)
	h := NewProductHandler(ctx, catalog.NewLive(), feed)
	h.heartbeat = 10 * time.Millisecond
	return h, feed
}

func TestStreamSnapshots_StopsWhenClientGoesAway(t *testing.T) {
	h, feed := newStreamHandler(t, context.Background())
	conn := &connWriter{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.streamSnapshots(bufio.NewWriter(conn), catalog.Filter{}, 0)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(conn.String(), "event: snapshot") && strings.Contains(conn.String(), ": ping")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, feed.Listeners())

	// No catalog change follows; the heartbeat has to notice the closed connection.
	conn.close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream kept running after the client left")
	}
	assert.Equal(t, 0, feed.Listeners())
}

func TestStreamSnapshots_StopsWithHandlerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, feed := newStreamHandler(t, ctx)
	h.heartbeat = time.Hour
	conn := &connWriter{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.streamSnapshots(bufio.NewWriter(conn), catalog.Filter{}, 0)
	}()

	require.Eventually(t, func() bool { return feed.Listeners() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream ignored cancellation")
	}
	assert.Equal(t, 0, feed.Listeners())
}

func TestStreamSnapshots_ReportsLoadErrors(t *testing.T) {
	h, _ := newStreamHandler(t, context.Background())
	h.feed = catalog.NewFeed(failingLoader{})
	conn := &connWriter{}

	h.streamSnapshots(bufio.NewWriter(conn), catalog.Filter{}, 0)

	assert.True(t, strings.HasPrefix(conn.String(), "event: error\ndata: "), conn.String())
	assert.Contains(t, conn.String(), "store offline")
}

type failingLoader struct{}

func (failingLoader) GetAll(context.Context) ([]models.Product, error) {
	return nil, errors.New("store offline")
}
