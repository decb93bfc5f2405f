package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ovostore/internal/catalog"
	"ovostore/internal/config"
	"ovostore/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Database.Type = StoreSQLite
	cfg.Database.DSN = filepath.Join(dir, "db", "ovostore.db")
	cfg.Database.Seed = true
	cfg.Session.StorePath = filepath.Join(dir, "sessions.db")
	cfg.RabbitMQ.URL = ""
	return cfg
}

func TestOpenStores_UnknownType(t *testing.T) {
	_, err := openStores(context.Background(), config.DatabaseConfig{Type: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown database type "cassandra"`)
}

func TestSeedProducts_OnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProductRepository()

	require.NoError(t, seedProducts(ctx, repo))
	require.NoError(t, seedProducts(ctx, repo))

	products, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestCatalogStatus(t *testing.T) {
	live := catalog.NewLive()
	assert.Equal(t, "loading", catalogStatus(live))
}

func TestNew_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cart.EvictSchedule = "every now and then"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cart eviction schedule")
}

func TestNew_SQLiteKeepsCatalogAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	for run := 0; run < 2; run++ {
		a, err := New(cfg)
		require.NoError(t, err, "run %d", run)

		require.Eventually(t, func() bool { return !a.Catalog.Loading() }, 5*time.Second, 10*time.Millisecond)
		assert.Len(t, a.Catalog.Products(), 5, "run %d seeds only an empty store", run)

		resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, a.Shutdown(time.Second))
	}
}

func TestShutdown_EndsOpenProductStreams(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !a.Catalog.Loading() }, 5*time.Second, 10*time.Millisecond)

	streamed := make(chan error, 1)
	go func() {
		resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products/stream", nil), -1)
		if err == nil {
			_, err = io.ReadAll(resp.Body)
		}
		streamed <- err
	}()
	require.Eventually(t, func() bool { return a.feed.Listeners() == 2 }, 5*time.Second, 10*time.Millisecond,
		"the live catalog and the open stream are both subscribed")

	start := time.Now()
	require.NoError(t, a.Shutdown(2*time.Second))
	assert.Less(t, time.Since(start), time.Second)

	select {
	case err := <-streamed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
	assert.Equal(t, 0, a.feed.Listeners())
}
