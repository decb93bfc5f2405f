package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ovostore/internal/config"
)

func TestDefault(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "wa.me", cfg.Checkout.MessagingHost)
	assert.False(t, cfg.Google.Enabled())
	assert.Empty(t, cfg.Admin.Emails)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("CART_IDLE_TTL", "90m")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 90*time.Minute, cfg.Cart.IdleTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ovostore.yaml")
	content := `
app:
  store_name: Test Shop
database:
  type: memory
checkout:
  store_phone: "15550001111"
  currency: "EG "
admin:
  emails: [owner@example.com]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "Test Shop", cfg.App.StoreName)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "15550001111", cfg.Checkout.StorePhone)
	assert.Equal(t, "EG ", cfg.Checkout.Currency)
	assert.Equal(t, []string{"owner@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, ":8080", cfg.App.Port, "defaults still apply")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}
