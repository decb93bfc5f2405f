package views

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "300.00", Money(decimal.NewFromInt(300)))
	assert.Equal(t, "49.50", Money(49.5))
	assert.Equal(t, "0.00", Money(nil))
}

func TestEngine_RendersNotFound(t *testing.T) {
	engine := New()
	require.NoError(t, engine.Load())

	var out bytes.Buffer
	err := engine.Render(&out, "not_found", map[string]interface{}{
		"Title":     "Page not found",
		"StoreName": "OVO Store",
	}, Layout)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "404")
	assert.Contains(t, out.String(), "OVO Store")
}
