package rabbitmq_test

import (
	"testing"
	"time"

	"ovostore/internal/events"
	"ovostore/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCatalogMessage(t *testing.T) {
	sent := events.CatalogChanged{
		Kind:      events.ProductUpdated,
		ProductID: "p1",
		Origin:    "instance-a",
		At:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	body, err := rabbitmq.EncodeCatalogChanged(sent)
	require.NoError(t, err)

	var received events.CatalogChanged
	err = rabbitmq.HandleCatalogMessage(body, func(ev events.CatalogChanged) error {
		received = ev
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, sent, received)
}

func TestHandleCatalogMessage_Rejects(t *testing.T) {
	called := false
	handler := func(events.CatalogChanged) error {
		called = true
		return nil
	}

	assert.Error(t, rabbitmq.HandleCatalogMessage([]byte("not json"), handler))
	assert.Error(t, rabbitmq.HandleCatalogMessage([]byte(`{"product_id":"p1"}`), handler))
	assert.False(t, called)
}
