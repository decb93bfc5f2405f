package handlers

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"time"

	"ovostore/internal/catalog"
	"ovostore/internal/models"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// streamHeartbeat is how often an idle product stream checks that its client is still there.
const streamHeartbeat = 15 * time.Second

// Catalog is the live, subscription-backed product list.
type Catalog interface {
	Filtered(f catalog.Filter) []models.Product
	Find(id string) (models.Product, bool)
	Loading() bool
	// Resume restarts the subscription after it stopped on an error.
	Resume() bool
}

// SnapshotSource streams full catalog snapshots.
type SnapshotSource interface {
	Snapshots(ctx context.Context) iter.Seq2[[]models.Product, error]
}

// ProductHandler serves catalog reads.
type ProductHandler struct {
	// ctx bounds every open stream; cancelling it ends them all.
	ctx       context.Context
	catalog   Catalog
	feed      SnapshotSource
	heartbeat time.Duration
}

// NewProductHandler creates a new ProductHandler. Streams stay open at most until ctx is done.
func NewProductHandler(ctx context.Context, catalog Catalog, feed SnapshotSource) *ProductHandler {
	return &ProductHandler{ctx: ctx, catalog: catalog, feed: feed, heartbeat: streamHeartbeat}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/stream", h.HandleStreamProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
}

func filterFromQuery(c *fiber.Ctx) catalog.Filter {
	return catalog.ParseFilter(c.Query("category"), c.Query("type"), c.Query("sort"))
}

// HandleGetProducts lists the catalog, filtered by the category, type and sort query parameters.
// A catalog subscription stopped by an error is restarted by this request.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	h.catalog.Resume()
	filter := filterFromQuery(c)
	return c.JSON(fiber.Map{
		"products": h.catalog.Filtered(filter),
		"loading":  h.catalog.Loading(),
		"filter":   filter,
	})
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, ok := h.catalog.Find(productID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", productID),
		})
	}
	return c.JSON(product)
}

// HandleStreamProducts sends the filtered catalog as server-sent events, one event per
// snapshot. The optional limit query parameter closes the stream after that many snapshots.
func (h *ProductHandler) HandleStreamProducts(c *fiber.Ctx) error {
	filter := filterFromQuery(c)
	limit := c.QueryInt("limit", 0)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.streamSnapshots(w, filter, limit)
	})
	return nil
}

type snapshot struct {
	products []models.Product
	err      error
}

// streamSnapshots writes snapshot events to w until the client goes away, the limit
// is reached or the handler context is done. A comment line goes out every heartbeat
// so a closed connection is noticed between catalog changes.
func (h *ProductHandler) streamSnapshots(w *bufio.Writer, filter catalog.Filter, limit int) {
	ctx, cancel := context.WithCancel(h.ctx)
	snapshots := make(chan snapshot)
	go func() {
		defer close(snapshots)
		for products, err := range h.feed.Snapshots(ctx) {
			select {
			case snapshots <- snapshot{products: products, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer func() {
		cancel()
		for range snapshots {
		}
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				zap.S().Debugf("Product stream closed by client: %v", err)
				return
			}
			if err := w.Flush(); err != nil {
				zap.S().Debugf("Product stream closed by client: %v", err)
				return
			}
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if snap.err != nil {
				msg, _ := json.Marshal(fiber.Map{"message": "Error fetching products", "error": snap.err.Error()})
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", msg)
				_ = w.Flush()
				return
			}
			body, err := json.Marshal(catalog.Apply(snap.products, filter))
			if err != nil {
				zap.S().Errorf("Error encoding product snapshot: %v", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", body)
			if err := w.Flush(); err != nil {
				zap.S().Debugf("Product stream closed by client: %v", err)
				return
			}
			sent++
			if limit > 0 && sent >= limit {
				return
			}
		}
	}
}
