// Package cart holds the per-visitor shopping cart.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"ovostore/internal/models"
)

var (
	// ErrInvalidQuantity is returned when a non-positive quantity is added.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrSizeRequired is returned when a piece is added without a size.
	ErrSizeRequired = errors.New("a size must be selected for each piece")
)

// LineItem is one (product, size) entry. Product fields are captured when the item is added.
type LineItem struct {
	ProductID string             `json:"id"`
	Size      string             `json:"size"`
	Quantity  int                `json:"quantity"`
	Name      string             `json:"name"`
	Price     float64            `json:"price"`
	Image     string             `json:"image"`
	Category  models.Category    `json:"category"`
	Type      models.ProductType `json:"type"`
}

// LineTotal is price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ItemFromProduct snapshots product for the given size. Quantity is left at zero.
func ItemFromProduct(p models.Product, size string) LineItem {
	return LineItem{
		ProductID: p.ID,
		Size:      size,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
		Type:      p.Type,
	}
}

// Cart keeps at most one line item per (product id, size).
type Cart struct {
	mu    sync.Mutex
	items []LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem merges quantity into the entry for (item.ProductID, item.Size), appending a
// new entry when there is none. The quantity carried by item is ignored.
func (c *Cart) AddItem(item LineItem, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(item, quantity)
	return nil
}

// AddPieces adds one unit per entry of sizes. Nothing is added if any size is empty.
func (c *Cart) AddPieces(item LineItem, sizes []string) error {
	if len(sizes) == 0 {
		return ErrInvalidQuantity
	}
	for _, size := range sizes {
		if size == "" {
			return ErrSizeRequired
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, size := range sizes {
		piece := item
		piece.Size = size
		c.add(piece, 1)
	}
	return nil
}

func (c *Cart) add(item LineItem, quantity int) {
	if i := c.index(item.ProductID, item.Size); i >= 0 {
		c.items[i].Quantity += quantity
		return
	}
	item.Quantity = quantity
	c.items = append(c.items, item)
}

// RemoveItem drops the entry for (id, size) if present.
func (c *Cart) RemoveItem(id, size string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(id, size)
}

func (c *Cart) remove(id, size string) {
	if i := c.index(id, size); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of (id, size). A quantity of zero or less removes it.
func (c *Cart) UpdateQuantity(id, size string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quantity <= 0 {
		c.remove(id, size)
		return
	}
	if i := c.index(id, size); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// ChangeSize moves the (id, size) entry to newSize, keeping its quantity. The moved
// entry merges into an existing newSize entry and otherwise lands at the end.
func (c *Cart) ChangeSize(id, size, newSize string) error {
	if newSize == "" {
		return ErrSizeRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id, size)
	if i < 0 || size == newSize {
		return nil
	}
	item := c.items[i]
	c.remove(id, size)
	item.Size = newSize
	c.add(item, item.Quantity)
	return nil
}

// ClearCart empties the cart.
func (c *Cart) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// TotalPrice sums price times quantity over every line item.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.items)
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...)
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Snapshot returns the items and their total as one consistent read.
func (c *Cart) Snapshot() ([]LineItem, decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...), total(c.items)
}

// Take returns the current contents and empties the cart in one step.
func (c *Cart) Take() ([]LineItem, decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, sum := c.items, total(c.items)
	c.items = nil
	return items, sum
}

func (c *Cart) index(id, size string) int {
	for i, item := range c.items {
		if item.ProductID == id && item.Size == size {
			return i
		}
	}
	return -1
}

func total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}
