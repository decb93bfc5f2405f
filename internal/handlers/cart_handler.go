package handlers

import (
	"errors"
	"fmt"
	"strings"

	"ovostore/internal/cart"
	"ovostore/internal/middleware"
	"ovostore/internal/models"
	"ovostore/internal/notify"

	"github.com/gofiber/fiber/v2"
)

// errSizeNotOffered is returned when a size is not in the product's size list.
var errSizeNotOffered = errors.New("size is not offered for this product")

// CartHandler handles HTTP requests for the visitor's cart.
type CartHandler struct {
	carts   *cart.Registry
	catalog Catalog
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Registry, catalog Catalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Post("/pieces", h.HandleAddPieces)
	cartRoutes.Patch("/items", h.HandleUpdateQuantity)
	cartRoutes.Patch("/items/size", h.HandleChangeSize)
	cartRoutes.Delete("/items", h.HandleRemoveItem)
}

// AddItemRequest adds quantity units of one product in one size.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// AddPiecesRequest adds one unit per listed size.
type AddPiecesRequest struct {
	ProductID string   `json:"product_id" validate:"required"`
	Sizes     []string `json:"sizes" validate:"required,min=1"`
}

// LineRequest addresses one line item.
type LineRequest struct {
	ProductID string `json:"product_id" query:"product_id" validate:"required"`
	Size      string `json:"size" query:"size" validate:"required"`
	Quantity  int    `json:"quantity"`
	NewSize   string `json:"new_size"`
}

func (h *CartHandler) visitorCart(c *fiber.Ctx) *cart.Cart {
	return h.carts.Get(middleware.VisitorID(c))
}

func cartBody(ct *cart.Cart) fiber.Map {
	items, total := ct.Snapshot()
	if items == nil {
		items = []cart.LineItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return fiber.Map{
		"items": items,
		"total": total.StringFixed(2),
		"count": count,
	}
}

// offeredProduct resolves the product from the live catalog and checks every size against it.
func offeredProduct(catalog Catalog, productID string, sizes ...string) (models.Product, error) {
	product, ok := catalog.Find(productID)
	if !ok {
		return models.Product{}, fmt.Errorf("product with ID %s not found", productID)
	}
	if len(product.Sizes) == 0 {
		return product, nil
	}
	for _, size := range sizes {
		if size != "" && !product.HasSize(size) {
			return models.Product{}, fmt.Errorf("%s: %w", size, errSizeNotOffered)
		}
	}
	return product, nil
}

func productLookupStatus(err error) int {
	if errors.Is(err, errSizeNotOffered) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusNotFound
}

// HandleGetCart returns the visitor's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return c.JSON(cartBody(h.visitorCart(c)))
}

// HandleAddItem merges an item into the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}
	product, err := offeredProduct(h.catalog, req.ProductID, req.Size)
	if err != nil {
		return c.Status(productLookupStatus(err)).JSON(fiber.Map{
			"message": "Could not add item",
			"error":   err.Error(),
		})
	}

	ct := h.visitorCart(c)
	if err := ct.AddItem(cart.ItemFromProduct(product, req.Size), req.Quantity); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not add item",
			"error":   err.Error(),
		})
	}
	notify.Push(c.UserContext(), notify.Success("Added to cart!", fmt.Sprintf("%s (%s)", product.Name, req.Size)))
	return respond(c, fiber.StatusOK, cartBody(ct))
}

// HandleAddPieces adds one unit per selected size, like picking a size for every piece.
func (h *CartHandler) HandleAddPieces(c *fiber.Ctx) error {
	var req AddPiecesRequest
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}
	product, err := offeredProduct(h.catalog, req.ProductID, req.Sizes...)
	if err != nil {
		return c.Status(productLookupStatus(err)).JSON(fiber.Map{
			"message": "Could not add items",
			"error":   err.Error(),
		})
	}

	ct := h.visitorCart(c)
	if err := ct.AddPieces(cart.ItemFromProduct(product, ""), req.Sizes); err != nil {
		notify.Push(c.UserContext(), notify.Failure("Please select a size for each piece", ""))
		return respond(c, fiber.StatusBadRequest, fiber.Map{
			"message": "Could not add items",
			"error":   err.Error(),
		})
	}
	notify.Push(c.UserContext(), notify.Success("Added to cart!", fmt.Sprintf("%s (%s)", product.Name, strings.Join(req.Sizes, ", "))))
	return respond(c, fiber.StatusOK, cartBody(ct))
}

// HandleUpdateQuantity replaces a line item's quantity. Zero or less removes it.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	var req LineRequest
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}
	ct := h.visitorCart(c)
	ct.UpdateQuantity(req.ProductID, req.Size, req.Quantity)
	return c.JSON(cartBody(ct))
}

// HandleChangeSize moves a line item to another size.
func (h *CartHandler) HandleChangeSize(c *fiber.Ctx) error {
	var req LineRequest
	if handled, err := parseAndValidate(c, &req); handled {
		return err
	}
	if _, err := offeredProduct(h.catalog, req.ProductID, req.NewSize); err != nil && errors.Is(err, errSizeNotOffered) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not change size",
			"error":   err.Error(),
		})
	}
	ct := h.visitorCart(c)
	if err := ct.ChangeSize(req.ProductID, req.Size, req.NewSize); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not change size",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartBody(ct))
}

// HandleRemoveItem removes a line item, addressed by the product_id and size query parameters.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	var req LineRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid query",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		errorMessages, _ := validationErrors(err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	ct := h.visitorCart(c)
	ct.RemoveItem(req.ProductID, req.Size)
	return c.JSON(cartBody(ct))
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	ct := h.visitorCart(c)
	ct.ClearCart()
	return c.JSON(cartBody(ct))
}
