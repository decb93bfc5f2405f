package handlers

import (
	"errors"
	"fmt"

	"ovostore/internal/middleware"
	"ovostore/internal/models"
	"ovostore/internal/repositories"
	"ovostore/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles the catalog write API.
type AdminHandler struct {
	products    *services.ProductService
	authService *services.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(products *services.ProductService, authService *services.AuthService) *AdminHandler {
	return &AdminHandler{products: products, authService: authService}
}

// RegisterRoutes registers the admin routes with the Fiber app. Every route requires
// a signed-in admin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin/products",
		middleware.AuthRequired(h.authService),
		middleware.AdminRequired(h.authService),
	)
	adminRoutes.Get("/", h.HandleGetProducts)
	adminRoutes.Post("/", h.HandleCreateProduct)
	adminRoutes.Patch("/:id", h.HandleUpdateProduct)
	adminRoutes.Delete("/:id", h.HandleDeleteProduct)
}

func productWriteFailure(c *fiber.Ctx, message string, err error) error {
	if errorMessages, ok := validationErrors(err); ok {
		return respond(c, fiber.StatusBadRequest, fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	if errors.Is(err, services.ErrEmptyPatch) {
		return respond(c, fiber.StatusBadRequest, fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}
	if errors.Is(err, repositories.ErrProductNotFound) {
		return respond(c, fiber.StatusNotFound, fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", c.Params("id")),
		})
	}
	zap.S().Errorf("%s: %v", message, err)
	return respond(c, fiber.StatusInternalServerError, fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// HandleGetProducts lists the products straight from the store.
func (h *AdminHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.products.GetAllProducts(c.UserContext())
	if err != nil {
		zap.S().Errorf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleCreateProduct creates a product. Any id in the body is ignored.
func (h *AdminHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	product.ID = ""

	if err := h.products.CreateProduct(c.UserContext(), &product); err != nil {
		return productWriteFailure(c, "Could not create product", err)
	}
	return respond(c, fiber.StatusCreated, fiber.Map{
		"message": "Product created",
		"product": product,
	})
}

// HandleUpdateProduct changes only the fields present in the body.
func (h *AdminHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	product, err := h.products.UpdateProduct(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return productWriteFailure(c, "Could not update product", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Product updated",
		"product": product,
	})
}

// HandleDeleteProduct deletes a product by its ID.
func (h *AdminHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.products.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return productWriteFailure(c, "Could not delete product", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Product deleted",
	})
}
