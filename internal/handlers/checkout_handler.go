package handlers

import (
	"errors"

	"ovostore/internal/cart"
	"ovostore/internal/middleware"
	"ovostore/internal/models"
	"ovostore/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutHandler handles HTTP requests for checkout.
type CheckoutHandler struct {
	service *services.CheckoutService
	carts   *cart.Registry
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, carts *cart.Registry) *CheckoutHandler {
	return &CheckoutHandler{service: service, carts: carts}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleCheckout)
}

// HandleCheckout composes the order message for the visitor's cart and returns the
// messaging deep link. The cart is emptied on success.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	var info models.CustomerInfo
	if err := c.BodyParser(&info); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	result, err := h.service.PlaceOrder(c.UserContext(), h.carts.Get(middleware.VisitorID(c)), info)
	if err != nil {
		if errorMessages, ok := validationErrors(err); ok {
			return respond(c, fiber.StatusUnprocessableEntity, fiber.Map{
				"message": "Validation failed",
				"errors":  errorMessages,
				"state":   result.State,
			})
		}
		if errors.Is(err, services.ErrEmptyCart) {
			return respond(c, fiber.StatusBadRequest, fiber.Map{
				"message": "Your cart is empty",
				"state":   result.State,
			})
		}
		zap.S().Errorf("Error placing order: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not place order",
			"error":   err.Error(),
		})
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Order composed",
		"state":   result.State,
		"url":     result.URL,
		"text":    result.Message,
		"total":   result.Total.StringFixed(2),
	})
}
