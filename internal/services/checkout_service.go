package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ovostore/internal/cart"
	"ovostore/internal/models"
	"ovostore/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutState is the progress of one checkout attempt.
type CheckoutState string

const (
	CheckoutEditing    CheckoutState = "editing"
	CheckoutValidating CheckoutState = "validating"
	CheckoutSubmitted  CheckoutState = "submitted"
	CheckoutRejected   CheckoutState = "rejected"
)

// CheckoutOptions names the store on the order message and where it is sent.
type CheckoutOptions struct {
	StoreName     string
	MessagingHost string
	StorePhone    string
	Currency      string
}

// CheckoutResult is the outcome of PlaceOrder.
type CheckoutResult struct {
	State   CheckoutState   `json:"state"`
	URL     string          `json:"url,omitempty"`
	Message string          `json:"message,omitempty"`
	Total   decimal.Decimal `json:"total"`
}

// CheckoutService turns a cart and the customer's details into a messaging deep link.
type CheckoutService struct {
	opts     CheckoutOptions
	validate *validator.Validate
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(opts CheckoutOptions) *CheckoutService {
	return &CheckoutService{
		opts:     opts,
		validate: validator.New(),
	}
}

// PlaceOrder validates the customer details, empties the cart and returns the deep link
// carrying the order message. A rejected order leaves the cart untouched.
func (s *CheckoutService) PlaceOrder(ctx context.Context, c *cart.Cart, info models.CustomerInfo) (*CheckoutResult, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Address = strings.TrimSpace(info.Address)
	info.Phone = strings.TrimSpace(info.Phone)

	if err := validateStruct(s.validate, info); err != nil {
		notify.Push(ctx, notify.Failure("Please fill in all required fields", ""))
		return &CheckoutResult{State: CheckoutRejected}, err
	}

	items, total := c.Take()
	if len(items) == 0 {
		notify.Push(ctx, notify.Failure("Your cart is empty", ""))
		return &CheckoutResult{State: CheckoutRejected}, ErrEmptyCart
	}

	message := s.ComposeMessage(info, items, total)
	link := s.DeepLink(message)
	zap.S().Infof("Order composed for %s: %d line items, total %s", info.Name, len(items), total.StringFixed(2))
	notify.Push(ctx, notify.Success("Order sent!", "Your order has been sent via WhatsApp."))
	return &CheckoutResult{
		State:   CheckoutSubmitted,
		URL:     link,
		Message: message,
		Total:   total,
	}, nil
}

// ComposeMessage renders the order message.
func (s *CheckoutService) ComposeMessage(info models.CustomerInfo, items []cart.LineItem, total decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New Order - %s\n\n", s.opts.StoreName)
	b.WriteString("Customer Information:\n")
	fmt.Fprintf(&b, "Name: %s\n", info.Name)
	fmt.Fprintf(&b, "Address: %s\n", info.Address)
	fmt.Fprintf(&b, "Phone: %s\n\n", info.Phone)
	b.WriteString("Order Details:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) x%d - %s%s\n", item.Name, item.Size, item.Quantity, s.opts.Currency, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s%s", s.opts.Currency, total.StringFixed(2))
	return b.String()
}

// componentEscaper undoes the query escapes of characters a URI component keeps as-is.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// DeepLink returns the link opening a chat with the store prefilled with message.
func (s *CheckoutService) DeepLink(message string) string {
	text := componentEscaper.Replace(url.QueryEscape(message))
	return fmt.Sprintf("https://%s/%s?text=%s", s.opts.MessagingHost, s.opts.StorePhone, text)
}
