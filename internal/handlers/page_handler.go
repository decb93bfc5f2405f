package handlers

import (
	"errors"
	"fmt"
	"strings"

	"ovostore/internal/cart"
	"ovostore/internal/catalog"
	"ovostore/internal/middleware"
	"ovostore/internal/models"
	"ovostore/internal/notify"
	"ovostore/internal/repositories"
	"ovostore/internal/services"
	"ovostore/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Admin page paths.
const (
	LoginPath = "/admin-login"
	AdminPath = "/admin"
)

const (
	maxPieces    = 10
	featuredSize = 4
)

// Visitor session keys that keep the checkout form across a rejected attempt.
const (
	customerNameKey    = "customer_name"
	customerAddressKey = "customer_address"
	customerPhoneKey   = "customer_phone"
)

// PageOptions configures the HTML storefront.
type PageOptions struct {
	StoreName     string
	Currency      string
	GoogleEnabled bool
}

// PageHandler serves the HTML storefront and its form posts.
type PageHandler struct {
	catalog     Catalog
	carts       *cart.Registry
	products    *services.ProductService
	authService *services.AuthService
	checkout    *services.CheckoutService
	opts        PageOptions
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(catalog Catalog, carts *cart.Registry, products *services.ProductService, authService *services.AuthService, checkout *services.CheckoutService, opts PageOptions) *PageHandler {
	return &PageHandler{
		catalog:     catalog,
		carts:       carts,
		products:    products,
		authService: authService,
		checkout:    checkout,
		opts:        opts,
	}
}

// RegisterRoutes registers the page routes. The visitor and optional auth middleware
// must already be installed.
func (h *PageHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleHome)
	router.Get("/products", h.HandleProducts)
	router.Get("/products/:id", h.HandleProduct)

	router.Get("/cart", h.HandleCart)
	router.Post("/cart/add", h.HandleCartAdd)
	router.Post("/cart/update", h.HandleCartUpdate)
	router.Post("/cart/size", h.HandleCartSize)
	router.Post("/cart/remove", h.HandleCartRemove)
	router.Post("/cart/clear", h.HandleCartClear)
	router.Post("/checkout", h.HandleCheckout)

	router.Get(LoginPath, h.HandleAdminLogin)
	router.Post(LoginPath, h.HandleAdminLoginPost)

	// The guard is attached per route: a group on /admin would also catch /admin-login.
	guard := middleware.AdminPage(h.authService, LoginPath)
	router.Get(AdminPath, guard, h.HandleAdmin)
	router.Post(AdminPath+"/logout", guard, h.HandleAdminLogout)
	router.Post(AdminPath+"/products", guard, h.HandleAdminCreate)
	router.Post(AdminPath+"/products/:id", guard, h.HandleAdminUpdate)
	router.Post(AdminPath+"/products/:id/delete", guard, h.HandleAdminDelete)
}

func (h *PageHandler) render(c *fiber.Ctx, status int, name, title string, data fiber.Map) error {
	data["Title"] = title
	data["StoreName"] = h.opts.StoreName
	data["Currency"] = h.opts.Currency
	data["Categories"] = models.Categories
	data["Types"] = models.ProductTypes
	data["Sizes"] = models.AvailableSizes
	data["CartCount"] = h.carts.Get(middleware.VisitorID(c)).Count()
	data["Session"] = middleware.Session(c)
	data["Flash"] = append(middleware.TakeFlash(c), middleware.Notifications(c)...)
	return c.Status(status).Render(name, data, views.Layout)
}

func (h *PageHandler) back(c *fiber.Ctx, fallback string) error {
	return c.Redirect(fallback, fiber.StatusSeeOther)
}

// HandleHome renders the landing page.
func (h *PageHandler) HandleHome(c *fiber.Ctx) error {
	h.catalog.Resume()
	products := h.catalog.Filtered(catalog.Filter{})
	if len(products) > featuredSize {
		products = products[:featuredSize]
	}
	return h.render(c, fiber.StatusOK, "home", "Home", fiber.Map{
		"Loading":  h.catalog.Loading(),
		"Featured": products,
	})
}

// HandleProducts renders the catalog grid, pre-seeding the filter from the query.
func (h *PageHandler) HandleProducts(c *fiber.Ctx) error {
	h.catalog.Resume()
	filter := filterFromQuery(c)
	return h.render(c, fiber.StatusOK, "products", "Products", fiber.Map{
		"Loading":  h.catalog.Loading(),
		"Products": h.catalog.Filtered(filter),
		"Filter":   filter,
	})
}

// HandleProduct renders one product with a size selector per piece.
func (h *PageHandler) HandleProduct(c *fiber.Ctx) error {
	product, ok := h.catalog.Find(c.Params("id"))
	if !ok {
		return h.HandleNotFound(c)
	}
	pieces := c.QueryInt("pieces", 1)
	if pieces < 1 {
		pieces = 1
	}
	if pieces > maxPieces {
		pieces = maxPieces
	}
	return h.render(c, fiber.StatusOK, "product", product.Name, fiber.Map{
		"Product": product,
		"Pieces":  pieces,
	})
}

// cartRow is a line item with the sizes it can be switched to.
type cartRow struct {
	cart.LineItem
	Sizes []string
}

func (h *PageHandler) cartRows(items []cart.LineItem) []cartRow {
	rows := make([]cartRow, 0, len(items))
	for _, item := range items {
		sizes := []string{item.Size}
		if product, ok := h.catalog.Find(item.ProductID); ok && product.HasSize(item.Size) {
			sizes = product.Sizes
		}
		rows = append(rows, cartRow{LineItem: item, Sizes: sizes})
	}
	return rows
}

// HandleCart renders the cart and the checkout form.
func (h *PageHandler) HandleCart(c *fiber.Ctx) error {
	items, total := h.carts.Get(middleware.VisitorID(c)).Snapshot()
	return h.render(c, fiber.StatusOK, "cart", "Shopping Cart", fiber.Map{
		"Items": h.cartRows(items),
		"Total": total,
		"Customer": models.CustomerInfo{
			Name:    middleware.VisitorValue(c, customerNameKey),
			Address: middleware.VisitorValue(c, customerAddressKey),
			Phone:   middleware.VisitorValue(c, customerPhoneKey),
		},
	})
}

// HandleCartAdd adds one unit per selected size.
func (h *PageHandler) HandleCartAdd(c *fiber.Ctx) error {
	productID := c.FormValue("product_id")
	var sizes []string
	for _, size := range c.Context().PostArgs().PeekMulti("sizes") {
		sizes = append(sizes, string(size))
	}
	ctx := c.UserContext()

	product, err := offeredProduct(h.catalog, productID, sizes...)
	if err != nil {
		notify.Push(ctx, notify.Failure("Could not add to cart", err.Error()))
		return h.back(c, "/products")
	}
	item := cart.ItemFromProduct(product, "")
	if err := h.carts.Get(middleware.VisitorID(c)).AddPieces(item, sizes); err != nil {
		notify.Push(ctx, notify.Failure("Please select a size for each piece", ""))
		return h.back(c, "/products/"+product.ID)
	}
	notify.Push(ctx, notify.Success("Added to cart!", fmt.Sprintf("%s (%s)", product.Name, strings.Join(sizes, ", "))))
	return h.back(c, "/products")
}

// HandleCartUpdate sets a line item's quantity.
func (h *PageHandler) HandleCartUpdate(c *fiber.Ctx) error {
	quantity := cast.ToInt(c.FormValue("quantity"))
	h.carts.Get(middleware.VisitorID(c)).UpdateQuantity(c.FormValue("product_id"), c.FormValue("size"), quantity)
	return h.back(c, "/cart")
}

// HandleCartSize moves a line item to another size.
func (h *PageHandler) HandleCartSize(c *fiber.Ctx) error {
	productID, newSize := c.FormValue("product_id"), c.FormValue("new_size")
	if _, err := offeredProduct(h.catalog, productID, newSize); err != nil && errors.Is(err, errSizeNotOffered) {
		notify.Push(c.UserContext(), notify.Failure("Could not change size", err.Error()))
		return h.back(c, "/cart")
	}
	if err := h.carts.Get(middleware.VisitorID(c)).ChangeSize(productID, c.FormValue("size"), newSize); err != nil {
		notify.Push(c.UserContext(), notify.Failure("Could not change size", err.Error()))
	}
	return h.back(c, "/cart")
}

// HandleCartRemove removes a line item.
func (h *PageHandler) HandleCartRemove(c *fiber.Ctx) error {
	h.carts.Get(middleware.VisitorID(c)).RemoveItem(c.FormValue("product_id"), c.FormValue("size"))
	return h.back(c, "/cart")
}

// HandleCartClear empties the cart.
func (h *PageHandler) HandleCartClear(c *fiber.Ctx) error {
	h.carts.Get(middleware.VisitorID(c)).ClearCart()
	return h.back(c, "/cart")
}

// HandleCheckout sends the browser to the messaging deep link, or back to the cart
// with the form kept when the order is rejected.
func (h *PageHandler) HandleCheckout(c *fiber.Ctx) error {
	var info models.CustomerInfo
	if err := c.BodyParser(&info); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form")
	}

	result, err := h.checkout.PlaceOrder(c.UserContext(), h.carts.Get(middleware.VisitorID(c)), info)
	if err != nil {
		middleware.SetVisitorValue(c, customerNameKey, info.Name)
		middleware.SetVisitorValue(c, customerAddressKey, info.Address)
		middleware.SetVisitorValue(c, customerPhoneKey, info.Phone)
		return h.back(c, "/cart")
	}
	middleware.SetVisitorValue(c, customerNameKey, "")
	middleware.SetVisitorValue(c, customerAddressKey, "")
	middleware.SetVisitorValue(c, customerPhoneKey, "")
	return c.Redirect(result.URL, fiber.StatusSeeOther)
}

// HandleAdminLogin renders the sign-in page. Signed-in admins go straight to the dashboard.
func (h *PageHandler) HandleAdminLogin(c *fiber.Ctx) error {
	if h.authService.IsAdmin(middleware.Session(c)) {
		return h.back(c, AdminPath)
	}
	return h.render(c, fiber.StatusOK, "admin_login", "Admin Login", fiber.Map{
		"GoogleEnabled": h.opts.GoogleEnabled,
		"Email":         c.Query("email"),
	})
}

// HandleAdminLoginPost signs in or signs up, depending on the action field.
func (h *PageHandler) HandleAdminLoginPost(c *fiber.Ctx) error {
	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form")
	}
	ctx := c.UserContext()
	if err := validate.Struct(creds); err != nil {
		notify.Push(ctx, notify.Failure("Please enter a valid email and a password of at least 6 characters", ""))
		return h.back(c, LoginPath)
	}

	var (
		result *services.AuthResult
		err    error
	)
	if c.FormValue("action") == "signup" {
		result, err = h.authService.SignUp(ctx, creds.Email, creds.Password)
	} else {
		result, err = h.authService.SignIn(ctx, creds.Email, creds.Password)
	}
	if err != nil {
		return h.back(c, LoginPath)
	}
	setTokenCookie(c, result.Token, result.Session.ExpiresAt)
	return h.back(c, AdminPath)
}

// HandleAdmin renders the dashboard. The product list is read from the store so
// the admin sees their own writes at once.
func (h *PageHandler) HandleAdmin(c *fiber.Ctx) error {
	return h.renderAdmin(c, fiber.StatusOK, models.Product{})
}

// renderAdmin renders the dashboard with draft filled into the add form.
func (h *PageHandler) renderAdmin(c *fiber.Ctx, status int, draft models.Product) error {
	products, err := h.products.GetAllProducts(c.UserContext())
	if err != nil {
		zap.S().Errorf("Error getting all products: %v", err)
		notify.Push(c.UserContext(), notify.Failure("Could not load products", ""))
	}
	data := fiber.Map{
		"Products": products,
		"Blank":    draft,
	}
	if id := c.Query("edit"); id != "" {
		if product, err := h.products.GetProductByID(c.UserContext(), id); err == nil {
			data["Editing"] = product
		}
	}
	return h.render(c, status, "admin", "Admin Dashboard", data)
}

// HandleAdminLogout signs out and returns to the sign-in page.
func (h *PageHandler) HandleAdminLogout(c *fiber.Ctx) error {
	h.authService.SignOut(c.UserContext(), middleware.Session(c).ID)
	clearTokenCookie(c)
	return h.back(c, LoginPath)
}

func productForm(c *fiber.Ctx) (models.Product, error) {
	price, err := cast.ToFloat64E(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return models.Product{}, &services.ValidationError{Fields: map[string]string{
			"Price": "Field 'Price' failed on the 'number' tag",
		}}
	}
	sizes := []string{}
	for _, size := range c.Context().PostArgs().PeekMulti("sizes") {
		sizes = append(sizes, string(size))
	}
	return models.Product{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Price:       price,
		Category:    models.Category(c.FormValue("category")),
		Type:        models.ProductType(c.FormValue("type")),
		Sizes:       sizes,
		Image:       strings.TrimSpace(c.FormValue("image")),
		Description: c.FormValue("description"),
	}, nil
}

// HandleAdminCreate adds a product from the dashboard form.
func (h *PageHandler) HandleAdminCreate(c *fiber.Ctx) error {
	product, err := productForm(c)
	if err != nil {
		notify.Push(c.UserContext(), notify.Failure("Error adding product", err.Error()))
		return h.back(c, AdminPath)
	}
	if err := h.products.CreateProduct(c.UserContext(), &product); err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return h.renderAdmin(c, fiber.StatusUnprocessableEntity, product)
		}
		zap.S().Errorf("Error creating product from dashboard: %v", err)
		return h.renderAdmin(c, fiber.StatusInternalServerError, product)
	}
	return h.back(c, AdminPath)
}

// HandleAdminUpdate saves the edit form. Every form field is written.
func (h *PageHandler) HandleAdminUpdate(c *fiber.Ctx) error {
	product, err := productForm(c)
	if err != nil {
		notify.Push(c.UserContext(), notify.Failure("Error updating product", err.Error()))
		return h.back(c, AdminPath+"?edit="+c.Params("id"))
	}
	patch := models.ProductPatch{
		Name:        &product.Name,
		Price:       &product.Price,
		Category:    &product.Category,
		Type:        &product.Type,
		Sizes:       &product.Sizes,
		Image:       &product.Image,
		Description: &product.Description,
	}
	if _, err := h.products.UpdateProduct(c.UserContext(), c.Params("id"), patch); err != nil {
		return h.back(c, AdminPath+"?edit="+c.Params("id"))
	}
	return h.back(c, AdminPath)
}

// HandleAdminDelete deletes a product.
func (h *PageHandler) HandleAdminDelete(c *fiber.Ctx) error {
	if err := h.products.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		if !errors.Is(err, repositories.ErrProductNotFound) {
			zap.S().Errorf("Error deleting product %s from dashboard: %v", c.Params("id"), err)
		}
		return h.back(c, AdminPath+"?edit="+c.Params("id"))
	}
	return h.back(c, AdminPath)
}

// HandleNotFound renders the 404 page, or a JSON 404 under the API prefix.
func (h *PageHandler) HandleNotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Route %s %s not found", c.Method(), c.Path()),
		})
	}
	zap.S().Debugf("404 Error: User attempted to access non-existent route: %s", c.Path())
	return h.render(c, fiber.StatusNotFound, "not_found", "Page not found", fiber.Map{})
}
