// Package app wires the storefront together: stores, services, background jobs and
// the Fiber application.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ovostore/internal/cart"
	"ovostore/internal/catalog"
	"ovostore/internal/config"
	"ovostore/internal/events"
	"ovostore/internal/handlers"
	"ovostore/internal/middleware"
	"ovostore/internal/repositories"
	"ovostore/internal/services"
	"ovostore/internal/views"
	"ovostore/pkg/rabbitmq"

	"github.com/asaskevich/EventBus"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// App is a running storefront instance.
type App struct {
	Fiber   *fiber.App
	Catalog *catalog.Live
	Carts   *cart.Registry

	cfg        *config.Config
	instanceID string
	feed       *catalog.Feed
	stores     *stores
	sessions   *repositories.BoltSessionRepository
	mq         *rabbitmq.Client
	cron       *cron.Cron
	cancel     context.CancelFunc
}

// New builds the application from cfg and starts its background work: the catalog
// subscription, the change watchers and the cron jobs.
func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:        cfg,
		instanceID: uuid.New().String(),
		Carts:      cart.NewRegistry(),
		Catalog:    catalog.NewLive(),
		cancel:     cancel,
	}
	if err := a.init(ctx); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	// --- Stores ---
	s, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.stores = s
	if cfg.Database.Seed {
		if err := seedProducts(ctx, s.products); err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
	}

	a.sessions, err = repositories.OpenBoltSessionRepository(cfg.Session.StorePath)
	if err != nil {
		return err
	}

	// --- Events ---
	bus := EventBus.New()
	feed := catalog.NewFeed(s.products)
	a.feed = feed
	if err := bus.Subscribe(events.TopicCatalogChanged, feed.OnCatalogChanged); err != nil {
		return fmt.Errorf("failed to subscribe catalog feed: %w", err)
	}

	var broker services.Broker
	if cfg.RabbitMQ.URL != "" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		broker = a.mq
		err = a.mq.ConsumeCatalogEvents(func(ev events.CatalogChanged) error {
			if ev.Origin == a.instanceID {
				return nil
			}
			zap.S().Debugf("Catalog %s event from instance %s", ev.Kind, ev.Origin)
			bus.Publish(events.TopicCatalogChanged, ev)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
		}
	}

	if s.mongo != nil {
		go func() {
			err := s.mongo.Watch(ctx, func(ev events.CatalogChanged) {
				bus.Publish(events.TopicCatalogChanged, ev)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				zap.S().Errorf("Product change stream stopped: %v", err)
			}
		}()
	}

	a.Catalog.Start(ctx, feed)

	// --- Services ---
	var federated services.FederatedIdentityProvider
	if cfg.Google.Enabled() {
		federated = services.NewGoogleIdentityProvider(cfg.Google, s.users)
	}
	authService := services.NewAuthService(
		services.NewPasswordIdentityProvider(s.users),
		federated,
		a.sessions,
		bus,
		services.AuthOptions{
			JWTSecret:   cfg.JWT.Secret,
			TokenTTL:    cfg.JWT.TTL,
			AdminEmails: cfg.Admin.Emails,
		},
	)
	if err := authService.OnStateChange(func(state events.AuthState) {
		zap.S().Infow("Auth state changed", "signed_in", state.SignedIn, "email", state.Email)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to auth state: %w", err)
	}
	productService := services.NewProductService(s.products, bus, broker, a.instanceID)
	checkoutService := services.NewCheckoutService(services.CheckoutOptions{
		StoreName:     cfg.App.StoreName,
		MessagingHost: cfg.Checkout.MessagingHost,
		StorePhone:    cfg.Checkout.StorePhone,
		Currency:      cfg.Checkout.Currency,
	})

	// --- Jobs ---
	if err := a.scheduleJobs(authService); err != nil {
		return err
	}

	// --- Fiber ---
	a.Fiber = fiber.New(fiber.Config{
		AppName:               cfg.App.StoreName,
		Immutable:             true,
		Views:                 views.New(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(logger.New())
	a.Fiber.Use(middleware.Visitor(session.New(session.Config{
		Expiration:     cfg.Cart.IdleTTL,
		KeyLookup:      "cookie:ovo_session",
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})))
	a.Fiber.Use(middleware.OptionalAuth(authService))

	a.Fiber.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"time":      time.Now().Format(time.RFC3339),
			"catalog":   catalogStatus(a.Catalog),
			"products":  len(a.Catalog.Products()),
			"listeners": a.feed.Listeners(),
			"rabbitmq":  a.mq != nil,
		})
	})

	apiV1 := a.Fiber.Group("/api/v1")
	handlers.NewProductHandler(ctx, a.Catalog, feed).RegisterRoutes(apiV1)
	handlers.NewCartHandler(a.Carts, a.Catalog).RegisterRoutes(apiV1)
	handlers.NewCheckoutHandler(checkoutService, a.Carts).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(authService, handlers.AdminPath, handlers.LoginPath).RegisterRoutes(apiV1)
	handlers.NewAdminHandler(productService, authService).RegisterRoutes(apiV1)

	pages := handlers.NewPageHandler(a.Catalog, a.Carts, productService, authService, checkoutService, handlers.PageOptions{
		StoreName:     cfg.App.StoreName,
		Currency:      cfg.Checkout.Currency,
		GoogleEnabled: cfg.Google.Enabled(),
	})
	pages.RegisterRoutes(a.Fiber)
	a.Fiber.Use(pages.HandleNotFound)

	return nil
}

func catalogStatus(live *catalog.Live) string {
	switch {
	case live.Loading():
		return "loading"
	case live.Err() != nil:
		return "stale"
	default:
		return "live"
	}
}

func (a *App) scheduleJobs(authService *services.AuthService) error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(a.cfg.Session.PurgeSchedule, func() {
		purged, err := authService.PurgeExpiredSessions(context.Background())
		if err != nil {
			zap.S().Errorf("Error purging expired sessions: %v", err)
			return
		}
		if purged > 0 {
			zap.S().Infof("Purged %d expired sessions", purged)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid session purge schedule %q: %w", a.cfg.Session.PurgeSchedule, err)
	}
	_, err = a.cron.AddFunc(a.cfg.Cart.EvictSchedule, func() {
		if evicted := a.Carts.EvictIdle(a.cfg.Cart.IdleTTL); evicted > 0 {
			zap.S().Infof("Evicted %d idle carts", evicted)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cart eviction schedule %q: %w", a.cfg.Cart.EvictSchedule, err)
	}
	a.cron.Start()
	return nil
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *App) Listen() error {
	zap.S().Infof("Starting server on port %s", a.cfg.App.Port)
	return a.Fiber.Listen(a.cfg.App.Port)
}

// Shutdown stops the server, the background work and closes every store. Open
// product streams are ended first so the server can drain.
func (a *App) Shutdown(timeout time.Duration) error {
	a.cancel()
	var err error
	if a.Fiber != nil {
		err = a.Fiber.ShutdownWithTimeout(timeout)
	}
	a.release()
	return err
}

func (a *App) release() {
	a.cancel()
	a.Catalog.Wait()
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			zap.S().Warnf("Error closing RabbitMQ client: %v", err)
		}
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			zap.S().Warnf("Error closing session store: %v", err)
		}
	}
	if a.stores != nil {
		a.stores.close()
	}
}
