package services

import (
	"context"
	"errors"
	"time"

	"ovostore/internal/events"
	"ovostore/internal/models"
	"ovostore/internal/notify"
	"ovostore/internal/repositories"

	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrEmptyPatch is returned when an update sets no field.
var ErrEmptyPatch = errors.New("no fields to update")

// Broker carries catalog changes to other running instances.
type Broker interface {
	PublishCatalogChanged(ev events.CatalogChanged) error
}

// ProductService handles catalog reads and the admin create/update/delete actions.
type ProductService struct {
	repo     repositories.ProductRepository
	bus      EventBus.Bus
	broker   Broker
	origin   string
	validate *validator.Validate
}

// NewProductService creates a new ProductService. broker may be nil; origin names this
// instance in published events.
func NewProductService(repo repositories.ProductRepository, bus EventBus.Bus, broker Broker, origin string) *ProductService {
	return &ProductService{
		repo:     repo,
		bus:      bus,
		broker:   broker,
		origin:   origin,
		validate: validator.New(),
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct validates and stores a whole new product. The store assigns the ID.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := validateStruct(s.validate, product); err != nil {
		notify.Push(ctx, notify.Failure("Error adding product", err.Error()))
		return err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		zap.S().Errorf("Error adding product: %v", err)
		notify.Push(ctx, notify.Failure("Error adding product", ""))
		return err
	}
	notify.Push(ctx, notify.Success("Product added successfully!", ""))
	s.publish(events.ProductCreated, product.ID)
	return nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if patch.Empty() {
		notify.Push(ctx, notify.Failure("Error updating product", ErrEmptyPatch.Error()))
		return nil, ErrEmptyPatch
	}
	if err := validateStruct(s.validate, patch); err != nil {
		notify.Push(ctx, notify.Failure("Error updating product", err.Error()))
		return nil, err
	}
	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		zap.S().Errorf("Error updating product %s: %v", id, err)
		notify.Push(ctx, notify.Failure("Error updating product", ""))
		return nil, err
	}
	notify.Push(ctx, notify.Success("Product updated successfully!", ""))
	s.publish(events.ProductUpdated, id)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		zap.S().Errorf("Error deleting product %s: %v", id, err)
		notify.Push(ctx, notify.Failure("Error deleting product", ""))
		return err
	}
	notify.Push(ctx, notify.Success("Product deleted successfully!", ""))
	s.publish(events.ProductDeleted, id)
	return nil
}

func (s *ProductService) publish(kind, id string) {
	ev := events.CatalogChanged{Kind: kind, ProductID: id, Origin: s.origin, At: time.Now()}
	if s.bus != nil {
		s.bus.Publish(events.TopicCatalogChanged, ev)
	}
	if s.broker == nil {
		return
	}
	if err := s.broker.PublishCatalogChanged(ev); err != nil {
		zap.S().Warnf("Warning: Failed to publish catalog %s event for product %s: %v", kind, id, err)
	}
}
