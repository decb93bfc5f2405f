package app

import (
	"context"

	"ovostore/internal/models"
	"ovostore/internal/repositories"

	"go.uber.org/zap"
)

// seedProducts fills an empty catalog with a few sample products.
func seedProducts(ctx context.Context, repo repositories.ProductRepository) error {
	existing, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	products := []models.Product{
		{Name: "Classic Cotton Tee", Image: "https://images.ovostore.example/classic-cotton-tee.jpg", Price: 19.99, Category: models.CategoryMen, Type: models.TypeTShirt, Sizes: []string{"S", "M", "L", "XL"}, Description: "Soft everyday cotton t-shirt."},
		{Name: "Slim Chinos", Image: "https://images.ovostore.example/slim-chinos.jpg", Price: 39.5, Category: models.CategoryMen, Type: models.TypePants, Sizes: []string{"M", "L", "XL"}, Description: "Stretch chinos with a slim fit."},
		{Name: "Denim Jacket", Image: "https://images.ovostore.example/denim-jacket.jpg", Price: 59, Category: models.CategoryWomen, Type: models.TypeJacket, Sizes: []string{"XS", "S", "M"}, Description: "Washed denim jacket."},
		{Name: "Weekend Set", Image: "https://images.ovostore.example/weekend-set.jpg", Price: 45, Category: models.CategoryWomen, Type: models.TypeOutfit, Sizes: []string{"S", "M", "L"}, Description: "Matching top and trousers."},
		{Name: "Kids Graphic Tee", Image: "https://images.ovostore.example/kids-graphic-tee.jpg", Price: 12, Category: models.CategoryKids, Type: models.TypeTShirt, Sizes: []string{"XS", "S"}, Description: "Printed tee for kids."},
	}
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			zap.S().Errorf("Error seeding product %s: %v", products[i].Name, err)
			return err
		}
		zap.S().Debugf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
	}
	zap.S().Infof("Seeded %d products", len(products))
	return nil
}
