package repositories_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ovostore/internal/models"
	"ovostore/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}))
	return db
}

func productRepositories(t *testing.T) map[string]repositories.ProductRepository {
	return map[string]repositories.ProductRepository{
		"gorm":   repositories.NewGORMProductRepository(openTestDB(t)),
		"memory": repositories.NewMemoryProductRepository(),
	}
}

func newProduct(name string, price float64) *models.Product {
	return &models.Product{
		Name:        name,
		Price:       price,
		Category:    models.CategoryWomen,
		Type:        models.TypeJacket,
		Sizes:       []string{"S", "M"},
		Image:       "https://cdn.example.com/" + name + ".jpg",
		Description: "Water resistant",
	}
}

func TestProductRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	for name, repo := range productRepositories(t) {
		t.Run(name, func(t *testing.T) {
			first := newProduct("raincoat", 80)
			first.ID = "client-chosen"
			require.NoError(t, repo.Create(ctx, first))
			assert.NotEqual(t, "client-chosen", first.ID, "the store assigns IDs")
			_, err := uuid.Parse(first.ID)
			assert.NoError(t, err)

			time.Sleep(2 * time.Millisecond)
			second := newProduct("parka", 120)
			require.NoError(t, repo.Create(ctx, second))

			all, err := repo.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, first.ID, all[0].ID, "creation order")
			assert.Equal(t, []string{"S", "M"}, all[0].Sizes)

			newName := "long raincoat"
			newSizes := []string{"XS", "S", "M", "L"}
			updated, err := repo.Update(ctx, first.ID, models.ProductPatch{Name: &newName, Sizes: &newSizes})
			require.NoError(t, err)
			assert.Equal(t, newName, updated.Name)
			assert.Equal(t, 80.0, updated.Price, "unpatched fields are untouched")

			fetched, err := repo.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, newName, fetched.Name)
			assert.Equal(t, newSizes, fetched.Sizes)
			assert.Equal(t, "Water resistant", fetched.Description)

			require.NoError(t, repo.Delete(ctx, first.ID))
			_, err = repo.GetByID(ctx, first.ID)
			assert.ErrorIs(t, err, repositories.ErrProductNotFound)

			all, err = repo.GetAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestProductRepositories_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, repo := range productRepositories(t) {
		t.Run(name, func(t *testing.T) {
			price := 1.0
			_, err := repo.Update(ctx, "missing", models.ProductPatch{Price: &price})
			assert.ErrorIs(t, err, repositories.ErrProductNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, "missing"), repositories.ErrProductNotFound)
		})
	}
}

func TestGORMUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(openTestDB(t))

	user := &models.User{Email: "admin@example.com", Password: "hash", Provider: models.ProviderPassword}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := repo.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	assert.Error(t, repo.Create(ctx, &models.User{Email: "admin@example.com"}), "email is unique")
}

func TestBoltSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := repositories.OpenBoltSessionRepository(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	defer repo.Close()

	now := time.Now()
	live := models.Session{ID: "s1", UserID: "u1", Email: "a@example.com", ExpiresAt: now.Add(time.Hour)}
	stale := models.Session{ID: "s2", UserID: "u2", Email: "b@example.com", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.Save(ctx, live))
	require.NoError(t, repo.Save(ctx, stale))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	_, err = repo.Get(ctx, "s2")
	assert.ErrorIs(t, err, repositories.ErrSessionNotFound)

	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.ErrorIs(t, repo.Delete(ctx, "s1"), repositories.ErrSessionNotFound)
}
