package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ovostore/internal/config"
	"ovostore/internal/models"
	"ovostore/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Product store types.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// stores bundles the repositories chosen by the database configuration.
type stores struct {
	products repositories.ProductRepository
	users    repositories.UserRepository
	// mongo is set when products live in MongoDB; its change stream feeds the catalog.
	mongo   *repositories.MongoProductRepository
	closers []func() error
}

// openRelational opens the SQL database holding users, and products unless they live elsewhere.
// Postgres is used for the postgres store type, SQLite for every other.
func openRelational(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Type == StorePostgres {
		db, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	}

	if !strings.HasPrefix(cfg.DSN, "file:") && !strings.Contains(cfg.DSN, ":memory:") {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	return db, nil
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Type {
	case StoreSQLite, StorePostgres, StoreMongo, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}

	db, err := openRelational(cfg)
	if err != nil {
		return nil, err
	}
	s := &stores{users: repositories.NewGORMUserRepository(db)}
	s.closers = append(s.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	migrate := []interface{}{&models.User{}}
	switch cfg.Type {
	case StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			s.close()
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		s.mongo = repositories.NewMongoProductRepository(client.Database(cfg.MongoDatabase))
		s.products = s.mongo
		s.closers = append(s.closers, func() error {
			return client.Disconnect(context.Background())
		})
		zap.S().Infof("Products stored in mongo database %s", cfg.MongoDatabase)
	case StoreMemory:
		s.products = repositories.NewMemoryProductRepository()
		zap.S().Info("Products stored in memory")
	default:
		s.products = repositories.NewGORMProductRepository(db)
		migrate = append(migrate, &models.Product{})
		zap.S().Infof("Products stored in %s", cfg.Type)
	}

	if err := db.AutoMigrate(migrate...); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return s, nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			zap.S().Warnf("Error closing store: %v", err)
		}
	}
	s.closers = nil
}
