package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tourguide/tourguide-api/internal/platform/cache"
	"github.com/tourguide/tourguide-api/internal/platform/db"
	"github.com/tourguide/tourguide-api/internal/platform/docstore"
	"github.com/tourguide/tourguide-api/internal/users"
)

// CloseFunc releases a store handle.
type CloseFunc func(context.Context) error

// OpenAccountStore connects the account repository selected by STORE_DRIVER.
// The returned CloseFunc must be called on shutdown.
func OpenAccountStore(ctx context.Context, cfg *Config, logger *slog.Logger) (users.Repository, CloseFunc, error) {
	switch cfg.StoreDriver {
	case StoreMongo:
		client, err := docstore.New(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("pinged mongo deployment", slog.String("database", cfg.MongoDatabase))
		repo := users.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, client.Disconnect, nil

	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.PGMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("postgres migrations applied")
		}
		return users.NewPGRepository(pool), func(context.Context) error {
			pool.Close()
			return nil
		}, nil

	case StoreRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return users.NewRedisRepository(client, ""), func(context.Context) error {
			return client.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
}
