package storage

import (
	"context"
	"fmt"

	"fe-v2/internal/config"
	"fe-v2/pkg/logger"
	"fe-v2/pkg/redis"
)

// New builds the backend selected by cfg.StorageBackend
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error) {
	log = log.WithField("storage_backend", cfg.StorageBackend)

	switch cfg.StorageBackend {
	case config.StorageMemory, "":
		log.Warn("Using in-memory session storage, the session will not survive a restart")
		return NewMemoryStore(), nil

	case config.StorageRedis:
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			return nil, err
		}
		log.WithField("key_prefix", client.KeyBuilder.GetPrefix()).Info("Redis session storage ready")
		return NewRedisStore(client), nil

	case config.StorageSQLite:
		store, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("SQLite session storage ready")
		return store, nil

	case config.StoragePostgres:
		store, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("Postgres session storage ready")
		return store, nil

	case config.StorageFirestore:
		store, err := NewFirestoreStore(ctx, FirestoreConfig{
			ProjectID:       cfg.FirestoreProjectID,
			Database:        cfg.FirestoreDatabase,
			Collection:      cfg.FirestoreCollection,
			CredentialsFile: cfg.FirestoreCredsFile,
		})
		if err != nil {
			return nil, err
		}
		log.WithField("collection", cfg.FirestoreCollection).Info("Firestore session storage ready")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
