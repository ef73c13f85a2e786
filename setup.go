package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-backend/auth"
	"github.com/rpupo63/blog-backend/cache"
	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/database"
	"github.com/rpupo63/blog-backend/errs"
)

func openDatabase(ctx context.Context, cfg map[string]string) (*gorm.DB, database.Database, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, database.Database{}, err
	}

	store := database.New(db)
	if err := store.Ping(ctx); err != nil {
		closeDatabase(db)
		return nil, database.Database{}, errs.NewServiceUnavailableError("database", err)
	}
	return db, store, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database")
	}
}

// newRedisClient connects to REDIS_URL. It returns nil when no URL is set.
func newRedisClient(ctx context.Context, cfg map[string]string) (*redis.Client, error) {
	url := config.GetString(cfg, "REDIS_URL", "")
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.NewConfigError("REDIS_URL", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.NewServiceUnavailableError("redis", err)
	}
	return client, nil
}

// buildCache shares query results through redis when a client is given and
// keeps them in process otherwise.
func buildCache(cfg map[string]string, client *redis.Client) cache.Cache {
	ttl := config.GetSeconds(cfg, "CACHE_TTL_SECONDS", 5*time.Minute)
	if client != nil {
		log.Info().Dur("ttl", ttl).Msg("using redis cache")
		return cache.NewRedis(client, config.GetString(cfg, "REDIS_PREFIX", "blog:"), ttl)
	}
	log.Info().Dur("ttl", ttl).Msg("using in-memory cache")
	return cache.NewMemory(ttl)
}

func buildRevocations(client *redis.Client) auth.RevocationStore {
	if client != nil {
		return auth.NewRedisRevocations(client)
	}
	return auth.NewMemoryRevocations()
}

func buildProvider(cfg map[string]string, creds auth.CredentialFinder, revocations auth.RevocationStore) (*auth.LocalProvider, error) {
	secret := config.GetString(cfg, "AUTH_TOKEN_SECRET", "")
	if secret == "" {
		return nil, errs.NewEnvironmentVariableError("AUTH_TOKEN_SECRET")
	}
	ttl := time.Duration(config.GetInt(cfg, "AUTH_TOKEN_TTL_MINUTES", 720)) * time.Minute

	provider, err := auth.NewLocalProvider(creds, secret, ttl, revocations)
	if err != nil {
		return nil, fmt.Errorf("auth provider: %w", err)
	}
	return provider, nil
}
