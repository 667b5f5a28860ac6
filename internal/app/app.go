// Package app builds the shared runtime graph (cache, fetcher, upstream
// clients and season service) that every binary starts from.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/pitr77/extraliga/internal/cache"
	"github.com/pitr77/extraliga/internal/config"
	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/nhl"
	"github.com/pitr77/extraliga/internal/season"
	"github.com/pitr77/extraliga/internal/sportradar"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Fetcher *fetch.Fetcher
	NHL     *nhl.Client
	Season  *season.Service
	// Redis is nil when no REDIS_ADDR is configured.
	Redis *cache.Cache

	rdb *redis.Client
}

// Options adjust the wiring per binary.
type Options struct {
	// HTTPClient is used for every upstream call; nil means a default client.
	HTTPClient *http.Client
	// Warm makes every fetch go upstream and rewrite the external cache.
	Warm bool
}

// New wires the components described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	var store fetch.Store
	if cfg.Cache.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.RedisAddr, err)
		}
		a.Redis = cache.New(a.rdb)
		store = a.Redis
		slog.Info("external cache enabled", "redis_addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}

	c := fetch.NewCache(cfg.Cache.TTL, store)
	if opts.Warm {
		c = fetch.NewWarmingCache(cfg.Cache.TTL, store)
	}
	a.Fetcher = fetch.New(opts.HTTPClient, cfg.FetchOptions(), c)
	a.NHL = nhl.NewClient(a.Fetcher)

	var provider season.Provider
	switch cfg.Season.Provider {
	case config.ProviderSportradar:
		provider = season.NewSportradarProvider(
			sportradar.NewClient(a.Fetcher, cfg.Season.SportradarAPIKey, cfg.Season.SportradarSeasonID))
	default:
		provider = season.NewNHLProvider(a.Fetcher, cfg.SeasonStart())
	}
	a.Season = season.NewService(provider, season.Options{
		Start:      cfg.SeasonStart(),
		Rating:     cfg.Rating,
		Martingale: cfg.MartingaleSettings(),
		Policy:     cfg.IdentityPolicy(),
	})
	slog.Info("season service ready",
		"provider", cfg.Season.Provider,
		"season_id", provider.SeasonID(),
		"identity_policy", cfg.IdentityPolicy().String(),
	)
	return a, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
