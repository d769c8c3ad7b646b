package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/ads"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/health"
	"github.com/videostream/videostream_server/internal/metrics"
	"github.com/videostream/videostream_server/internal/monetization"
	"github.com/videostream/videostream_server/internal/seed"
	"github.com/videostream/videostream_server/internal/status"
	"github.com/videostream/videostream_server/internal/storage"
	"github.com/videostream/videostream_server/internal/stream"
	"github.com/videostream/videostream_server/internal/user"
	"github.com/videostream/videostream_server/internal/video"
	"github.com/videostream/videostream_server/internal/websocket"
)

type repositories struct {
	videos   video.Repository
	ads      ads.Repository
	earnings earnings.Repository
	views    monetization.AdViewRepository
	tips     monetization.TipRepository
}

func memoryRepositories() repositories {
	return repositories{
		videos:   video.NewMemoryRepository(),
		ads:      ads.NewMemoryRepository(),
		earnings: earnings.NewMemoryRepository(),
		views:    monetization.NewMemoryAdViewRepository(),
		tips:     monetization.NewMemoryTipRepository(),
	}
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		videos:   video.NewPostgresRepository(db),
		ads:      ads.NewPostgresRepository(db),
		earnings: earnings.NewPostgresRepository(db),
		views:    monetization.NewPostgresAdViewRepository(db),
		tips:     monetization.NewPostgresTipRepository(db),
	}
}

// App holds the wired server. Background workers are started by the caller.
type App struct {
	Handler    fasthttp.RequestHandler
	Hub        *websocket.Hub
	Cleanup    *monetization.KeyCleanupScheduler
	Aggregator *earnings.Aggregator
	Videos     video.Repository
	Ads        ads.Repository
	Users      *user.UserService
}

// NewApp wires every component. A nil db selects the in-memory repositories.
func NewApp(config *Config, backend storage.StorageBackend, db *sql.DB) (*App, error) {
	userService, err := user.NewUserService(config.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	repos := memoryRepositories()
	if db != nil {
		repos = postgresRepositories(db)
	}

	cachedVideos := video.NewCachedRepository(repos.videos, config.Streaming.CacheSize, config.Streaming.CacheTTL)

	hub := websocket.NewHub()
	aggregator := earnings.NewAggregator(repos.earnings, config.Ledger.Retry)
	aggregator.Subscribe(hub.NotifyEarnings)

	builder := stream.NewBuilder(backend, cachedVideos, config.Streaming, metrics.RecordStreamBytes)
	adService := ads.NewService(repos.ads, cachedVideos, ads.NewSelector(repos.ads, nil))
	tracker := monetization.NewTracker(repos.ads, cachedVideos, repos.views, aggregator)
	tipService := monetization.NewTipService(cachedVideos, repos.tips, aggregator)

	healthEndpoints := health.NewEndpoints(config.Server.Version)
	healthEndpoints.AddCheck("storage", backend.Health)
	if db != nil {
		healthEndpoints.AddCheck("database", db.PingContext)
	}

	endpoints := &Endpoints{
		Stream:       stream.NewEndpoints(cachedVideos, builder),
		Ads:          ads.NewEndpoints(adService),
		Monetization: monetization.NewEndpoints(tracker, tipService),
		Earnings:     earnings.NewEndpoints(aggregator),
		Health:       healthEndpoints,
		Status:       status.NewEndpoints(config.Server.Version, hub, cachedVideos.Len),
		Websocket:    websocket.NewHandler(hub, userService, config.Server.AllowedOrigins),
		Metrics:      metrics.Handler(),
	}

	return &App{
		Handler:    NewRequestHandler(config, userService, endpoints),
		Hub:        hub,
		Cleanup:    monetization.NewKeyCleanupScheduler(repos.views, config.Ledger.Cleanup),
		Aggregator: aggregator,
		Videos:     cachedVideos,
		Ads:        repos.ads,
		Users:      userService,
	}, nil
}

// Seed loads sample ads and configured videos when enabled.
func (a *App) Seed(ctx context.Context, config seed.Config, backend storage.StorageBackend) error {
	now := time.Now().UTC()
	if config.SampleData {
		if err := seed.SampleData(ctx, a.Ads, now); err != nil {
			return err
		}
	}
	if len(config.Videos) > 0 {
		created, err := seed.Videos(ctx, a.Videos, backend, config.Videos, now)
		if err != nil {
			return err
		}
		log.Info().Int("created", created).Int("configured", len(config.Videos)).Msg("Seed videos processed")
	}
	return nil
}
