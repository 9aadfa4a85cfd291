package fx

import (
	"context"
	"database/sql"

	"showcase-tracker/internal/api"
	"showcase-tracker/internal/config"
	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/database"
	"showcase-tracker/internal/effect"
	"showcase-tracker/internal/logger"
	"showcase-tracker/internal/lookup"
	"showcase-tracker/internal/messages"
	"showcase-tracker/internal/normalize"
	"showcase-tracker/internal/repository"
	"showcase-tracker/internal/score"
	"showcase-tracker/internal/server"
	"showcase-tracker/internal/service"
	"showcase-tracker/internal/store"
	"showcase-tracker/internal/telemetry"
	"showcase-tracker/internal/worker"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

func ProvideTables(cfg *config.Config, logger zerolog.Logger) (*lookup.Tables, error) {
	tables, err := lookup.Load(cfg.LookupDir, cfg.GameVersions...)
	if err != nil {
		return nil, err
	}
	logger.Info().Strs("versions", tables.Versions()).Msg("lookup tables loaded")
	return tables, nil
}

// ProvideNormalizer resolves weapon effects through MiniGG, then Ambr.
func ProvideNormalizer(tables *lookup.Tables, client *api.Client, logger zerolog.Logger) *normalize.Normalizer {
	effects := effect.NewResolver(logger, client.MiniGG(), client.Ambr())
	return normalize.New(tables, effects, logger)
}

func ProvideStore(cfg *config.Config) *store.Store {
	return store.New(cfg.DataDir)
}

func ProvideScorer() score.Scorer {
	return score.NewWeightScorer(nil, nil)
}

func ProvidePool(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) *worker.Pool {
	pool := worker.NewPool(logger, worker.Options{
		Workers:     cfg.WorkerCount,
		QueueSize:   cfg.WorkerQueueSize,
		TaskTimeout: constants.BackgroundTaskTimeout,
		OnFailure: func(t worker.Task, err error) {
			logger.Error().Err(err).Str("task", t.Name).Str("uid", t.UID).Msg("background task failed")
		},
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Interface("stats", pool.Stats()).Msg("draining worker pool")
			return pool.Close(ctx)
		},
	})
	return pool
}

func ProvideMessages(cfg *config.Config) (*messages.Messages, error) {
	return messages.New(cfg.Language)
}

func ProvideTracerProvider(lc fx.Lifecycle, cfg *config.Config) (trace.TracerProvider, error) {
	tp, shutdown, err := telemetry.Setup(context.Background(), cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return tp, nil
}

type ingestParams struct {
	fx.In

	Config     *config.Config
	Normalizer *normalize.Normalizer
	Store      *store.Store
	Scorer     score.Scorer
	Pool       *worker.Pool
	Messages   *messages.Messages
	Players    *repository.PlayerRepository
	Refreshes  *repository.RefreshRepository
	Client     *api.Client
	Tracer     trace.TracerProvider
	Logger     zerolog.Logger
}

func ProvideIngestService(p ingestParams) *service.IngestService {
	return service.NewIngestService(service.IngestOptions{
		Normalizer: p.Normalizer,
		Store:      p.Store,
		Scorer:     p.Scorer,
		Queue:      p.Pool,
		Messages:   p.Messages,
		Players:    p.Players,
		Refreshes:  p.Refreshes,
		Ranks:      p.Client,
		EnableRank: p.Config.EnableAkasha,
		Provider:   p.Client.Provider(),
		Tracer:     p.Tracer,
	}, p.Logger)
}

func ProvideRefreshService(
	ingest *service.IngestService,
	client *api.Client,
	players *repository.PlayerRepository,
	refreshes *repository.RefreshRepository,
	msgs *messages.Messages,
	logger zerolog.Logger,
) *service.RefreshService {
	return service.NewRefreshService(ingest, client, players, refreshes, msgs, logger)
}

func ProvideTrackerServer(
	ingest *service.IngestService,
	refresh *service.RefreshService,
	players *repository.PlayerRepository,
	refreshes *repository.RefreshRepository,
	pool *worker.Pool,
	msgs *messages.Messages,
	logger zerolog.Logger,
) *server.TrackerServer {
	return server.NewTrackerServer(ingest, refresh, players, refreshes, pool, msgs, logger)
}

func closeDatabase(lc fx.Lifecycle, db *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
				return err
			}
			return nil
		},
	})
}

// Core is everything but the HTTP server; the CLI runs on it.
var Core = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Invoke(closeDatabase),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewRefreshRepository),
	// api client
	fx.Provide(api.NewClient),
	// ingestion
	fx.Provide(ProvideTables),
	fx.Provide(ProvideNormalizer),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideScorer),
	fx.Provide(ProvidePool),
	fx.Provide(ProvideMessages),
	fx.Provide(ProvideTracerProvider),
	// svc
	fx.Provide(ProvideIngestService),
	fx.Provide(ProvideRefreshService),
)

var Module = fx.Options(
	Core,
	// server
	fx.Provide(ProvideTrackerServer),
)
