package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jangwonlee-rptly/heimdex-search/internal/config"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/ports"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/usecase"
	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/embedding/ollama"
	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/index/qdrant"
	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/queue/nats"
	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/repository/postgres"
	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/visual/clip"
	"github.com/jangwonlee-rptly/heimdex-search/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Weights  *usecase.WeightStore
	Searcher ports.SceneSearcher
	Scenes   ports.SceneReader
	Notifier ports.ConfigNotifier
	Metrics  *metrics.HTTPServerMetrics

	presets *config.PresetFile
	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewSceneRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	notifier, err := nats.New(cfg.NATSURL, cfg.NATSReloadSubject)
	if err != nil {
		return nil, fmt.Errorf("init config notifier: %w", err)
	}

	presets := config.NewPresetFile(cfg.WeightPresetsPath)
	presetTable, err := presets.Load()
	if err != nil {
		return nil, fmt.Errorf("load weight presets: %w", err)
	}

	weights, err := usecase.NewWeightStore(defaultWeightVector(cfg), presetTable)
	if err != nil {
		return nil, fmt.Errorf("init weight store: %w", err)
	}

	embedder := ollama.New(cfg.EmbedderURL, cfg.EmbedderModel)
	retriever := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	visual := clip.New(cfg.ClipServiceURL, cfg.ClipHMACSecret, clip.Options{
		Timeout:    time.Duration(cfg.ClipTextEmbeddingTimeoutS * float64(time.Second)),
		MaxRetries: cfg.ClipTextEmbeddingMaxRetries,
	})

	searcher := usecase.NewSearchUseCase(weights, embedder, retriever, visual, catalog, usecase.SearchConfig{
		DefaultMode:       domain.ParseVisualMode(cfg.VisualMode),
		MultiDenseEnabled: cfg.MultiDenseEnabled,
		PoolSize:          cfg.RerankCandidatePoolSize,
		ClipWeight:        cfg.RerankClipWeight,
		MinScoreRange:     cfg.RerankMinScoreRange,
	})

	return &App{
		Config:   cfg,
		Weights:  weights,
		Searcher: searcher,
		Scenes:   catalog,
		Notifier: notifier,
		Metrics:  metrics.NewHTTPServerMetrics("api"),
		presets:  presets,

		closeFn: func() {
			notifier.Close()
			_ = db.Close()
		},
	}, nil
}

// ListenWeightReloads blocks on the reload subject until ctx is cancelled,
// refreshing the preset table whenever another instance announces a change.
func (a *App) ListenWeightReloads(ctx context.Context) error {
	return a.Notifier.SubscribeWeightsReloaded(ctx, func(context.Context) error {
		table, err := a.presets.Load()
		if err != nil {
			return fmt.Errorf("reload weight presets: %w", err)
		}
		a.Weights.ReplacePresets(table)
		a.Metrics.RecordWeightsReloaded("api")
		slog.Info("weight presets reloaded", "presets", len(table))
		return nil
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// defaultWeightVector builds the startup vector from configuration. With the
// visual channel disabled the vector holds only the text channels, so
// normalization spreads the visual share across them.
func defaultWeightVector(cfg config.Config) domain.WeightVector {
	vector := domain.WeightVector{
		{Name: domain.ChannelDense, Value: cfg.WeightDense},
		{Name: domain.ChannelKeyword, Value: cfg.WeightKeyword},
	}
	if cfg.MultiDenseEnabled {
		vector = append(vector, domain.ChannelWeight{Name: domain.ChannelVisual, Value: cfg.WeightVisual})
	}
	return vector
}
