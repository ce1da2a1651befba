package ports

import (
	"context"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// Embedder builds the dense text vector for a query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CandidateRetriever returns the top candidate pool from the scene index with
// raw per-channel similarity scores. The visual channel is searched only when
// the query carries a visual vector.
type CandidateRetriever interface {
	Retrieve(ctx context.Context, query domain.RetrievalQuery) (domain.CandidatePool, error)
}

// VisualScorer is the external visual-embedding service boundary: query text
// to CLIP-space vector, and one batched scoring call over stored scene
// vectors. Both calls are bounded by the client's timeout and retry budget.
type VisualScorer interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	BatchScore(ctx context.Context, embedding []float32, sceneIDs []string) (map[string]float64, error)
}

// SceneCatalog reads scene metadata for result hydration.
type SceneCatalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.SceneSummary, error)
}

// SceneReader serves single-scene lookups on the HTTP surface.
type SceneReader interface {
	GetByID(ctx context.Context, id string) (*domain.SceneSummary, error)
}

// WeightPresetSource loads named weight presets (preset name -> channel -> value).
type WeightPresetSource interface {
	Load() (map[string]map[string]float64, error)
}

// ConfigNotifier propagates explicit weight-configuration reloads across
// running instances.
type ConfigNotifier interface {
	PublishWeightsReloaded(ctx context.Context) error
	SubscribeWeightsReloaded(ctx context.Context, handler func(context.Context) error) error
}
