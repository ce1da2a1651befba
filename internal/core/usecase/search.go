package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/ports"
)

const defaultResultLimit = 20

// SearchConfig is the immutable per-process configuration for the scoring
// pipeline, resolved once at startup.
type SearchConfig struct {
	DefaultMode       domain.VisualMode
	MultiDenseEnabled bool
	PoolSize          int
	ClipWeight        float64
	MinScoreRange     float64
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.PoolSize <= 0 {
		out.PoolSize = 500
	}
	if out.ClipWeight <= 0 || out.ClipWeight > 1 {
		out.ClipWeight = 0.3
	}
	if out.MinScoreRange <= 0 {
		out.MinScoreRange = 0.05
	}
	if out.DefaultMode == "" {
		out.DefaultMode = domain.VisualModeAuto
	}
	return out
}

// SearchUseCase runs the multi-signal scoring pipeline: route the query,
// retrieve a base-ranked candidate pool, and optionally rerank it with one
// batched visual scoring pass. Visual-channel failures degrade the request
// to non-visual ranking; only the base retrieval path can fail it.
type SearchUseCase struct {
	weights   *WeightStore
	embedder  ports.Embedder
	retriever ports.CandidateRetriever
	visual    ports.VisualScorer
	catalog   ports.SceneCatalog
	cfg       SearchConfig
}

func NewSearchUseCase(
	weights *WeightStore,
	embedder ports.Embedder,
	retriever ports.CandidateRetriever,
	visual ports.VisualScorer,
	catalog ports.SceneCatalog,
	cfg SearchConfig,
) *SearchUseCase {
	return &SearchUseCase{
		weights:   weights,
		embedder:  embedder,
		retriever: retriever,
		visual:    visual,
		catalog:   catalog,
		cfg:       cfg.normalize(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("query is required"))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}

	weights := uc.weights.Snapshot()
	decision := uc.routeQuery(query, req.VisualMode)
	slog.Debug("visual_route",
		"query", query,
		"mode", string(decision.Mode),
		"reason", decision.Reason,
		"matched", decision.Matched,
	)

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	retrieval := domain.RetrievalQuery{
		Text:        query,
		DenseVector: queryVector,
		PoolSize:    uc.cfg.PoolSize,
		Filter:      domain.SearchFilter{VideoID: req.VideoID},
	}

	modeUsed := decision.Mode
	var rerankOutcome, visualFallback string
	if decision.Mode == domain.VisualModeRecall {
		visualVector, embErr := uc.visual.EmbedText(ctx, query)
		if embErr != nil {
			slog.Warn("visual_recall_fallback", "reason", "embed_text_failed", "error", embErr)
			modeUsed = domain.VisualModeSkip
			visualFallback = "embed_text"
		} else {
			retrieval.VisualVector = visualVector
		}
	}

	pool, err := uc.retriever.Retrieve(ctx, retrieval)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	pool = applyBaseScores(pool, weights, modeUsed)

	if modeUsed == domain.VisualModeRerank {
		pool, modeUsed, rerankOutcome, visualFallback = uc.rerankPool(ctx, query, pool)
	}

	results, err := uc.hydrate(ctx, pool, limit, req.Threshold)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResult{
		Query:          query,
		Results:        results,
		Total:          len(results),
		LatencyMS:      time.Since(start).Milliseconds(),
		VisualModeUsed: string(modeUsed),
		RouteReason:    decision.Reason,
		RerankOutcome:  rerankOutcome,
		VisualFallback: visualFallback,
	}, nil
}

// routeQuery resolves the mode for one request: a caller-forced mode wins,
// the visual channel disappears entirely when multi-dense is off, and
// otherwise the configured default feeds the intent router.
func (uc *SearchUseCase) routeQuery(query, requested string) routeDecision {
	if !uc.cfg.MultiDenseEnabled {
		return routeDecision{Mode: domain.VisualModeSkip, Reason: "visual channel disabled"}
	}
	if requested != "" {
		if mode := domain.ParseVisualMode(requested); mode.Forced() {
			return routeDecision{Mode: mode, Reason: "forced"}
		}
	}
	return routeVisualIntent(query, uc.cfg.DefaultMode)
}

// rerankPool runs the second stage: one batched visual scoring round trip
// over the pool, then the blend. Any failure leaves the base ranking in place
// and reports skip as the mode actually used. The trailing returns carry the
// rerank outcome and the fallback stage for the response diagnostics.
func (uc *SearchUseCase) rerankPool(ctx context.Context, query string, pool domain.CandidatePool) (domain.CandidatePool, domain.VisualMode, string, string) {
	if len(pool) == 0 {
		return pool, domain.VisualModeRerank, "", ""
	}

	embedding, err := uc.visual.EmbedText(ctx, query)
	if err != nil {
		slog.Warn("visual_rerank_fallback", "reason", "embed_text_failed", "error", err)
		return pool, domain.VisualModeSkip, "", "embed_text"
	}

	scores, err := uc.visual.BatchScore(ctx, embedding, pool.SceneIDs())
	if err != nil {
		slog.Warn("visual_rerank_fallback", "reason", "batch_score_failed", "error", err)
		return pool, domain.VisualModeSkip, "", "batch_score"
	}

	pool, outcome := rerankWithVisualScores(pool, scores, uc.cfg.ClipWeight, uc.cfg.MinScoreRange)
	if outcome != rerankApplied {
		slog.Info("visual_rerank_skipped", "reason", string(outcome), "pool_size", len(pool))
	}
	return pool, domain.VisualModeRerank, string(outcome), ""
}

// hydrate trims the ranked pool, applies the caller's score floor, and joins
// scene metadata. Scenes missing from the catalog are dropped silently; the
// catalog failing outright fails the request.
func (uc *SearchUseCase) hydrate(ctx context.Context, pool domain.CandidatePool, limit int, threshold float64) ([]domain.SceneResult, error) {
	ranked := make(domain.CandidatePool, 0, limit)
	for i := range pool {
		if len(ranked) == limit {
			break
		}
		if threshold > 0 && pool[i].FinalScore < threshold {
			continue
		}
		ranked = append(ranked, pool[i])
	}
	if len(ranked) == 0 {
		return []domain.SceneResult{}, nil
	}

	summaries, err := uc.catalog.GetByIDs(ctx, ranked.SceneIDs())
	if err != nil {
		return nil, fmt.Errorf("load scene summaries: %w", err)
	}
	byID := make(map[string]domain.SceneSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	results := make([]domain.SceneResult, 0, len(ranked))
	for i := range ranked {
		summary, ok := byID[ranked[i].SceneID]
		if !ok {
			continue
		}
		results = append(results, domain.SceneResult{
			SceneSummary: summary,
			Score:        ranked[i].FinalScore,
		})
	}
	return results, nil
}
