package config

import "testing"

func TestLoadIncludesScoringDefaults(t *testing.T) {
	t.Setenv("VISUAL_MODE", "")
	t.Setenv("RERANK_CANDIDATE_POOL_SIZE", "")
	t.Setenv("RERANK_CLIP_WEIGHT", "")
	t.Setenv("RERANK_MIN_SCORE_RANGE", "")
	t.Setenv("CLIP_TEXT_EMBEDDING_TIMEOUT_S", "")
	t.Setenv("CLIP_TEXT_EMBEDDING_MAX_RETRIES", "")

	cfg := Load()
	if cfg.VisualMode != "auto" {
		t.Fatalf("expected default visual mode auto, got %q", cfg.VisualMode)
	}
	if cfg.RerankCandidatePoolSize != 500 {
		t.Fatalf("expected default pool size 500, got %d", cfg.RerankCandidatePoolSize)
	}
	if cfg.RerankClipWeight != 0.3 {
		t.Fatalf("expected default clip weight 0.3, got %f", cfg.RerankClipWeight)
	}
	if cfg.RerankMinScoreRange != 0.05 {
		t.Fatalf("expected default min score range 0.05, got %f", cfg.RerankMinScoreRange)
	}
	if cfg.ClipTextEmbeddingTimeoutS != 1.5 {
		t.Fatalf("expected default embedding timeout 1.5s, got %f", cfg.ClipTextEmbeddingTimeoutS)
	}
	if cfg.ClipTextEmbeddingMaxRetries != 1 {
		t.Fatalf("expected default max retries 1, got %d", cfg.ClipTextEmbeddingMaxRetries)
	}
	if !cfg.MultiDenseEnabled {
		t.Fatalf("expected multi-dense enabled by default")
	}
}

func TestLoadParsesScoringOverrides(t *testing.T) {
	t.Setenv("VISUAL_MODE", "rerank")
	t.Setenv("MULTI_DENSE_ENABLED", "false")
	t.Setenv("WEIGHT_VISUAL", "0.35")
	t.Setenv("RERANK_CANDIDATE_POOL_SIZE", "200")
	t.Setenv("RERANK_CLIP_WEIGHT", "0.4")

	cfg := Load()
	if cfg.VisualMode != "rerank" {
		t.Fatalf("expected visual mode override, got %q", cfg.VisualMode)
	}
	if cfg.MultiDenseEnabled {
		t.Fatalf("expected multi-dense disabled")
	}
	if cfg.WeightVisual != 0.35 {
		t.Fatalf("expected visual weight 0.35, got %f", cfg.WeightVisual)
	}
	if cfg.RerankCandidatePoolSize != 200 {
		t.Fatalf("expected pool size 200, got %d", cfg.RerankCandidatePoolSize)
	}
	if cfg.RerankClipWeight != 0.4 {
		t.Fatalf("expected clip weight 0.4, got %f", cfg.RerankClipWeight)
	}
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("RERANK_CLIP_WEIGHT", "not-a-number")
	t.Setenv("RERANK_CANDIDATE_POOL_SIZE", "many")
	t.Setenv("MULTI_DENSE_ENABLED", "definitely")

	cfg := Load()
	if cfg.RerankClipWeight != 0.3 {
		t.Fatalf("expected fallback clip weight, got %f", cfg.RerankClipWeight)
	}
	if cfg.RerankCandidatePoolSize != 500 {
		t.Fatalf("expected fallback pool size, got %d", cfg.RerankCandidatePoolSize)
	}
	if !cfg.MultiDenseEnabled {
		t.Fatalf("expected fallback multi-dense true")
	}
}
