package domain

// SearchRequest is the inbound query against the scene index.
type SearchRequest struct {
	Query      string  `json:"query"`
	Limit      int     `json:"limit"`
	Threshold  float64 `json:"threshold"`
	VideoID    string  `json:"video_id"`
	VisualMode string  `json:"visual_mode"`
}

type SearchFilter struct {
	VideoID string
}

// Candidate is one scene in the retrieval pool. ChannelScores holds raw
// per-channel similarity in [0,1]; BaseScore is the weighted fusion of the
// non-visual (or, in recall mode, all) channels; FinalScore is what results
// are sorted on.
type Candidate struct {
	SceneID       string
	ChannelScores map[string]float64
	BaseScore     float64
	VisualScore   *float64
	FinalScore    float64
}

// CandidatePool is the bounded, ordered output of base retrieval.
type CandidatePool []Candidate

func (p CandidatePool) SceneIDs() []string {
	ids := make([]string, 0, len(p))
	for i := range p {
		ids = append(ids, p[i].SceneID)
	}
	return ids
}

// RetrievalQuery carries everything the candidate retriever needs for one
// multi-channel pass over the index.
type RetrievalQuery struct {
	Text         string
	DenseVector  []float32
	VisualVector []float32
	PoolSize     int
	Filter       SearchFilter
}

// SceneSummary is the catalog metadata shown for a matched scene.
type SceneSummary struct {
	ID           string   `json:"id"`
	VideoID      string   `json:"video_id"`
	StartSec     float64  `json:"start_sec"`
	EndSec       float64  `json:"end_sec"`
	Transcript   string   `json:"transcript"`
	Keywords     []string `json:"keywords"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

type SceneResult struct {
	SceneSummary
	Score float64 `json:"score"`
}

// SearchResult is the ranked response for one query. VisualModeUsed reports
// the mode that actually applied after routing and any degradation;
// RerankOutcome and VisualFallback carry the pipeline diagnostics behind it.
type SearchResult struct {
	Query          string        `json:"query"`
	Results        []SceneResult `json:"results"`
	Total          int           `json:"total"`
	LatencyMS      int64         `json:"latency_ms"`
	VisualModeUsed string        `json:"visual_mode_used"`
	RouteReason    string        `json:"route_reason,omitempty"`
	RerankOutcome  string        `json:"rerank_outcome,omitempty"`
	VisualFallback string        `json:"visual_fallback,omitempty"`
}
