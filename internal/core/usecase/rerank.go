package usecase

import (
	"sort"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// rerankOutcome reports what the rerank pass actually did, for logging and
// the response diagnostic field.
type rerankOutcome string

const (
	rerankApplied      rerankOutcome = "applied"
	rerankSkippedFlat  rerankOutcome = "flat_visual_scores"
	rerankSkippedEmpty rerankOutcome = "no_visual_scores"
)

// rerankWithVisualScores blends batched visual scores into a base-ranked pool.
// Visual scores are min-max normalized over the batch before blending so the
// clip weight means the same thing across requests. A near-flat score spread
// (range below minScoreRange) marks the visual channel uninformative for this
// query and leaves the base ranking untouched. Candidates missing from the
// score map keep their base score.
func rerankWithVisualScores(pool domain.CandidatePool, visualScores map[string]float64, clipWeight, minScoreRange float64) (domain.CandidatePool, rerankOutcome) {
	if len(pool) == 0 || len(visualScores) == 0 {
		for i := range pool {
			pool[i].FinalScore = pool[i].BaseScore
		}
		return pool, rerankSkippedEmpty
	}

	minScore := 0.0
	maxScore := 0.0
	seen := 0
	for i := range pool {
		score, ok := visualScores[pool[i].SceneID]
		if !ok {
			continue
		}
		if seen == 0 || score < minScore {
			minScore = score
		}
		if seen == 0 || score > maxScore {
			maxScore = score
		}
		seen++
	}
	if seen == 0 {
		for i := range pool {
			pool[i].FinalScore = pool[i].BaseScore
		}
		return pool, rerankSkippedEmpty
	}

	scoreRange := maxScore - minScore
	if scoreRange < minScoreRange {
		// All candidates look equally similar visually; reshuffling a good
		// base ranking on that noise only hurts.
		for i := range pool {
			pool[i].FinalScore = pool[i].BaseScore
		}
		return pool, rerankSkippedFlat
	}

	for i := range pool {
		score, ok := visualScores[pool[i].SceneID]
		if !ok {
			pool[i].FinalScore = pool[i].BaseScore
			continue
		}
		normalized := (score - minScore) / scoreRange
		pool[i].VisualScore = &normalized
		pool[i].FinalScore = (1-clipWeight)*pool[i].BaseScore + clipWeight*normalized
	}

	// Stable: equal final scores keep their base-score rank.
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].FinalScore > pool[j].FinalScore
	})
	return pool, rerankApplied
}
