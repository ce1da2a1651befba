package usecase

import (
	"sort"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// fuseChannelScores combines one candidate's raw channel scores into a
// composite using the active weights. Channels missing a score contribute 0.
// Outside recall mode the visual weight is forced to 0: the visual signal is
// only added back by the reranker in blend form, never double-counted here.
func fuseChannelScores(channelScores map[string]float64, weights domain.WeightVector, mode domain.VisualMode) float64 {
	total := 0.0
	for i := range weights {
		w := weights[i].Value
		if weights[i].Name == domain.ChannelVisual && mode != domain.VisualModeRecall {
			w = 0
		}
		if w == 0 {
			continue
		}
		total += w * channelScores[weights[i].Name]
	}
	return total
}

// applyBaseScores fuses every candidate in the pool and orders it by base
// score descending. Ties keep the retriever's order; equal scores fall back
// to scene id so the base ranking is deterministic across requests.
func applyBaseScores(pool domain.CandidatePool, weights domain.WeightVector, mode domain.VisualMode) domain.CandidatePool {
	for i := range pool {
		pool[i].BaseScore = fuseChannelScores(pool[i].ChannelScores, weights, mode)
		pool[i].FinalScore = pool[i].BaseScore
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].BaseScore != pool[j].BaseScore {
			return pool[i].BaseScore > pool[j].BaseScore
		}
		return pool[i].SceneID < pool[j].SceneID
	})
	return pool
}
