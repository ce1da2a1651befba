package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// weightEpsilon is the tolerance for the sum-to-1 invariant.
const weightEpsilon = 1e-6

func isNormalized(v domain.WeightVector) bool {
	return math.Abs(getWeightsSum(v)-1.0) <= weightEpsilon
}

func getWeightsSum(v domain.WeightVector) float64 {
	sum := 0.0
	for i := range v {
		sum += v[i].Value
	}
	return sum
}

// normalizeWeights rescales unlocked entries so the vector sums to 1.0.
// Locked entries keep their values; when locked mass alone reaches 1.0 the
// unlocked entries collapse to 0 and the locked entries are scaled down so
// the total never exceeds 1.0.
func normalizeWeights(v domain.WeightVector) domain.WeightVector {
	if len(v) == 0 {
		return domain.WeightVector{}
	}
	out := v.Clone()

	lockedSum := 0.0
	unlockedSum := 0.0
	unlocked := make([]int, 0, len(out))
	for i := range out {
		if out[i].Locked {
			lockedSum += out[i].Value
			continue
		}
		unlockedSum += out[i].Value
		unlocked = append(unlocked, i)
	}

	if lockedSum >= 1.0 {
		for _, i := range unlocked {
			out[i].Value = 0
		}
		if lockedSum > 1.0 {
			scale := 1.0 / lockedSum
			for i := range out {
				if out[i].Locked {
					out[i].Value *= scale
				}
			}
		}
		return out
	}

	remaining := 1.0 - lockedSum
	if len(unlocked) == 0 {
		return out
	}
	if unlockedSum <= 0 {
		share := remaining / float64(len(unlocked))
		for _, i := range unlocked {
			out[i].Value = share
		}
		return out
	}

	scale := remaining / unlockedSum
	for _, i := range unlocked {
		out[i].Value *= scale
	}
	return out
}

// updateWeight sets one unlocked channel to newValue and redistributes the
// delta proportionally among the remaining unlocked channels. Locked or
// unknown channels leave the vector unchanged. The result always satisfies
// isNormalized.
func updateWeight(v domain.WeightVector, name string, newValue float64) domain.WeightVector {
	out := v.Clone()
	idx := out.Index(name)
	if idx < 0 || out[idx].Locked {
		return out
	}

	lockedSum := 0.0
	for i := range out {
		if out[i].Locked {
			lockedSum += out[i].Value
		}
	}
	avail := 1.0 - lockedSum
	if avail < 0 {
		avail = 0
	}

	nv := clamp01(newValue)
	if nv > avail {
		nv = avail
	}
	delta := nv - out[idx].Value
	out[idx].Value = nv

	others := make([]int, 0, len(out))
	othersSum := 0.0
	for i := range out {
		if i == idx || out[i].Locked {
			continue
		}
		othersSum += out[i].Value
		others = append(others, i)
	}

	for _, i := range others {
		share := 1.0 / float64(len(others))
		if othersSum > 0 {
			share = out[i].Value / othersSum
		}
		out[i].Value = clamp01(out[i].Value - delta*share)
	}

	// Pin the updated channel while the clamp remainder is absorbed, so the
	// caller's value survives normalization whenever the mass allows it.
	out[idx].Locked = true
	out = normalizeWeights(out)
	if j := out.Index(name); j >= 0 {
		out[j].Locked = false
	}
	if !isNormalized(out) {
		out = normalizeWeights(out)
	}
	return out
}

// applyPreset overwrites unlocked channels named in the preset and normalizes.
// Channels absent from the preset keep their prior proportions; the preset
// itself need not sum to 1.0.
func applyPreset(v domain.WeightVector, preset map[string]float64) domain.WeightVector {
	out := v.Clone()
	for i := range out {
		if out[i].Locked {
			continue
		}
		if value, ok := preset[out[i].Name]; ok {
			out[i].Value = clamp01(value)
		}
	}
	return normalizeWeights(out)
}

// roundToStep rounds value to the nearest multiple of step. Exact multiples
// come back unchanged; step <= 0 disables rounding.
func roundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	rounded := math.Round(value/step) * step
	// Trim accumulated binary noise so multiples compare equal.
	return math.Round(rounded*1e12) / 1e12
}

func weightToPercentage(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, clamp01(value)*100)
}

// percentageToWeight parses a display percentage ("35", "35%", "35.5 %") back
// into a weight, clamping out-of-range input instead of failing.
func percentageToWeight(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if s == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse percentage %q: %w", raw, err)
	}
	return clamp01(parsed / 100), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
