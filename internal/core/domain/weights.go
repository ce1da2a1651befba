package domain

// Channel names for the similarity signals that contribute to a composite score.
const (
	ChannelDense   = "dense"
	ChannelKeyword = "keyword"
	ChannelVisual  = "visual"
)

// ChannelWeight is one channel's share of the composite score. Locked weights
// are pinned by the caller and excluded from automatic redistribution.
type ChannelWeight struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Locked bool    `json:"locked"`
}

// WeightVector is an ordered set of channel weights. A normalized vector sums
// to 1.0 within tolerance; locked entries still count toward the sum.
type WeightVector []ChannelWeight

func (v WeightVector) Clone() WeightVector {
	if v == nil {
		return nil
	}
	out := make(WeightVector, len(v))
	copy(out, v)
	return out
}

func (v WeightVector) Index(name string) int {
	for i := range v {
		if v[i].Name == name {
			return i
		}
	}
	return -1
}

func (v WeightVector) Value(name string) float64 {
	if i := v.Index(name); i >= 0 {
		return v[i].Value
	}
	return 0
}
