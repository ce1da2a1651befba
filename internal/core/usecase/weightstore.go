package usecase

import (
	"fmt"
	"sync"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// WeightStore holds the process-wide default weight vector. Requests read
// copies; mutation happens only through the admin surface and explicit
// configuration reloads, and every mutator leaves the vector normalized.
type WeightStore struct {
	mu      sync.RWMutex
	vector  domain.WeightVector
	presets map[string]map[string]float64
}

// NewWeightStore normalizes and installs the default vector. An empty vector
// is a misconfiguration that would silently zero out search quality, so it
// fails fast instead of defaulting.
func NewWeightStore(vector domain.WeightVector, presets map[string]map[string]float64) (*WeightStore, error) {
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "weight store", fmt.Errorf("weight vector has no channels"))
	}
	if presets == nil {
		presets = map[string]map[string]float64{}
	}
	return &WeightStore{
		vector:  normalizeWeights(vector),
		presets: presets,
	}, nil
}

// Snapshot returns a request-local copy of the current vector.
func (s *WeightStore) Snapshot() domain.WeightVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vector.Clone()
}

// UpdateChannel sets one channel and redistributes the difference. Unknown
// channels are rejected; locked channels are left untouched by design, so the
// update reports success with the unchanged vector.
func (s *WeightStore) UpdateChannel(name string, value float64) (domain.WeightVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vector.Index(name) < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update weight", fmt.Errorf("unknown channel %q", name))
	}
	s.vector = updateWeight(s.vector, name, value)
	return s.vector.Clone(), nil
}

// ApplyPreset overwrites unlocked channels from a named preset.
func (s *WeightStore) ApplyPreset(name string) (domain.WeightVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	preset, ok := s.presets[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply preset", fmt.Errorf("unknown preset %q", name))
	}
	s.vector = applyPreset(s.vector, preset)
	return s.vector.Clone(), nil
}

// PresetNames lists the available presets.
func (s *WeightStore) PresetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	return names
}

// ReplacePresets swaps the preset table, used by configuration reloads.
func (s *WeightStore) ReplacePresets(presets map[string]map[string]float64) {
	if presets == nil {
		presets = map[string]map[string]float64{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = presets
}

// DisplayWeights renders the vector for the admin surface, with percentage
// strings rounded to the display step.
func (s *WeightStore) DisplayWeights(step float64, decimals int) []DisplayWeight {
	vector := s.Snapshot()
	out := make([]DisplayWeight, 0, len(vector))
	for i := range vector {
		out = append(out, DisplayWeight{
			Name:    vector[i].Name,
			Value:   vector[i].Value,
			Locked:  vector[i].Locked,
			Percent: weightToPercentage(roundToStep(vector[i].Value, step), decimals),
		})
	}
	return out
}

type DisplayWeight struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Locked  bool    `json:"locked"`
	Percent string  `json:"percent"`
}

// ParsePercent converts a display percentage back into a weight value.
func ParsePercent(raw string) (float64, error) {
	value, err := percentageToWeight(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse percent", err)
	}
	return value, nil
}
