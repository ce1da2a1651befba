package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PresetFile loads named weight presets from a YAML file, for example:
//
//	dialogue:
//	  dense: 0.6
//	  keyword: 0.4
//	  visual: 0.0
//
// An empty path serves the built-in presets so the admin surface works out
// of the box.
type PresetFile struct {
	Path string
}

func NewPresetFile(path string) *PresetFile {
	return &PresetFile{Path: path}
}

func (p *PresetFile) Load() (map[string]map[string]float64, error) {
	if p.Path == "" {
		return defaultPresets(), nil
	}

	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	presets := map[string]map[string]float64{}
	if err := yaml.Unmarshal(raw, &presets); err != nil {
		return nil, fmt.Errorf("parse presets yaml: %w", err)
	}
	if len(presets) == 0 {
		return defaultPresets(), nil
	}
	return presets, nil
}

func defaultPresets() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"balanced": {"dense": 0.5, "keyword": 0.3, "visual": 0.2},
		"dialogue": {"dense": 0.6, "keyword": 0.4, "visual": 0.0},
		"visual":   {"dense": 0.3, "keyword": 0.2, "visual": 0.5},
	}
}
