package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pixelfan/pixelfan/internal/domain"
)

// LoadStageParams reads the default stage parameterization from a YAML file:
//
//	rotation: true
//	off_axis:
//	  samples: 3
//	  deg_limit: 25
//	blur:
//	  samples: 2
//	  min_sigma: 5
//	  max_sigma: 10
//
// An empty path falls back to the built-in defaults. The result is validated
// before it is returned, so a broken file fails at startup rather than in the
// middle of a batch.
func LoadStageParams(path string) (domain.StageParams, error) {
	if path == "" {
		return domain.DefaultStageParams(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StageParams{}, fmt.Errorf("read stages file %s: %w", path, err)
	}

	var params domain.StageParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return domain.StageParams{}, fmt.Errorf("parse stages file %s: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return domain.StageParams{}, fmt.Errorf("stages file %s: %w", path, err)
	}
	return params, nil
}
