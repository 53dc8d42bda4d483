package domain

import (
	"errors"
	"fmt"
)

// StageParams selects which transform families a batch generates variants for
// and how each family is parameterized. A nil section disables that family.
// Validation happens once, before any builder is constructed, so an inverted
// range fails the batch up front instead of mid-run.
type StageParams struct {
	Rotation   bool              `json:"rotation" yaml:"rotation"`
	OffAxis    *OffAxisParams    `json:"off_axis,omitempty" yaml:"off_axis,omitempty"`
	Luminosity *LuminosityParams `json:"luminosity,omitempty" yaml:"luminosity,omitempty"`
	Blur       *BlurParams       `json:"blur,omitempty" yaml:"blur,omitempty"`
}

type OffAxisParams struct {
	Samples  int     `json:"samples" yaml:"samples"`
	DegLimit float64 `json:"deg_limit" yaml:"deg_limit"`
}

type LuminosityParams struct {
	MinLuma int `json:"min_luma" yaml:"min_luma"`
	MaxLuma int `json:"max_luma" yaml:"max_luma"`
}

type BlurParams struct {
	Samples  int     `json:"samples" yaml:"samples"`
	MinSigma float64 `json:"min_sigma" yaml:"min_sigma"`
	MaxSigma float64 `json:"max_sigma" yaml:"max_sigma"`
}

// DefaultStageParams matches the historical default run: the three fixed
// rotations plus one blur variant between sigma 5 and 10.
func DefaultStageParams() StageParams {
	return StageParams{
		Rotation: true,
		Blur: &BlurParams{
			Samples:  1,
			MinSigma: 5,
			MaxSigma: 10,
		},
	}
}

func (p StageParams) Validate() error {
	if !p.Rotation && p.OffAxis == nil && p.Luminosity == nil && p.Blur == nil {
		return errors.New("stages must enable at least one transform family")
	}
	if p.OffAxis != nil {
		if p.OffAxis.Samples <= 0 {
			return fmt.Errorf("off_axis.samples must be positive, got %d", p.OffAxis.Samples)
		}
		if p.OffAxis.DegLimit <= 0 {
			return fmt.Errorf("off_axis.deg_limit must be positive, got %g", p.OffAxis.DegLimit)
		}
	}
	if p.Luminosity != nil {
		if p.Luminosity.MinLuma < 0 {
			return fmt.Errorf("luminosity.min_luma must not be negative, got %d", p.Luminosity.MinLuma)
		}
		if p.Luminosity.MinLuma >= p.Luminosity.MaxLuma {
			return fmt.Errorf("luminosity range is inverted: min_luma=%d max_luma=%d", p.Luminosity.MinLuma, p.Luminosity.MaxLuma)
		}
	}
	if p.Blur != nil {
		if p.Blur.Samples <= 0 {
			return fmt.Errorf("blur.samples must be positive, got %d", p.Blur.Samples)
		}
		if p.Blur.MinSigma <= 0 {
			return fmt.Errorf("blur.min_sigma must be positive, got %g", p.Blur.MinSigma)
		}
		if p.Blur.MinSigma >= p.Blur.MaxSigma {
			return fmt.Errorf("blur sigma range is inverted: min=%g max=%g", p.Blur.MinSigma, p.Blur.MaxSigma)
		}
	}
	return nil
}
