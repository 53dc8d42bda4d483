// Package stage defines the transform-stage contracts the pipeline engine
// schedules, plus the concrete builders for each transform family.
package stage

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/pixelfan/pixelfan/internal/domain"
)

// Stage is one concrete, already-parameterized transform. Apply is pure: it
// returns a new image plus the lineage tags describing what was done, leaving
// its input untouched.
type Stage interface {
	Apply(img *image.RGBA) (*image.RGBA, domain.Tags)
	Name() string
}

// Builder manufactures the variant stages for one transform family.
//
// Build must consume the rng in a fixed order and return exactly Variations()
// stages: invoking it again with an identically seeded rng yields the same
// parameterization bit for bit. The engine leans on that to rematerialize a
// chosen variant from nothing but an image seed and a digit-vector.
type Builder interface {
	// ShouldExecute reports whether this family applies to an image with the
	// given lineage tags. It is checked once per image against the original
	// input tags, not per combination.
	ShouldExecute(tags domain.Tags) bool

	Variations() int

	Build(rng *rand.Rand) []Stage
}

// FromParams assembles the builder registry for a validated parameter set, in
// the fixed registration order the engine and output names depend on:
// rotation, off-axis, luminosity, blur.
func FromParams(p domain.StageParams) ([]Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stage params: %w", err)
	}

	var builders []Builder
	if p.Rotation {
		builders = append(builders, RotationBuilder{})
	}
	if p.OffAxis != nil {
		builders = append(builders, OffAxisBuilder{
			Samples:  p.OffAxis.Samples,
			DegLimit: p.OffAxis.DegLimit,
		})
	}
	if p.Luminosity != nil {
		builders = append(builders, LuminosityBuilder{
			MinLuma: p.Luminosity.MinLuma,
			MaxLuma: p.Luminosity.MaxLuma,
		})
	}
	if p.Blur != nil {
		builders = append(builders, BlurBuilder{
			Samples:  p.Blur.Samples,
			MinSigma: p.Blur.MinSigma,
			MaxSigma: p.Blur.MaxSigma,
		})
	}
	return builders, nil
}
