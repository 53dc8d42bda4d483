package stage

import (
	"image"
	"math/rand"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
)

// RotationBuilder yields the three exif-style orientations: 90 degrees
// clockwise, 90 degrees counterclockwise, and upside-down. No randomness is
// consumed; the variant order is fixed.
type RotationBuilder struct{}

func (RotationBuilder) ShouldExecute(tags domain.Tags) bool {
	return !tags.HasAny(domain.TagRotatedCW, domain.TagRotatedCCW, domain.TagUpsideDown)
}

func (RotationBuilder) Variations() int {
	return 3
}

func (RotationBuilder) Build(_ *rand.Rand) []Stage {
	return []Stage{clockwiseStage{}, counterclockwiseStage{}, upsideDownStage{}}
}

type clockwiseStage struct{}

func (clockwiseStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	return imaging.Rotate90(img), domain.NewTags(domain.TagRotatedCW)
}

func (clockwiseStage) Name() string {
	return "clowise"
}

type counterclockwiseStage struct{}

func (counterclockwiseStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	return imaging.Rotate270(img), domain.NewTags(domain.TagRotatedCCW)
}

func (counterclockwiseStage) Name() string {
	return "couwise"
}

type upsideDownStage struct{}

func (upsideDownStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	return imaging.Rotate180(img), domain.NewTags(domain.TagUpsideDown)
}

func (upsideDownStage) Name() string {
	return "up_down"
}
