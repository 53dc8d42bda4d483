package stage

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
)

// OffAxisBuilder yields Samples free rotations, each by an angle drawn
// uniformly from [-DegLimit, +DegLimit) degrees. Keeping the limit well under
// 90 and combining with RotationBuilder covers the larger turns; in practice
// values under 30 degrees read best.
type OffAxisBuilder struct {
	Samples  int
	DegLimit float64
}

func (OffAxisBuilder) ShouldExecute(tags domain.Tags) bool {
	return !tags.Has(domain.TagOffAxis)
}

func (b OffAxisBuilder) Variations() int {
	return b.Samples
}

func (b OffAxisBuilder) Build(rng *rand.Rand) []Stage {
	radLimit := b.DegLimit * math.Pi / 180
	stages := make([]Stage, b.Samples)
	for i := range stages {
		stages[i] = offAxisStage{radians: -radLimit + rng.Float64()*2*radLimit}
	}
	return stages
}

type offAxisStage struct {
	radians float64
}

func (s offAxisStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	return imaging.RotateAbout(img, s.radians), domain.NewTags(domain.TagOffAxis)
}

func (s offAxisStage) Name() string {
	return fmt.Sprintf("rot_%.2f_deg", s.radians*180/math.Pi)
}
