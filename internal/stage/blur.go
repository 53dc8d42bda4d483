package stage

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
)

// BlurBuilder yields Samples gaussian blurs with a kernel standard deviation
// drawn uniformly from [MinSigma, MaxSigma) per sample.
type BlurBuilder struct {
	Samples  int
	MinSigma float64
	MaxSigma float64
}

func (BlurBuilder) ShouldExecute(tags domain.Tags) bool {
	return !tags.Has(domain.TagBlurred)
}

func (b BlurBuilder) Variations() int {
	return b.Samples
}

func (b BlurBuilder) Build(rng *rand.Rand) []Stage {
	stages := make([]Stage, b.Samples)
	for i := range stages {
		stages[i] = blurStage{sigma: b.MinSigma + rng.Float64()*(b.MaxSigma-b.MinSigma)}
	}
	return stages
}

type blurStage struct {
	sigma float64
}

func (s blurStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	return imaging.GaussianBlur(img, s.sigma), domain.NewTags(domain.TagBlurred)
}

func (s blurStage) Name() string {
	return fmt.Sprintf("blur_%.2f", s.sigma)
}
