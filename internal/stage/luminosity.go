package stage

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/pixelfan/pixelfan/internal/domain"
	"github.com/pixelfan/pixelfan/internal/imaging"
)

// LuminosityBuilder yields exactly two stages: one brightening by a value
// drawn uniformly from [MinLuma, MaxLuma), one darkening by a value from
// [-MaxLuma, -MinLuma). Channel values are 8-bit, so the range should stay
// small or outputs wash out to black or white.
type LuminosityBuilder struct {
	MinLuma int
	MaxLuma int
}

func (LuminosityBuilder) ShouldExecute(tags domain.Tags) bool {
	return !tags.HasAny(domain.TagBright, domain.TagDark)
}

func (LuminosityBuilder) Variations() int {
	return 2
}

func (b LuminosityBuilder) Build(rng *rand.Rand) []Stage {
	span := b.MaxLuma - b.MinLuma
	return []Stage{
		luminosityStage{value: b.MinLuma + rng.Intn(span)},
		luminosityStage{value: -b.MaxLuma + rng.Intn(span)},
	}
}

type luminosityStage struct {
	value int
}

func (s luminosityStage) Apply(img *image.RGBA) (*image.RGBA, domain.Tags) {
	out := imaging.Brighten(img, s.value)
	if s.value < 0 {
		return out, domain.NewTags(domain.TagDark)
	}
	return out, domain.NewTags(domain.TagBright)
}

func (s luminosityStage) Name() string {
	if s.value < 0 {
		return fmt.Sprintf("dark_%d", s.value)
	}
	return fmt.Sprintf("bright_%d", s.value)
}
