package stage

import (
	"image"
	"image/color"
	"math/rand"
	"strings"
	"testing"

	"github.com/pixelfan/pixelfan/internal/domain"
)

func stageImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 90, A: 255})
		}
	}
	return img
}

func TestRotationBuilderFixedVariants(t *testing.T) {
	b := RotationBuilder{}
	if b.Variations() != 3 {
		t.Fatalf("expected 3 variations, got %d", b.Variations())
	}

	stages := b.Build(rand.New(rand.NewSource(1)))
	names := []string{stages[0].Name(), stages[1].Name(), stages[2].Name()}
	expected := []string{"clowise", "couwise", "up_down"}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("expected variant order %v, got %v", expected, names)
		}
	}

	src := stageImage(10, 6)
	out, tags := stages[0].Apply(src)
	if out.Bounds().Dx() != 6 || out.Bounds().Dy() != 10 {
		t.Fatalf("expected clockwise rotation to swap dimensions, got %v", out.Bounds())
	}
	if !tags.Has(domain.TagRotatedCW) {
		t.Fatalf("expected %s tag, got %v", domain.TagRotatedCW, tags.List())
	}
}

func TestRotationEligibility(t *testing.T) {
	b := RotationBuilder{}
	if !b.ShouldExecute(domain.NewTags()) {
		t.Fatal("expected rotation to run on untagged image")
	}
	for _, label := range []string{domain.TagRotatedCW, domain.TagRotatedCCW, domain.TagUpsideDown} {
		if b.ShouldExecute(domain.NewTags(label)) {
			t.Fatalf("expected rotation to be blocked by %s tag", label)
		}
	}
	if !b.ShouldExecute(domain.NewTags(domain.TagBlurred, domain.TagOffAxis)) {
		t.Fatal("expected unrelated tags to leave rotation eligible")
	}
}

func TestOffAxisBuilderDeterministicSampling(t *testing.T) {
	b := OffAxisBuilder{Samples: 5, DegLimit: 20}
	if b.Variations() != 5 {
		t.Fatalf("expected 5 variations, got %d", b.Variations())
	}

	first := b.Build(rand.New(rand.NewSource(99)))
	second := b.Build(rand.New(rand.NewSource(99)))
	for i := range first {
		if first[i].Name() != second[i].Name() {
			t.Fatalf("expected identical reseeded builds, got %s vs %s", first[i].Name(), second[i].Name())
		}
	}

	other := b.Build(rand.New(rand.NewSource(100)))
	same := true
	for i := range first {
		if first[i].Name() != other[i].Name() {
			same = false
		}
	}
	if same {
		t.Fatal("expected a different seed to sample different angles")
	}

	for _, s := range first {
		if !strings.HasPrefix(s.Name(), "rot_") || !strings.HasSuffix(s.Name(), "_deg") {
			t.Fatalf("unexpected off-axis name %q", s.Name())
		}
	}

	if b.ShouldExecute(domain.NewTags(domain.TagOffAxis)) {
		t.Fatal("expected off-axis tag to block the builder")
	}
}

func TestLuminosityBuilderSignSplit(t *testing.T) {
	b := LuminosityBuilder{MinLuma: 10, MaxLuma: 60}
	if b.Variations() != 2 {
		t.Fatalf("expected 2 variations, got %d", b.Variations())
	}

	stages := b.Build(rand.New(rand.NewSource(7)))
	if !strings.HasPrefix(stages[0].Name(), "bright_") {
		t.Fatalf("expected first variant to brighten, got %q", stages[0].Name())
	}
	if !strings.HasPrefix(stages[1].Name(), "dark_-") {
		t.Fatalf("expected second variant to darken, got %q", stages[1].Name())
	}

	src := stageImage(4, 4)
	_, brightTags := stages[0].Apply(src)
	if !brightTags.Has(domain.TagBright) {
		t.Fatalf("expected bright tag, got %v", brightTags.List())
	}
	_, darkTags := stages[1].Apply(src)
	if !darkTags.Has(domain.TagDark) {
		t.Fatalf("expected dark tag, got %v", darkTags.List())
	}

	if b.ShouldExecute(domain.NewTags(domain.TagBright)) || b.ShouldExecute(domain.NewTags(domain.TagDark)) {
		t.Fatal("expected bright or dark tag to block the builder")
	}
}

func TestBlurBuilderSigmaRange(t *testing.T) {
	b := BlurBuilder{Samples: 3, MinSigma: 5, MaxSigma: 10}

	stages := b.Build(rand.New(rand.NewSource(3)))
	if len(stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(stages))
	}
	for _, s := range stages {
		blur, ok := s.(blurStage)
		if !ok {
			t.Fatalf("expected blurStage, got %T", s)
		}
		if blur.sigma < 5 || blur.sigma >= 10 {
			t.Fatalf("sigma %g outside [5, 10)", blur.sigma)
		}
		if !strings.HasPrefix(s.Name(), "blur_") {
			t.Fatalf("unexpected blur name %q", s.Name())
		}
	}

	if b.ShouldExecute(domain.NewTags(domain.TagBlurred)) {
		t.Fatal("expected blurred tag to block the builder")
	}

	src := stageImage(16, 16)
	out, tags := stages[0].Apply(src)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("expected blur to preserve bounds, got %v", out.Bounds())
	}
	if !tags.Has(domain.TagBlurred) {
		t.Fatalf("expected blurred tag, got %v", tags.List())
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	src := stageImage(12, 12)
	before := make([]uint8, len(src.Pix))
	copy(before, src.Pix)

	for _, s := range []Stage{
		clockwiseStage{},
		upsideDownStage{},
		offAxisStage{radians: 0.3},
		luminosityStage{value: 25},
		blurStage{sigma: 2},
	} {
		s.Apply(src)
		for i := range before {
			if src.Pix[i] != before[i] {
				t.Fatalf("stage %s mutated its input", s.Name())
			}
		}
	}
}

func TestFromParamsRegistrationOrder(t *testing.T) {
	params := domain.StageParams{
		Rotation:   true,
		OffAxis:    &domain.OffAxisParams{Samples: 2, DegLimit: 15},
		Luminosity: &domain.LuminosityParams{MinLuma: 10, MaxLuma: 40},
		Blur:       &domain.BlurParams{Samples: 1, MinSigma: 4, MaxSigma: 9},
	}

	builders, err := FromParams(params)
	if err != nil {
		t.Fatalf("from params: %v", err)
	}
	if len(builders) != 4 {
		t.Fatalf("expected 4 builders, got %d", len(builders))
	}
	if _, ok := builders[0].(RotationBuilder); !ok {
		t.Fatalf("expected rotation first, got %T", builders[0])
	}
	if _, ok := builders[1].(OffAxisBuilder); !ok {
		t.Fatalf("expected off-axis second, got %T", builders[1])
	}
	if _, ok := builders[2].(LuminosityBuilder); !ok {
		t.Fatalf("expected luminosity third, got %T", builders[2])
	}
	if _, ok := builders[3].(BlurBuilder); !ok {
		t.Fatalf("expected blur last, got %T", builders[3])
	}
}

func TestFromParamsRejectsInvertedRange(t *testing.T) {
	_, err := FromParams(domain.StageParams{
		Blur: &domain.BlurParams{Samples: 1, MinSigma: 9, MaxSigma: 2},
	})
	if err == nil {
		t.Fatal("expected inverted sigma range to fail builder construction")
	}
}
