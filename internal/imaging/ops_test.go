package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}
	return img
}

func TestRotate90SwapsDimensions(t *testing.T) {
	src := testImage(40, 20)
	dst := Rotate90(src)

	if dst.Bounds().Dx() != 20 || dst.Bounds().Dy() != 40 {
		t.Fatalf("expected 20x40, got %dx%d", dst.Bounds().Dx(), dst.Bounds().Dy())
	}

	// Top-left pixel moves to the top-right corner under a clockwise turn.
	if got, want := dst.RGBAAt(19, 0), src.RGBAAt(0, 0); got != want {
		t.Fatalf("expected corner pixel %v, got %v", want, got)
	}
}

func TestRotate180IsInvolution(t *testing.T) {
	src := testImage(17, 9)
	twice := Rotate180(Rotate180(src))

	for i := range src.Pix {
		if src.Pix[i] != twice.Pix[i] {
			t.Fatal("expected double 180 rotation to restore the image")
		}
	}
}

func TestRotate90FourTimesRestores(t *testing.T) {
	src := testImage(13, 21)
	out := Rotate90(Rotate90(Rotate90(Rotate90(src))))

	if out.Bounds() != src.Bounds() {
		t.Fatalf("expected original bounds %v, got %v", src.Bounds(), out.Bounds())
	}
	for i := range src.Pix {
		if src.Pix[i] != out.Pix[i] {
			t.Fatal("expected four 90 rotations to restore the image")
		}
	}
}

func TestRotate270MatchesThreeClockwise(t *testing.T) {
	src := testImage(12, 7)
	ccw := Rotate270(src)
	three := Rotate90(Rotate90(Rotate90(src)))

	if ccw.Bounds() != three.Bounds() {
		t.Fatalf("bounds mismatch: %v vs %v", ccw.Bounds(), three.Bounds())
	}
	for i := range ccw.Pix {
		if ccw.Pix[i] != three.Pix[i] {
			t.Fatal("expected counterclockwise to equal three clockwise turns")
		}
	}
}

func TestRotateAboutKeepsDimensions(t *testing.T) {
	src := testImage(30, 30)
	dst := RotateAbout(src, math.Pi/7)

	if dst.Bounds() != src.Bounds() {
		t.Fatalf("expected bounds %v, got %v", src.Bounds(), dst.Bounds())
	}

	// A corner swept out of frame must come back transparent.
	if got := dst.RGBAAt(0, 0); got.A != 0 {
		t.Fatalf("expected transparent corner, got alpha %d", got.A)
	}
}

func TestBrightenClampsAndPreservesAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 250, G: 10, B: 128, A: 200})

	brightened := Brighten(src, 40)
	if got := brightened.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 50, B: 168, A: 200}) {
		t.Fatalf("unexpected brightened pixel: %v", got)
	}

	darkened := Brighten(src, -40)
	if got := darkened.RGBAAt(0, 0); got != (color.RGBA{R: 210, G: 0, B: 88, A: 200}) {
		t.Fatalf("unexpected darkened pixel: %v", got)
	}

	// Input stays untouched.
	if src.RGBAAt(0, 0) != (color.RGBA{R: 250, G: 10, B: 128, A: 200}) {
		t.Fatal("expected source pixel to be unchanged")
	}
}

func TestGaussianBlurSmoothsEdges(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			c := color.RGBA{A: 255}
			if x >= 10 {
				c.R = 255
			}
			src.SetRGBA(x, y, c)
		}
	}

	blurred := GaussianBlur(src, 2)
	if blurred.Bounds() != src.Bounds() {
		t.Fatalf("expected bounds %v, got %v", src.Bounds(), blurred.Bounds())
	}

	edge := blurred.RGBAAt(10, 10)
	if edge.R == 0 || edge.R == 255 {
		t.Fatalf("expected blurred edge pixel to be intermediate, got %d", edge.R)
	}
}

func TestGaussianBlurZeroSigmaCopies(t *testing.T) {
	src := testImage(8, 8)
	out := GaussianBlur(src, 0)
	for i := range src.Pix {
		if src.Pix[i] != out.Pix[i] {
			t.Fatal("expected zero-sigma blur to return an identical copy")
		}
	}
}

func TestThumbnailBound(t *testing.T) {
	src := testImage(400, 200)

	thumb := Thumbnail(src, 100)
	if thumb.Bounds().Dx() != 100 || thumb.Bounds().Dy() != 50 {
		t.Fatalf("expected 100x50 thumbnail, got %dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}

	small := Thumbnail(src, 1000)
	if small.Bounds() != src.Bounds() {
		t.Fatal("expected image within bound to keep its size")
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	src := testImage(24, 16)

	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if decoded.Bounds().Dx() != 24 || decoded.Bounds().Dy() != 16 {
		t.Fatalf("unexpected decoded size %v", decoded.Bounds())
	}
	for i := range src.Pix {
		if src.Pix[i] != decoded.Pix[i] {
			t.Fatal("expected lossless png round trip")
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
