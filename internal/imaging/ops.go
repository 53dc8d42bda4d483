// Package imaging holds the pixel-level transform primitives the stage layer
// is built on: fixed and free rotation, gaussian blur, luminosity shifts, and
// thumbnail downsizing.
package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

func Clone(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// Rotate90 rotates the image 90 degrees clockwise.
func Rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(h-1-y, x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func Rotate180(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, h-1-y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Rotate270 rotates the image 90 degrees counterclockwise.
func Rotate270(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(y, w-1-x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// RotateAbout rotates the image by radians about its center without changing
// its dimensions. Corners rotated out of frame are lost and uncovered regions
// come out transparent.
func RotateAbout(src *image.RGBA, radians float64) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	sin, cos := math.Sincos(radians)

	// Source-to-destination affine: translate center to origin, rotate,
	// translate back.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.CatmullRom.Transform(dst, m, src, b, draw.Src, nil)
	return dst
}

// Brighten shifts every color channel by delta, clamping to [0, 255]. Alpha is
// untouched. Negative deltas darken.
func Brighten(src *image.RGBA, delta int) *image.RGBA {
	dst := Clone(src)
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = clampByte(int(dst.Pix[i]) + delta)
		dst.Pix[i+1] = clampByte(int(dst.Pix[i+1]) + delta)
		dst.Pix[i+2] = clampByte(int(dst.Pix[i+2]) + delta)
	}
	return dst
}

// GaussianBlur applies a gaussian blur with the given standard deviation using
// two separable passes. The kernel is truncated at three sigma.
func GaussianBlur(src *image.RGBA, sigma float64) *image.RGBA {
	if sigma <= 0 {
		return Clone(src)
	}

	kernel := gaussianKernel(sigma)
	horizontal := convolve(src, kernel, true)
	return convolve(horizontal, kernel, false)
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}

	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func convolve(src *image.RGBA, kernel []float64, horizontal bool) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	radius := len(kernel) / 2
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a float64
			for k, weight := range kernel {
				sx, sy := x, y
				if horizontal {
					sx = clampInt(x+k-radius, 0, w-1)
				} else {
					sy = clampInt(y+k-radius, 0, h-1)
				}
				p := src.RGBAAt(b.Min.X+sx, b.Min.Y+sy)
				r += weight * float64(p.R)
				g += weight * float64(p.G)
				bl += weight * float64(p.B)
				a += weight * float64(p.A)
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = clampByte(int(math.Round(r)))
			dst.Pix[i+1] = clampByte(int(math.Round(g)))
			dst.Pix[i+2] = clampByte(int(math.Round(bl)))
			dst.Pix[i+3] = clampByte(int(math.Round(a)))
		}
	}
	return dst
}

// Thumbnail scales the image down to fit within bound x bound, preserving the
// aspect ratio. Images already within the bound are returned as a copy.
func Thumbnail(src *image.RGBA, bound int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if bound <= 0 || (w <= bound && h <= bound) {
		return Clone(src)
	}

	scale := float64(bound) / float64(max(w, h))
	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
