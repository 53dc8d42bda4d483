//go:build !govips || !cgo

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

func Startup() error {
	return nil
}

func Shutdown() {}

// EncodePNG serializes the image as PNG with the stdlib encoder.
func EncodePNG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
