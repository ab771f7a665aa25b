package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize is the longest side of the thumbnail BlurHash is computed on.
const blurHashSize = 64

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Format string // "jpeg", "png", "gif" or "webp"
	Width  int
	Height int
}

// Inspect reads the image header of data.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image config: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Extension maps a decoder format name to a file extension.
func Extension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png", "gif", "webp":
		return "." + format
	default:
		return ".img"
	}
}

// ComputeBlurHash decodes an image and returns its BlurHash with 4x3
// components, computed on a thumbnail.
func ComputeBlurHash(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img, blurHashSize))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail scales img down by nearest-neighbor sampling so that its longest
// side is at most size. Smaller images are returned as is.
func thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	dw, dh := size, max(1, h*size/w)
	if h > w {
		dw, dh = max(1, w*size/h), size
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		sy := b.Min.Y + y*h/dh
		for x := range dw {
			dst.Set(x, y, img.At(b.Min.X+x*w/dw, sy))
		}
	}
	return dst
}
