// Package frames decides which dumped video frames show a skill card and
// collapses consecutive frames of the same card into groups.
package frames

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Rect is a crop rectangle expressed as fractions of the frame size.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Bounds converts the ratios into pixel bounds inside b, truncating toward
// zero like the capture tooling does.
func (r Rect) Bounds(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	return image.Rect(
		b.Min.X+int(float64(w)*r.Left),
		b.Min.Y+int(float64(h)*r.Top),
		b.Min.X+int(float64(w)*r.Right),
		b.Min.Y+int(float64(h)*r.Bottom),
	)
}

// Crop returns the part of img covered by r, rebased to the origin.
func Crop(img image.Image, r Rect) image.Image {
	return imaging.Crop(img, r.Bounds(img.Bounds()))
}

// LoadImage decodes a PNG, JPEG or WebP frame from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// grayscale flattens img into row-major 8-bit luminance values using the
// ITU-R 601-2 weights.
func grayscale(img image.Image) (pix []uint8, width, height int) {
	gray := imaging.Grayscale(img)
	width, height = gray.Rect.Dx(), gray.Rect.Dy()
	pix = make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < width; x++ {
			pix[y*width+x] = row[x*4]
		}
	}
	return pix, width, height
}
