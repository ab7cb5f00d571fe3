package frames

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/corona10/goimagehash"
	"github.com/stretchr/testify/require"

	"skillscan/internal/types"
)

// bits returns a 64-bit value with bits [from, to) set.
func bits(from, to int) uint64 {
	var v uint64
	for i := from; i < to; i++ {
		v |= 1 << uint(i)
	}
	return v
}

func phash(v uint64) *goimagehash.ImageHash {
	return goimagehash.NewImageHash(v, goimagehash.PHash)
}

type fakeHasher map[string]Fingerprint

func (f fakeHasher) Fingerprint(fr types.Frame) (Fingerprint, error) {
	return f[fr.Path], nil
}

type fakeSharpness map[string]float64

func (f fakeSharpness) Sharpness(fr types.Frame) (float64, error) {
	return f[fr.Path], nil
}

func makeFrames(n int) []types.Frame {
	out := make([]types.Frame, n)
	for i := range out {
		out[i] = types.Frame{Path: filepath.Join("frames", fmt.Sprintf("frame_%05d.png", i)), Ordinal: i}
	}
	return out
}

// stripedImage draws alternating dark/bright bands inside the panel area.
func stripedImage(w, h, band int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.RGBA{R: 40, G: 40, B: 60, A: 255}
		if (y/band)%2 == 1 {
			c = color.RGBA{R: 245, G: 240, B: 230, A: 255}
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func flatImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return p
}
