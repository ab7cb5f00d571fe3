package frames

import (
	"image"

	"github.com/disintegration/imaging"
)

// laplacian is the 8-neighbour edge kernel.
var laplacian = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// EdgeVariance is the variance of the 3x3 edge-filtered grayscale image.
// Motion blur and mid-scroll frames score low.
//
// Filter output is clamped to 0..255 and border pixels repeat their
// nearest neighbour.
func EdgeVariance(img image.Image) float64 {
	edges := imaging.Convolve3x3(imaging.Grayscale(img), laplacian, nil)
	pix, w, h := grayscale(edges)
	n := w * h
	if n == 0 {
		return 0
	}

	var mean float64
	for _, v := range pix {
		mean += float64(v)
	}
	mean /= float64(n)

	var variance float64
	for _, v := range pix {
		d := float64(v) - mean
		variance += d * d
	}
	return variance / float64(n)
}
