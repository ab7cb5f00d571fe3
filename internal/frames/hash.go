package frames

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"

	"skillscan/internal/types"
)

// Fingerprint holds the perceptual hashes of the three regions compared
// during grouping.
type Fingerprint struct {
	Panel       *goimagehash.ImageHash
	Name        *goimagehash.ImageHash
	Description *goimagehash.ImageHash
}

// Fingerprinter computes a Fingerprint for a frame.
type Fingerprinter interface {
	Fingerprint(f types.Frame) (Fingerprint, error)
}

// SharpnessScorer scores how crisp a frame is; higher is sharper.
type SharpnessScorer interface {
	Sharpness(f types.Frame) (float64, error)
}

// CropSet is the panel and its two sub-regions.
type CropSet struct {
	Panel       Rect
	Name        Rect
	Description Rect
}

func DefaultCropSet() CropSet {
	return CropSet{
		Panel:       Rect{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.95},
		Name:        Rect{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.20},
		Description: Rect{Left: 0.45, Top: 0.20, Right: 0.98, Bottom: 0.95},
	}
}

// ImageAnalyzer is the on-disk Fingerprinter and SharpnessScorer.
type ImageAnalyzer struct {
	Crops CropSet
	Load  func(path string) (image.Image, error)
}

func NewImageAnalyzer(crops CropSet) *ImageAnalyzer {
	return &ImageAnalyzer{Crops: crops, Load: LoadImage}
}

func (a *ImageAnalyzer) Fingerprint(f types.Frame) (Fingerprint, error) {
	img, err := a.Load(f.Path)
	if err != nil {
		return Fingerprint{}, err
	}

	var fp Fingerprint
	for _, region := range []struct {
		name string
		rect Rect
		dst  **goimagehash.ImageHash
	}{
		{"panel", a.Crops.Panel, &fp.Panel},
		{"name", a.Crops.Name, &fp.Name},
		{"description", a.Crops.Description, &fp.Description},
	} {
		h, err := goimagehash.PerceptionHash(Crop(img, region.rect))
		if err != nil {
			return Fingerprint{}, fmt.Errorf("phash %s region of %s: %w", region.name, f.Path, err)
		}
		*region.dst = h
	}
	return fp, nil
}

func (a *ImageAnalyzer) Sharpness(f types.Frame) (float64, error) {
	img, err := a.Load(f.Path)
	if err != nil {
		return 0, err
	}
	return EdgeVariance(img), nil
}

const maxHashDistance = 64

// hashDistance is the Hamming distance between two hashes; incomparable or
// missing hashes count as maximally different.
func hashDistance(a, b *goimagehash.ImageHash) int {
	if a == nil || b == nil {
		return maxHashDistance
	}
	d, err := a.Distance(b)
	if err != nil {
		return maxHashDistance
	}
	return d
}
