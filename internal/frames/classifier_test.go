package frames

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillscan/internal/types"
)

func TestClassifySkillScreen(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	v := c.Classify(stripedImage(1000, 600, 40))
	assert.True(t, v.IsSkill)
	assert.GreaterOrEqual(t, v.EdgeLines, 7)
	assert.InDelta(t, 0.5, v.BrightRatio, 0.1)
}

func TestClassifyRejectsNonSkillScreens(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	gray := c.Classify(flatImage(1000, 600, 128))
	assert.False(t, gray.IsSkill)
	assert.Equal(t, 0, gray.EdgeLines)
	assert.Equal(t, 0.0, gray.BrightRatio)

	white := c.Classify(flatImage(1000, 600, 250))
	assert.False(t, white.IsSkill, "bright but no card borders")
	assert.Equal(t, 1.0, white.BrightRatio)

	cfg := DefaultClassifierConfig()
	cfg.MinBrightRatio = 0.9
	assert.False(t, NewClassifier(cfg).Classify(stripedImage(1000, 600, 40)).IsSkill, "bright ratio below raised threshold")
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	img := stripedImage(800, 480, 25)

	first := c.Classify(img)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, c.Classify(img))
	}
}

func TestCountHorizontalEdgesCollapsesRuns(t *testing.T) {
	cfg := DefaultClassifierConfig()
	c := NewClassifier(cfg)

	// Row luminance steps: a 3-row ramp at 10..12, a jump at 30, and a jump
	// exactly MinGapBetweenEdges rows later at 40.
	levels := make([]uint8, 60)
	for y := range levels {
		switch {
		case y < 10:
			levels[y] = 0
		case y < 13:
			levels[y] = uint8(20 * (y - 9))
		case y < 30:
			levels[y] = 60
		case y < 40:
			levels[y] = 200
		default:
			levels[y] = 100
		}
	}
	img := image.NewGray(image.Rect(0, 0, 20, len(levels)))
	for y, v := range levels {
		for x := 0; x < 20; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	assert.Equal(t, 2, c.countHorizontalEdges(img))

	cfg.MinGapBetweenEdges = 5
	assert.Equal(t, 3, NewClassifier(cfg).countHorizontalEdges(img))
}

func TestClassifierFilterKeepsOrderAndSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	skillA := writePNG(t, dir, "frame_00000.png", stripedImage(600, 400, 20))
	other := writePNG(t, dir, "frame_00001.png", flatImage(600, 400, 90))
	broken := filepath.Join(dir, "frame_00002.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o644))
	skillB := writePNG(t, dir, "frame_00003.png", stripedImage(600, 400, 24))

	in := []types.Frame{
		{Path: skillA, Ordinal: 0},
		{Path: other, Ordinal: 1},
		{Path: broken, Ordinal: 2},
		{Path: skillB, Ordinal: 3},
	}

	got, err := NewClassifier(DefaultClassifierConfig()).Filter(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, 3, got[1].Ordinal)
}

func TestClassifierFilterEmptyResultIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "frame_00000.png", flatImage(300, 200, 10))

	got, err := NewClassifier(DefaultClassifierConfig()).Filter(context.Background(), []types.Frame{{Path: p}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRectBounds(t *testing.T) {
	r := Rect{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.95}
	got := r.Bounds(image.Rect(0, 0, 1000, 600))
	assert.Equal(t, image.Rect(450, 30, 980, 570), got)

	cropped := Crop(flatImage(1000, 600, 1), r)
	assert.Equal(t, 530, cropped.Bounds().Dx())
	assert.Equal(t, 540, cropped.Bounds().Dy())
	assert.Equal(t, image.Point{}, cropped.Bounds().Min)
}
