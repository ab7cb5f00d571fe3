package frames

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"

	"go.uber.org/zap"

	"skillscan/internal/types"
	"skillscan/log"
)

// ClassifierConfig holds the screen classifier thresholds.
type ClassifierConfig struct {
	Panel                Rect
	BrightPixelThreshold float64
	MinBrightRatio       float64
	RowGradientThreshold float64
	MinGapBetweenEdges   int
	MinHorizontalLines   int
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Panel:                Rect{Left: 0.45, Top: 0.05, Right: 0.98, Bottom: 0.95},
		BrightPixelThreshold: 200,
		MinBrightRatio:       0.08,
		RowGradientThreshold: 15,
		MinGapBetweenEdges:   10,
		MinHorizontalLines:   7,
	}
}

// Verdict is the classifier output for one frame.
type Verdict struct {
	IsSkill     bool
	EdgeLines   int
	BrightRatio float64
}

func (v Verdict) reasons(cfg ClassifierConfig) []string {
	var reasons []string
	if v.EdgeLines < cfg.MinHorizontalLines {
		reasons = append(reasons, fmt.Sprintf("h_lines=%d < %d", v.EdgeLines, cfg.MinHorizontalLines))
	}
	if v.BrightRatio < cfg.MinBrightRatio {
		reasons = append(reasons, fmt.Sprintf("bright=%.1f%% < %.0f%%", v.BrightRatio*100, cfg.MinBrightRatio*100))
	}
	return reasons
}

type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify is pure: the same image and thresholds always give the same verdict.
func (c *Classifier) Classify(img image.Image) Verdict {
	panel := Crop(img, c.cfg.Panel)
	v := Verdict{
		EdgeLines:   c.countHorizontalEdges(panel),
		BrightRatio: c.brightRatio(panel),
	}
	v.IsSkill = v.EdgeLines >= c.cfg.MinHorizontalLines && v.BrightRatio >= c.cfg.MinBrightRatio
	return v
}

// Filter keeps the frames that show a skill screen, in input order. Frames
// that cannot be decoded are dropped with a warning.
func (c *Classifier) Filter(ctx context.Context, frames []types.Frame) ([]types.Frame, error) {
	accepted := make([]types.Frame, 0, len(frames))
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := LoadImage(f.Path)
		if err != nil {
			log.GetLogger().Warn("classifier: unreadable frame skipped", zap.String("frame", f.Path), zap.Error(err))
			continue
		}

		v := c.Classify(img)
		name := filepath.Base(f.Path)
		if v.IsSkill {
			accepted = append(accepted, f)
			log.GetLogger().Debug("classifier: skill screen",
				zap.String("frame", name),
				zap.Int("h_lines", v.EdgeLines),
				zap.Float64("bright_ratio", v.BrightRatio))
			continue
		}
		log.GetLogger().Debug("classifier: rejected",
			zap.String("frame", name),
			zap.Strings("reasons", v.reasons(c.cfg)))
	}

	log.GetLogger().Info("classifier finished",
		zap.Int("input", len(frames)),
		zap.Int("skill_screens", len(accepted)))
	return accepted, nil
}

func (c *Classifier) brightRatio(panel image.Image) float64 {
	b := panel.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	bright := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := panel.At(x, y).RGBA()
			avg := float64((r>>8)+(g>>8)+(bl>>8)) / 3
			if avg >= c.cfg.BrightPixelThreshold {
				bright++
			}
		}
	}
	return float64(bright) / float64(total)
}

// countHorizontalEdges counts card borders: rows whose mean luminance jumps
// versus the previous row, with runs no further apart than the gap collapsed
// into one line.
func (c *Classifier) countHorizontalEdges(panel image.Image) int {
	pix, width, height := grayscale(panel)
	if width == 0 || height == 0 {
		return 0
	}

	rowMeans := make([]float64, height)
	for y := 0; y < height; y++ {
		sum := 0
		for _, p := range pix[y*width : (y+1)*width] {
			sum += int(p)
		}
		rowMeans[y] = float64(sum) / float64(width)
	}

	lines := 0
	lastEdge := -1
	for y := 1; y < height; y++ {
		if math.Abs(rowMeans[y]-rowMeans[y-1]) < c.cfg.RowGradientThreshold {
			continue
		}
		if lastEdge == -1 || y-lastEdge > c.cfg.MinGapBetweenEdges {
			lines++
		}
		lastEdge = y
	}
	return lines
}

// Config returns the thresholds the classifier was built with.
func (c *Classifier) Config() ClassifierConfig {
	return c.cfg
}
