package frames

import (
	"context"
	"errors"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

// ErrEmptyInput is returned when Deduplicate is called with no frames.
var ErrEmptyInput = apperrors.New(apperrors.CodeEmptyFrames, "no frames to deduplicate")

// DedupConfig holds the hash distance thresholds.
type DedupConfig struct {
	// HashThreshold: panel distance at or below this is a re-render of the
	// same screen. Also used when comparing description regions.
	HashThreshold int
	// ScrollNameThreshold: name-region distance at or below this joins the
	// previous group as a scroll continuation.
	ScrollNameThreshold int
	// ScrollDescThreshold: description distance separating a real scroll
	// from a re-render in name-region joins. Diagnostic only.
	ScrollDescThreshold int
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		HashThreshold:       8,
		ScrollNameThreshold: 5,
		ScrollDescThreshold: 10,
	}
}

type Deduplicator struct {
	cfg    DedupConfig
	hasher Fingerprinter
	sharp  SharpnessScorer
}

func NewDeduplicator(cfg DedupConfig, hasher Fingerprinter, sharp SharpnessScorer) *Deduplicator {
	return &Deduplicator{cfg: cfg, hasher: hasher, sharp: sharp}
}

// Config returns the thresholds the deduplicator was built with.
func (d *Deduplicator) Config() DedupConfig {
	return d.cfg
}

// Deduplicate groups consecutive frames that show the same skill card.
//
// Each frame is compared with the frame immediately before it only. A skill
// that reappears later, after other screens, gets a second group.
func (d *Deduplicator) Deduplicate(ctx context.Context, frames []types.Frame) ([]types.FrameGroup, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyInput
	}

	prints := make([]Fingerprint, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fp, err := d.hasher.Fingerprint(f)
		if err != nil {
			return nil, apperrors.WrapWithDetail(apperrors.CodeFrameDecode, "fingerprint frame failed", f.Path, err)
		}
		prints[i] = fp
	}

	spans := d.group(frames, prints)
	scorer := newSharpnessCache(d.sharp, frames)

	groups := make([]types.FrameGroup, 0, len(spans))
	for ordinal, idxs := range spans {
		rep := scorer.sharpest(idxs)
		scroll := d.scrollFrames(idxs, prints, scorer)
		groups = append(groups, types.FrameGroup{
			Ordinal:        ordinal,
			Representative: frames[rep],
			Members: lo.Map(idxs, func(i int, _ int) types.Frame {
				return frames[i]
			}),
			RecognitionFrames: lo.Map(scroll, func(i int, _ int) types.Frame {
				return frames[i]
			}),
		})
	}

	log.GetLogger().Info("dedup finished",
		zap.Int("frames", len(frames)),
		zap.Int("groups", len(groups)))
	return groups, nil
}

// group returns frame indexes per group, in temporal order.
func (d *Deduplicator) group(frames []types.Frame, prints []Fingerprint) [][]int {
	var spans [][]int
	current := []int{0}

	for i := 1; i < len(prints); i++ {
		prev, curr := prints[i-1], prints[i]

		panelDist := hashDistance(prev.Panel, curr.Panel)
		if panelDist <= d.cfg.HashThreshold {
			current = append(current, i)
			continue
		}

		nameDist := hashDistance(prev.Name, curr.Name)
		if nameDist <= d.cfg.ScrollNameThreshold {
			descDist := hashDistance(prev.Description, curr.Description)
			kind := "scroll"
			if descDist < d.cfg.ScrollDescThreshold {
				kind = "re-render"
			}
			log.GetLogger().Debug("dedup: joined by name region",
				zap.String("frame", frames[i].Path),
				zap.String("kind", kind),
				zap.Int("panel_dist", panelDist),
				zap.Int("name_dist", nameDist),
				zap.Int("desc_dist", descDist))
			current = append(current, i)
			continue
		}

		spans = append(spans, current)
		current = []int{i}
	}
	return append(spans, current)
}

// scrollFrames picks the minimal set of frames that together cover the
// whole description of a scrolled skill.
func (d *Deduplicator) scrollFrames(idxs []int, prints []Fingerprint, scorer *sharpnessCache) []int {
	if len(idxs) == 1 {
		return idxs
	}

	kept := []int{idxs[0]}
	for _, i := range idxs[1:] {
		distinct := lo.EveryBy(kept, func(k int) bool {
			return hashDistance(prints[k].Description, prints[i].Description) > d.cfg.HashThreshold
		})
		if distinct {
			kept = append(kept, i)
		}
	}

	if len(kept) == 1 {
		return []int{scorer.sharpest(idxs)}
	}

	chosen := lo.Map(kept, func(k int, _ int) int {
		near := lo.Filter(idxs, func(j int, _ int) bool {
			return hashDistance(prints[k].Description, prints[j].Description) <= d.cfg.HashThreshold
		})
		return scorer.sharpest(near)
	})
	chosen = lo.Uniq(chosen)
	sort.Ints(chosen)
	return chosen
}

// sharpnessCache scores each frame at most once per Deduplicate call.
type sharpnessCache struct {
	scorer SharpnessScorer
	frames []types.Frame
	scores map[int]float64
}

func newSharpnessCache(scorer SharpnessScorer, frames []types.Frame) *sharpnessCache {
	return &sharpnessCache{scorer: scorer, frames: frames, scores: make(map[int]float64)}
}

func (c *sharpnessCache) score(i int) float64 {
	if s, ok := c.scores[i]; ok {
		return s
	}
	s, err := c.scorer.Sharpness(c.frames[i])
	if err != nil {
		log.GetLogger().Warn("dedup: sharpness failed", zap.String("frame", c.frames[i].Path), zap.Error(err))
		s = -1
	}
	c.scores[i] = s
	return s
}

// sharpest returns the first index with the highest score.
func (c *sharpnessCache) sharpest(idxs []int) int {
	best := idxs[0]
	bestScore := c.score(best)
	for _, i := range idxs[1:] {
		if s := c.score(i); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// IsEmptyInput reports whether err came from deduplicating zero frames.
func IsEmptyInput(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}
