package hint

import (
	"bytes"
	"context"
	"image/png"
	"strings"

	"go.uber.org/zap"

	"skillscan/internal/frames"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/util"
)

const previewLen = 80

// Annotate reads the panel crop of every group's representative and stores
// the text as the group's hint. Per-group failures are logged and skipped;
// only cancellation is returned. The count of hinted groups is reported.
func Annotate(ctx context.Context, groups []types.FrameGroup, engine types.HintEngine, lang string, panel frames.Rect) (int, error) {
	if engine == nil {
		return 0, nil
	}

	hinted := 0
	for i := range groups {
		if err := ctx.Err(); err != nil {
			return hinted, err
		}
		g := &groups[i]
		text, err := readPanel(ctx, engine, g.Representative.Path, lang, panel)
		if err != nil {
			if ctx.Err() != nil {
				return hinted, ctx.Err()
			}
			log.GetLogger().Warn("local hint skipped",
				zap.String("engine", engine.Name()),
				zap.Int("group", g.Ordinal),
				zap.String("frame", g.Representative.Path),
				zap.String("detail", apperrors.GetDetail(err)),
				zap.Error(err))
			continue
		}
		if text == "" {
			log.GetLogger().Info("local hint found no text", zap.Int("group", g.Ordinal))
			continue
		}
		if g.SetHint(text) {
			hinted++
			log.GetLogger().Info("local hint",
				zap.Int("group", g.Ordinal),
				zap.Int("index", i+1),
				zap.Int("total", len(groups)),
				zap.String("preview", util.Truncate(strings.ReplaceAll(text, "\n", " "), previewLen)))
		}
	}
	return hinted, nil
}

func readPanel(ctx context.Context, engine types.HintEngine, path, lang string, panel frames.Rect) (string, error) {
	img, err := frames.LoadImage(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = png.Encode(&buf, frames.Crop(img, panel)); err != nil {
		return "", err
	}
	text, err := engine.Read(ctx, buf.Bytes(), lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
