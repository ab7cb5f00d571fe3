package recognition

import (
	"context"

	"skillscan/internal/types"
)

// Matcher reconciles the two tracks. It never fails; unresolved names map
// to types.NoMatch.
type Matcher interface {
	Match(ctx context.Context, native, translated []types.ExtractedSkill) types.MatchResult
}

// Backend is the types.Backend built from one Recognizer and one Matcher.
type Backend struct {
	recognizer *Recognizer
	matcher    Matcher
}

var _ types.Backend = (*Backend)(nil)

func NewBackend(recognizer *Recognizer, matcher Matcher) *Backend {
	return &Backend{recognizer: recognizer, matcher: matcher}
}

func (b *Backend) RecognizeNative(ctx context.Context, groups []types.FrameGroup, onlyNew bool) ([]types.ExtractedSkill, error) {
	return b.recognizer.Recognize(ctx, types.TrackNative, groups, onlyNew)
}

func (b *Backend) RecognizeTranslated(ctx context.Context, groups []types.FrameGroup, onlyNew bool) ([]types.ExtractedSkill, error) {
	return b.recognizer.Recognize(ctx, types.TrackTranslated, groups, onlyNew)
}

func (b *Backend) MatchNativeToTranslated(ctx context.Context, native, translated []types.ExtractedSkill) (types.MatchResult, error) {
	result := b.matcher.Match(ctx, native, translated)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
