// Package recognition turns frame groups into skill records through a vision
// model. Prompt selection, hint augmentation, retries and response parsing
// live here once; transports plug in as types.Completer.
package recognition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

// GroupOutcome is reported once per processed group.
type GroupOutcome struct {
	Track  types.Track
	Index  int
	Total  int
	Group  types.FrameGroup
	Skills []types.ExtractedSkill
	Err    error
}

// ProgressFunc receives the caller's context so hooks can find per-run
// values stored on it.
type ProgressFunc func(ctx context.Context, outcome GroupOutcome)

type Options struct {
	Profile     string
	Retry       RetryPolicy
	Concurrency int
}

func DefaultOptions() Options {
	return Options{Profile: ProfileFull, Retry: DefaultRetryPolicy(), Concurrency: 1}
}

type Recognizer struct {
	completer types.Completer
	opts      Options
	normalize types.Normalizer
	progress  ProgressFunc
	readFile  func(string) ([]byte, error)
}

type Option func(*Recognizer)

func WithNormalizer(n types.Normalizer) Option {
	return func(r *Recognizer) {
		if n != nil {
			r.normalize = n
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(r *Recognizer) { r.progress = fn }
}

func NewRecognizer(completer types.Completer, opts Options, options ...Option) *Recognizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Profile == "" {
		opts.Profile = ProfileFull
	}
	r := &Recognizer{
		completer: completer,
		opts:      opts,
		normalize: types.IdentityNormalizer,
		readFile:  os.ReadFile,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Recognize runs one model call per group. A group that fails after retries
// becomes a single error record; its siblings are unaffected. The returned
// error is only ever the context's.
func (r *Recognizer) Recognize(ctx context.Context, track types.Track, groups []types.FrameGroup, onlyNew bool) ([]types.ExtractedSkill, error) {
	instr := InstructionFor(track, onlyNew, r.opts.Profile)
	parser := skillParser{track: track, normalize: r.normalize}
	results := make([][]types.ExtractedSkill, len(groups))

	var mu sync.Mutex
	done := 0

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			skills, err := r.recognizeGroup(ctx, instr, parser, group)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				log.GetLogger().Error("group recognition failed",
					zap.String("track", string(track)),
					zap.Int("group", group.Ordinal),
					zap.String("detail", apperrors.GetDetail(err)),
					zap.Error(err))
				skills = []types.ExtractedSkill{errorRecord(track, group, err)}
			} else {
				log.GetLogger().Info("group recognized",
					zap.String("track", string(track)),
					zap.Int("group", group.Ordinal),
					zap.Strings("skills", lo.Map(skills, func(s types.ExtractedSkill, _ int) string { return s.DisplayName() })))
			}
			results[i] = skills

			mu.Lock()
			done++
			outcome := GroupOutcome{Track: track, Index: done, Total: len(groups), Group: group, Skills: skills, Err: err}
			if r.progress != nil {
				r.progress(ctx, outcome)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := lo.Flatten(results)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].SourceOrdinal < out[b].SourceOrdinal
	})
	return out, nil
}

func (r *Recognizer) recognizeGroup(ctx context.Context, instr Instruction, parser skillParser, group types.FrameGroup) ([]types.ExtractedSkill, error) {
	images, err := r.loadImages(group.RecognitionPaths())
	if err != nil {
		return nil, err
	}

	req := types.CompletionRequest{
		System:    instr.System,
		Prompt:    AugmentWithHint(instr.Prompt, group.RecognitionHint),
		Images:    images,
		Format:    instr.Format,
		Schema:    instr.Schema,
		MaxTokens: instr.MaxTokens,
	}

	op := fmt.Sprintf("recognize %s group %d", parser.track, group.Ordinal)
	raws, err := Retry(ctx, r.opts.Retry, op, func(ctx context.Context) ([]rawSkill, error) {
		text, err := r.completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		log.GetLogger().Debug("model reply", zap.String("op", op), zap.String("text", text))
		return decodeSkills(text)
	})
	if err != nil {
		return nil, err
	}

	skills := make([]types.ExtractedSkill, 0, len(raws))
	for _, raw := range raws {
		skill, ok := parser.toSkill(raw, group.Ordinal)
		if !ok {
			log.GetLogger().Debug("entry without skill name skipped", zap.String("op", op))
			continue
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

func (r *Recognizer) loadImages(paths []string) ([]types.Image, error) {
	images := make([]types.Image, 0, len(paths))
	for _, p := range paths {
		data, err := r.readFile(p)
		if err != nil {
			return nil, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "read frame failed", p, err)
		}
		images = append(images, types.Image{
			Name: filepath.Base(p),
			MIME: mimetype.Detect(data).String(),
			Data: data,
		})
	}
	return images, nil
}

func errorRecord(track types.Track, group types.FrameGroup, err error) types.ExtractedSkill {
	label := "OCRエラー: "
	if track == types.TrackTranslated {
		label = "OCR error: "
	}
	return types.ExtractedSkill{
		NativeName:       types.ErrorRecordName(group.Ordinal),
		Kind:             types.SkillKindUnknown,
		DescriptionLines: []string{label + err.Error()},
		SourceOrdinal:    group.Ordinal,
		Err:              err.Error(),
	}
}

// pacedCompleter waits on a shared limiter before each call.
type pacedCompleter struct {
	next    types.Completer
	limiter *rate.Limiter
}

func (p *pacedCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.Complete(ctx, req)
}

// Paced limits a completer to requestsPerMinute calls. Zero or less returns
// the completer unchanged.
func Paced(c types.Completer, requestsPerMinute int) types.Completer {
	if requestsPerMinute <= 0 {
		return c
	}
	limit := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &pacedCompleter{next: c, limiter: rate.NewLimiter(limit, 1)}
}
