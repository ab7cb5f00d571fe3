// Package matcher pairs native skill names with their translated
// counterparts through a text-only model call.
package matcher

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"skillscan/internal/recognition"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/util"
)

const matchMaxTokens = 1024

type Config struct {
	// SnapMaxRatio is the largest edit distance, relative to the longer
	// name, at which a model answer is snapped onto a translated name.
	SnapMaxRatio       float64
	PositionalFallback bool
	Retry              recognition.RetryPolicy
}

func DefaultConfig() Config {
	return Config{SnapMaxRatio: 0.25, PositionalFallback: true, Retry: recognition.DefaultRetryPolicy()}
}

type Matcher struct {
	completer types.Completer
	cfg       Config
}

var _ recognition.Matcher = (*Matcher)(nil)

func New(completer types.Completer, cfg Config) *Matcher {
	return &Matcher{completer: completer, cfg: cfg}
}

// Match never fails. Every native name, error records included, is a key of
// the result; anything the model could not resolve maps to types.NoMatch.
func (m *Matcher) Match(ctx context.Context, native, translated []types.ExtractedSkill) types.MatchResult {
	result := make(types.MatchResult, len(native))
	for _, s := range native {
		result[s.NativeName] = types.NoMatch
	}

	nativeValid := lo.Filter(native, func(s types.ExtractedSkill, _ int) bool { return !s.IsError() && s.NativeName != "" })
	translatedValid := lo.Filter(translated, func(s types.ExtractedSkill, _ int) bool { return !s.IsError() && s.TranslatedName != "" })
	if len(nativeValid) == 0 {
		return result
	}
	if len(translatedValid) == 0 {
		log.GetLogger().Warn("no translated skills to match against", zap.Int("native", len(nativeValid)))
		return result
	}
	if len(nativeValid) != len(translatedValid) {
		log.GetLogger().Warn("skill count mismatch between tracks",
			zap.Int("native", len(nativeValid)),
			zap.Int("translated", len(translatedValid)))
	}

	req := types.CompletionRequest{
		Prompt:    buildPrompt(nativeValid, translatedValid),
		Format:    types.FormatObject,
		MaxTokens: matchMaxTokens,
	}
	answer, err := recognition.Retry(ctx, m.cfg.Retry, "match skills", func(ctx context.Context) (map[string]*string, error) {
		text, err := m.completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return decodeAnswer(text)
	})
	if err != nil {
		if ctx.Err() != nil {
			return result
		}
		log.GetLogger().Error("skill matching failed", zap.Error(err))
		m.fallback(result, nativeValid, translatedValid)
		return result
	}

	candidates := lo.Map(translatedValid, func(s types.ExtractedSkill, _ int) string { return s.TranslatedName })
	for key, value := range answer {
		if _, ok := result[key]; !ok {
			log.GetLogger().Debug("match key not in native list ignored", zap.String("key", key))
			continue
		}
		if value == nil {
			continue
		}
		if snapped, ok := m.snap(*value, candidates); ok {
			result[key] = snapped
		} else {
			log.GetLogger().Warn("match answer not in translated list",
				zap.String("native", key),
				zap.String("answer", *value))
		}
	}

	log.GetLogger().Info("skills matched",
		zap.Int("matched", result.Matched()),
		zap.Int("native", len(nativeValid)))
	return result
}

func (m *Matcher) fallback(result types.MatchResult, native, translated []types.ExtractedSkill) {
	if !m.cfg.PositionalFallback || len(native) != len(translated) {
		log.GetLogger().Warn("no positional fallback; all names left unmatched",
			zap.Int("native", len(native)),
			zap.Int("translated", len(translated)))
		return
	}
	for i, s := range native {
		result[s.NativeName] = translated[i].TranslatedName
	}
	log.GetLogger().Warn("positional fallback applied", zap.Int("pairs", len(native)))
}

func decodeAnswer(text string) (map[string]*string, error) {
	span := util.ExtractJsonFromText(text)
	if span == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeMalformedResponse, "match reply has no JSON", util.Truncate(text, 200), nil)
	}
	var answer map[string]*string
	if err := json.Unmarshal([]byte(span), &answer); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeMalformedResponse, "match reply is not a name object", util.Truncate(span, 200), err)
	}
	return answer, nil
}

// snap maps a model answer onto one of the translated names: exact first,
// then ignoring case and spacing, then the nearest by edit distance.
func (m *Matcher) snap(answer string, candidates []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	if lo.Contains(candidates, answer) {
		return answer, true
	}

	folded := fold(answer)
	for _, c := range candidates {
		if fold(c) == folded {
			return c, true
		}
	}

	best, bestRatio := "", 2.0
	for _, c := range candidates {
		fc := fold(c)
		longest := max(utf8.RuneCountInString(folded), utf8.RuneCountInString(fc))
		if longest == 0 {
			continue
		}
		dist := levenshtein.DistanceForStrings([]rune(folded), []rune(fc), levenshtein.DefaultOptionsWithSub)
		ratio := float64(dist) / float64(longest)
		if ratio < bestRatio {
			best, bestRatio = c, ratio
		}
	}
	if best != "" && bestRatio <= m.cfg.SnapMaxRatio {
		return best, true
	}
	return "", false
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
