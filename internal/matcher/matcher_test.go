package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillscan/internal/mocks"
	"skillscan/internal/recognition"
	"skillscan/internal/types"
	"skillscan/log"
)

func init() {
	log.InitLogger()
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func nativeSkill(name string, kind types.SkillKind) types.ExtractedSkill {
	return types.ExtractedSkill{NativeName: name, Kind: kind}
}

func translatedSkill(name string, kind types.SkillKind) types.ExtractedSkill {
	return types.ExtractedSkill{TranslatedName: name, Kind: kind}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = recognition.RetryPolicy{
		MaxRetries: 3,
		Backoff:    time.Second,
		Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
	}
	return cfg
}

func TestMatchCountMismatchNeverRaises(t *testing.T) {
	var native, translated []types.ExtractedSkill
	var answer []string
	for i := 0; i < 10; i++ {
		native = append(native, nativeSkill(fmt.Sprintf("スキル%d", i), types.SkillKindPassiveA))
		if i < 8 {
			translated = append(translated, translatedSkill(fmt.Sprintf("Skill %d", i), types.SkillKindPassiveA))
			answer = append(answer, fmt.Sprintf(`"スキル%d": "Skill %d"`, i, i))
		} else {
			answer = append(answer, fmt.Sprintf(`"スキル%d": null`, i))
		}
	}

	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("Here you go:\n```json\n{"+strings.Join(answer, ", ")+"}\n```", nil).Once()

	got := New(completer, testConfig()).Match(context.Background(), native, translated)
	require.Len(t, got, 10)
	assert.Equal(t, 8, got.Matched())
	assert.Equal(t, "Skill 3", got["スキル3"])
	assert.Equal(t, types.NoMatch, got["スキル8"])
	assert.Equal(t, types.NoMatch, got["スキル9"])
	completer.AssertExpectations(t)
}

func TestMatchCountMismatchWithFailingBackend(t *testing.T) {
	var native, translated []types.ExtractedSkill
	for i := 0; i < 10; i++ {
		native = append(native, nativeSkill(fmt.Sprintf("スキル%d", i), types.SkillKindWeapon))
	}
	for i := 0; i < 8; i++ {
		translated = append(translated, translatedSkill(fmt.Sprintf("Skill %d", i), types.SkillKindWeapon))
	}

	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("unavailable"))

	got := New(completer, testConfig()).Match(context.Background(), native, translated)
	require.Len(t, got, 10)
	assert.Zero(t, got.Matched())
	completer.AssertNumberOfCalls(t, "Complete", 3)
}

func TestMatchPositionalFallbackOnEqualCounts(t *testing.T) {
	native := []types.ExtractedSkill{nativeSkill("双勇マルテ", types.SkillKindWeapon), nativeSkill("重装の双炎", types.SkillKindSpecial)}
	translated := []types.ExtractedSkill{translatedSkill("Heroic Maltet", types.SkillKindWeapon), translatedSkill("Armored Flare", types.SkillKindSpecial)}

	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that.", nil)

	got := New(completer, testConfig()).Match(context.Background(), native, translated)
	assert.Equal(t, types.MatchResult{"双勇マルテ": "Heroic Maltet", "重装の双炎": "Armored Flare"}, got)
	completer.AssertNumberOfCalls(t, "Complete", 3)

	cfg := testConfig()
	cfg.PositionalFallback = false
	got = New(completer, cfg).Match(context.Background(), native, translated)
	assert.Zero(t, got.Matched())
	assert.Len(t, got, 2)
}

func TestMatchSnapsAndIgnoresUnknownKeys(t *testing.T) {
	native := []types.ExtractedSkill{
		nativeSkill("双勇マルテ", types.SkillKindWeapon),
		nativeSkill("重装の双炎", types.SkillKindSpecial),
		nativeSkill("攻撃速さの大覚醒4", types.SkillKindPassiveA),
	}
	translated := []types.ExtractedSkill{
		translatedSkill("Heroic Maltet", types.SkillKindWeapon),
		translatedSkill("Armored Flare", types.SkillKindSpecial),
		translatedSkill("Atk/Spd Awakening 4", types.SkillKindPassiveA),
	}

	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{
		"双勇マルテ": "heroic  maltet",
		"重装の双炎": "Armoured Flare",
		"攻撃速さの大覚醒4": "Something Else Entirely",
		"存在しない": "Heroic Maltet"
	}`, nil)

	got := New(completer, testConfig()).Match(context.Background(), native, translated)
	assert.Equal(t, types.MatchResult{
		"双勇マルテ":     "Heroic Maltet",
		"重装の双炎":     "Armored Flare",
		"攻撃速さの大覚醒4": types.NoMatch,
	}, got)
}

func TestMatchExcludesErrorRecords(t *testing.T) {
	native := []types.ExtractedSkill{
		nativeSkill("双勇マルテ", types.SkillKindWeapon),
		{NativeName: types.ErrorRecordName(1), Err: "boom"},
	}
	translated := []types.ExtractedSkill{
		translatedSkill("Heroic Maltet", types.SkillKindWeapon),
		{NativeName: types.ErrorRecordName(4), Err: "boom"},
	}

	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req types.CompletionRequest) bool {
		return !strings.Contains(req.Prompt, "__OCR_ERROR_") &&
			req.Format == types.FormatObject &&
			req.MaxTokens == 1024 &&
			len(req.Images) == 0
	})).Return(`{"双勇マルテ": "Heroic Maltet"}`, nil)

	got := New(completer, testConfig()).Match(context.Background(), native, translated)
	assert.Equal(t, "Heroic Maltet", got["双勇マルテ"])
	v, ok := got[types.ErrorRecordName(1)]
	assert.True(t, ok)
	assert.Equal(t, types.NoMatch, v)
}

func TestMatchWithoutTranslatedSkipsModel(t *testing.T) {
	completer := new(mocks.MockCompleter)
	got := New(completer, testConfig()).Match(context.Background(),
		[]types.ExtractedSkill{nativeSkill("双勇マルテ", types.SkillKindWeapon)}, nil)
	assert.Equal(t, types.MatchResult{"双勇マルテ": types.NoMatch}, got)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestMatchCancelledReturnsUnmatched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	completer := new(mocks.MockCompleter)

	got := New(completer, testConfig()).Match(ctx,
		[]types.ExtractedSkill{nativeSkill("a", types.SkillKindWeapon)},
		[]types.ExtractedSkill{translatedSkill("A", types.SkillKindWeapon)})
	assert.Equal(t, types.MatchResult{"a": types.NoMatch}, got)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestBuildPrompt(t *testing.T) {
	native := []types.ExtractedSkill{{
		NativeName:    "双勇マルテ",
		Kind:          types.SkillKindWeapon,
		Might:         intPtr(16),
		CooldownCount: intPtr(0),
		HeroName:      strPtr("マルス"),
	}, {
		NativeName:    "重装の双炎",
		Kind:          types.SkillKindSpecial,
		CooldownCount: intPtr(3),
	}}
	translated := []types.ExtractedSkill{{
		TranslatedName: "Heroic Maltet",
		Kind:           types.SkillKindWeapon,
		Might:          intPtr(16),
		HeroName:       strPtr("Marth"),
	}}

	prompt := buildPrompt(native, translated)
	assert.Contains(t, prompt, "Japanese skills:\n1. 双勇マルテ (武器, 威力16, マルス)\n2. 重装の双炎 (奥義, @3)\n")
	assert.Contains(t, prompt, "English skills:\n1. Heroic Maltet (Weapon, Mt16, Marth)\n")
	assert.True(t, strings.HasSuffix(prompt, `Example: {"双勇マルテ": "Heroic Maltet", "重装の双炎": "Armored Flare"}`))
}

func TestSnapRatio(t *testing.T) {
	m := New(nil, Config{SnapMaxRatio: 0.25})
	candidates := []string{"Atk/Spd Awakening 4", "Heroic Maltet"}

	got, ok := m.snap("Atk/Spd Awakening", candidates)
	assert.True(t, ok)
	assert.Equal(t, "Atk/Spd Awakening 4", got)

	_, ok = m.snap("Maltet", candidates)
	assert.False(t, ok)

	_, ok = m.snap("  ", candidates)
	assert.False(t, ok)
}
