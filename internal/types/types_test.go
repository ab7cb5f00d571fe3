package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSkillKind(t *testing.T) {
	cases := map[string]SkillKind{
		"武器":          SkillKindWeapon,
		"サポート":        SkillKindAssist,
		"奥義":          SkillKindSpecial,
		"パッシブA":       SkillKindPassiveA,
		"パッシブB":       SkillKindPassiveB,
		"パッシブC":       SkillKindPassiveC,
		"響心":          SkillKindCaptain,
		"Weapon":      SkillKindWeapon,
		" passive  b": SkillKindPassiveB,
		"Harmonized":  SkillKindCaptain,
		"Captain":     SkillKindCaptain,
		"":            SkillKindUnknown,
		"聖印":          SkillKindUnknown,
	}
	for label, want := range cases {
		assert.Equal(t, want, ParseSkillKind(label), "label %q", label)
	}
}

func TestSkillKindLabels(t *testing.T) {
	assert.Equal(t, "パッシブC", SkillKindPassiveC.NativeLabel())
	assert.Equal(t, "Passive C", SkillKindPassiveC.EnglishLabel())
	assert.Equal(t, "unknown", SkillKindUnknown.EnglishLabel())
}

func TestErrorRecord(t *testing.T) {
	rec := ExtractedSkill{NativeName: ErrorRecordName(3)}
	assert.Equal(t, "__OCR_ERROR_3__", rec.NativeName)
	assert.True(t, rec.IsError())
	assert.False(t, ExtractedSkill{NativeName: "双勇マルテ"}.IsError())
}

func TestFrameGroupSetHintOnlyOnce(t *testing.T) {
	g := FrameGroup{}
	assert.False(t, g.SetHint(""))
	assert.True(t, g.SetHint("ターン開始時"))
	assert.False(t, g.SetHint("overwrite"))
	assert.Equal(t, "ターン開始時", g.RecognitionHint)
}

func TestFrameGroupRecognitionPaths(t *testing.T) {
	rep := Frame{Path: "b.png", Ordinal: 1}
	g := FrameGroup{Representative: rep, Members: []Frame{{Path: "a.png"}, rep}}
	assert.Equal(t, []string{"b.png"}, g.RecognitionPaths())

	g.RecognitionFrames = []Frame{{Path: "a.png"}, rep}
	assert.Equal(t, []string{"a.png", "b.png"}, g.RecognitionPaths())
}

func TestMatchResultLookup(t *testing.T) {
	m := MatchResult{"双勇マルテ": "Heroic Maltet", "重装の双炎": NoMatch}

	got, ok := m.Lookup("双勇マルテ")
	assert.True(t, ok)
	assert.Equal(t, "Heroic Maltet", got)

	_, ok = m.Lookup("重装の双炎")
	assert.False(t, ok)
	_, ok = m.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Matched())
}

func TestIntervalMidpoint(t *testing.T) {
	i := Interval{Start: 2, End: 5}
	assert.Equal(t, 3.5, i.Midpoint())
	assert.Equal(t, 3.0, i.Duration())
}
