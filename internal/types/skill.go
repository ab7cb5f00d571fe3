package types

import (
	"fmt"
	"strings"
)

// SkillKind is the slot a skill occupies.
type SkillKind string

const (
	SkillKindWeapon   SkillKind = "weapon"
	SkillKindAssist   SkillKind = "assist"
	SkillKindSpecial  SkillKind = "special"
	SkillKindPassiveA SkillKind = "passive_a"
	SkillKindPassiveB SkillKind = "passive_b"
	SkillKindPassiveC SkillKind = "passive_c"
	SkillKindCaptain  SkillKind = "captain"
	SkillKindUnknown  SkillKind = "unknown"
)

type kindLabels struct {
	native  string
	english string
}

var skillKindLabels = map[SkillKind]kindLabels{
	SkillKindWeapon:   {"武器", "Weapon"},
	SkillKindAssist:   {"サポート", "Assist"},
	SkillKindSpecial:  {"奥義", "Special"},
	SkillKindPassiveA: {"パッシブA", "Passive A"},
	SkillKindPassiveB: {"パッシブB", "Passive B"},
	SkillKindPassiveC: {"パッシブC", "Passive C"},
	SkillKindCaptain:  {"響心", "Harmonized"},
}

// ParseSkillKind accepts the native or English label a backend returns.
func ParseSkillKind(label string) SkillKind {
	normalized := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if normalized == "" {
		return SkillKindUnknown
	}
	for kind, labels := range skillKindLabels {
		if normalized == labels.native || normalized == strings.ToLower(labels.english) || normalized == string(kind) {
			return kind
		}
	}
	switch normalized {
	case "captain", "captain skill", "harmonized skill":
		return SkillKindCaptain
	case "a", "パッシブa":
		return SkillKindPassiveA
	case "b", "パッシブb":
		return SkillKindPassiveB
	case "c", "パッシブc":
		return SkillKindPassiveC
	}
	return SkillKindUnknown
}

func (k SkillKind) NativeLabel() string {
	if labels, ok := skillKindLabels[k]; ok {
		return labels.native
	}
	return string(k)
}

func (k SkillKind) EnglishLabel() string {
	if labels, ok := skillKindLabels[k]; ok {
		return labels.english
	}
	return string(k)
}

const errorRecordPrefix = "__OCR_ERROR_"

// ErrorRecordName is the synthetic native name given to a group whose
// recognition failed.
func ErrorRecordName(groupIndex int) string {
	return fmt.Sprintf("%s%d__", errorRecordPrefix, groupIndex)
}

// ExtractedSkill is one recognised skill. Records from the translated track
// carry TranslatedName and leave NativeName empty until matching.
type ExtractedSkill struct {
	NativeName       string         `json:"native_name"`
	TranslatedName   string         `json:"translated_name,omitempty"`
	Kind             SkillKind      `json:"kind"`
	WeaponCode       *string        `json:"weapon_code,omitempty"`
	Might            *int           `json:"might,omitempty"`
	Range            *int           `json:"range,omitempty"`
	CooldownCount    *int           `json:"cooldown_count,omitempty"`
	StatBonuses      map[string]int `json:"stat_bonuses,omitempty"`
	DescriptionLines []string       `json:"description_lines"`
	HeroName         *string        `json:"hero_name,omitempty"`
	SourceOrdinal    int            `json:"source_ordinal"`
	Err              string         `json:"error,omitempty"`
}

// IsError reports whether this is a synthetic per-group failure record.
func (s ExtractedSkill) IsError() bool {
	return strings.HasPrefix(s.NativeName, errorRecordPrefix)
}

// DisplayName returns whichever name the record carries.
func (s ExtractedSkill) DisplayName() string {
	if s.NativeName != "" {
		return s.NativeName
	}
	return s.TranslatedName
}

// MatchResult maps every native skill name to its translated name, or to
// NoMatch when no counterpart was found.
type MatchResult map[string]string

const NoMatch = ""

// Lookup returns the translated name and whether a real match exists.
func (m MatchResult) Lookup(nativeName string) (string, bool) {
	translated, ok := m[nativeName]
	if !ok || translated == NoMatch {
		return "", false
	}
	return translated, true
}

// Matched counts entries that resolved to a translated name.
func (m MatchResult) Matched() int {
	n := 0
	for _, v := range m {
		if v != NoMatch {
			n++
		}
	}
	return n
}
