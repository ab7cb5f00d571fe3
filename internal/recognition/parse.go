package recognition

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/util"
)

// flexInt accepts a JSON number, a numeric string or null.
type flexInt struct {
	v  int
	ok bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	s = util.NormalizeDigits(strings.TrimSpace(s))
	if s == "" || s == "null" {
		*f = flexInt{}
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Labels like "-" on non-weapon screens mean "not applicable".
		*f = flexInt{}
		return nil
	}
	*f = flexInt{v: int(n), ok: true}
	return nil
}

func (f flexInt) ptr() *int {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}

// flexLines accepts either an array of strings or one newline-joined string.
type flexLines []string

func (f *flexLines) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*f = strings.Split(single, "\n")
	return nil
}

// rawSkill is one entry of a model reply.
type rawSkill struct {
	SkillName    string         `json:"skill_name"`
	SkillType    string         `json:"skill_type"`
	WeaponType   *string        `json:"weapon_type"`
	Might        flexInt        `json:"might"`
	Range        flexInt        `json:"range"`
	SpecialCount flexInt        `json:"special_count"`
	Description  flexLines      `json:"description"`
	HeroName     *string        `json:"hero_name"`
	StatBonuses  map[string]int `json:"stat_bonuses"`
}

// decodeSkills parses a reply into zero or more entries. Arrays, single
// objects and single-key wrappers such as {"skills": [...]} are accepted.
func decodeSkills(text string) ([]rawSkill, error) {
	span := strings.TrimSpace(util.ExtractJsonFromText(text))
	if span == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeMalformedResponse, "empty response", util.Truncate(text, 200), nil)
	}

	switch span[0] {
	case '[':
		var list []rawSkill
		if err := json.Unmarshal([]byte(span), &list); err != nil {
			return nil, malformed(text, err)
		}
		return list, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(span), &fields); err != nil {
			return nil, malformed(text, err)
		}
		if _, ok := fields["skill_name"]; ok {
			var one rawSkill
			if err := json.Unmarshal([]byte(span), &one); err != nil {
				return nil, malformed(text, err)
			}
			return []rawSkill{one}, nil
		}
		candidates := make([]json.RawMessage, 0, len(fields))
		if v, ok := fields["skills"]; ok {
			candidates = append(candidates, v)
		}
		for k, v := range fields {
			if k != "skills" {
				candidates = append(candidates, v)
			}
		}
		for _, v := range candidates {
			trimmed := bytes.TrimSpace(v)
			if len(trimmed) == 0 || trimmed[0] != '[' {
				continue
			}
			var list []rawSkill
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, malformed(text, err)
			}
			return list, nil
		}
		// An object with neither a skill nor a list: nothing on screen.
		return nil, nil
	}
	return nil, malformed(text, nil)
}

func malformed(text string, cause error) error {
	return apperrors.WrapWithDetail(apperrors.CodeMalformedResponse, "unparsable recognition response", util.Truncate(text, 200), cause)
}

var weaponCodes = map[string]string{
	"剣":   "rs",
	"槍":   "bl",
	"斧":   "ga",
	"弓":   "bo",
	"暗器":  "da",
	"杖":   "cs",
	"竜石":  "br",
	"獣":   "be",
	"赤魔法": "rt",
	"青魔法": "bt",
	"緑魔法": "gt",
	"無魔法": "ct",

	"sword":          "rs",
	"lance":          "bl",
	"axe":            "ga",
	"bow":            "bo",
	"dagger":         "da",
	"staff":          "cs",
	"breath":         "br",
	"dragonstone":    "br",
	"beast":          "be",
	"red tome":       "rt",
	"blue tome":      "bt",
	"green tome":     "gt",
	"colorless tome": "ct",
}

// WeaponCode maps a weapon type label to its short code.
func WeaponCode(label *string) *string {
	if label == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(*label))
	code, ok := weaponCodes[key]
	if !ok {
		return nil
	}
	return &code
}

var asciiWordRe = regexp.MustCompile(`[a-zA-Z]{2,}`)

// skillParser turns decoded entries into records for one track.
type skillParser struct {
	track     types.Track
	normalize types.Normalizer
}

func (p skillParser) toSkill(raw rawSkill, ordinal int) (types.ExtractedSkill, bool) {
	name := strings.TrimSpace(raw.SkillName)
	if name == "" {
		return types.ExtractedSkill{}, false
	}

	lines := make([]string, 0, len(raw.Description))
	for _, line := range raw.Description {
		lines = append(lines, p.normalize(util.NormalizeDigits(line)))
	}

	skill := types.ExtractedSkill{
		Kind:          types.ParseSkillKind(raw.SkillType),
		WeaponCode:    WeaponCode(raw.WeaponType),
		Might:         raw.Might.ptr(),
		Range:         raw.Range.ptr(),
		CooldownCount: raw.SpecialCount.ptr(),
		StatBonuses:   raw.StatBonuses,
		HeroName:      trimmedPtr(raw.HeroName),
		SourceOrdinal: ordinal,
	}

	if p.track == types.TrackTranslated {
		skill.TranslatedName = p.normalize(name)
		skill.DescriptionLines = trimLines(lines)
		return skill, true
	}

	skill.NativeName = p.normalize(util.NormalizeDigits(name))
	skill.DescriptionLines = MergeLines(lines)
	if words := asciiWordRe.FindAllString(skill.NativeName, -1); len(words) > 0 {
		log.GetLogger().Warn("native skill name contains ASCII words",
			zap.String("name", skill.NativeName),
			zap.Strings("words", words))
	}
	return skill, true
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func trimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
