package matcher

import (
	"fmt"
	"strings"

	"skillscan/internal/types"
)

// nameLine renders one numbered entry with the metadata that tells similar
// skills apart. mightLabel is "威力" for the native list and "Mt" otherwise.
func nameLine(i int, name string, s types.ExtractedSkill, mightLabel string, kindLabel func(types.SkillKind) string) string {
	meta := []string{kindLabel(s.Kind)}
	if s.Might != nil && *s.Might != 0 {
		meta = append(meta, fmt.Sprintf("%s%d", mightLabel, *s.Might))
	}
	if s.CooldownCount != nil && *s.CooldownCount != 0 {
		meta = append(meta, fmt.Sprintf("@%d", *s.CooldownCount))
	}
	if s.HeroName != nil && *s.HeroName != "" {
		meta = append(meta, *s.HeroName)
	}
	return fmt.Sprintf("%d. %s (%s)", i+1, name, strings.Join(meta, ", "))
}

func buildPrompt(native, translated []types.ExtractedSkill) string {
	nativeLines := make([]string, 0, len(native))
	for i, s := range native {
		nativeLines = append(nativeLines, nameLine(i, s.NativeName, s, "威力", types.SkillKind.NativeLabel))
	}
	translatedLines := make([]string, 0, len(translated))
	for i, s := range translated {
		translatedLines = append(translatedLines, nameLine(i, s.TranslatedName, s, "Mt", types.SkillKind.EnglishLabel))
	}

	return `Match each Japanese FEH skill to its English counterpart based on skill type, stats, and hero name.
Both lists are from the same game update, shown in similar order.

Japanese skills:
` + strings.Join(nativeLines, "\n") + `

English skills:
` + strings.Join(translatedLines, "\n") + `

Return a JSON object mapping each Japanese skill name to its English skill name.
If no match is found, use null.
Example: {"双勇マルテ": "Heroic Maltet", "重装の双炎": "Armored Flare"}`
}
