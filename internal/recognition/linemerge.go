package recognition

import (
	"regexp"
	"strings"
)

// lineStartPatterns match the openings of an independent effect block in a
// native description. Any other line is a word-wrap continuation.
var lineStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[^、。]{1,12}特効`),
	regexp.MustCompile(`^奥義が発動しやすい`),
	regexp.MustCompile(`^奥義発動(時|カウント)`),
	regexp.MustCompile(`^(奥義|スキル)を(装備|発動)`),
	regexp.MustCompile(`^(ターン開始時|戦闘中|戦闘開始時|戦闘後|戦闘前)`),
	regexp.MustCompile(`^(自分|自身|敵|味方)から攻撃`),
	regexp.MustCompile(`^(自分|自身|敵)から攻撃された時`),
	regexp.MustCompile(`^(自分|自身)を中心とした`),
	regexp.MustCompile(`^(自分|自身)(と|の|が|は)`),
	regexp.MustCompile(`^(周囲|射程)\d+`),
	regexp.MustCompile(`^(敵|味方)(は|が|の|と|に|全員)`),
	regexp.MustCompile(`^(偶数|奇数|\d+の倍数の?)ターン`),
	regexp.MustCompile(`^【再移動`),
	regexp.MustCompile(`^下記の【スタイル】`),
	regexp.MustCompile(`^(杖|竜|獣|魔法|暗器|弓)(は|の|を)`),
	regexp.MustCompile(`^(移動|支援|速さの差|最初に|回復|補助|この)`),
	regexp.MustCompile(`^(HP|攻撃|速さ|守備|魔防)[+\-＋－]`),
	regexp.MustCompile(`^(受ける|与える)ダメージ`),
	regexp.MustCompile(`^(マップ|ステージ|自軍|敵軍)`),
	regexp.MustCompile(`^(錬成|特殊錬成|【スタイル】)`),
}

func isLineStart(line string) bool {
	for _, p := range lineStartPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// MergeLines rejoins description lines a model split on screen wrapping.
// The first line is always kept; a later line starts a new entry only when it
// opens an effect block. Parenthesised notes always join the line before.
func MergeLines(lines []string) []string {
	var out []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(out) == 0 {
			out = append(out, line)
			continue
		}
		if !strings.HasPrefix(line, "(") && !strings.HasPrefix(line, "（") && isLineStart(line) {
			out = append(out, line)
			continue
		}
		out[len(out)-1] += line
	}
	return out
}
