package recognition

import (
	"skillscan/internal/types"
)

const fence = "```"

// Prompt profiles. "compact" carries shorter native prompts and JSON schemas
// for small local vision models.
const (
	ProfileFull    = "full"
	ProfileCompact = "compact"
)

const (
	newOnlyMaxTokens = 4096
	allMaxTokens     = 2048
)

const nativeLinebreakRules = `画面上のテキスト折り返し（word wrap）で分割しないこと。
1行 = 1つの独立した効果・条件ブロック。1行が100文字以上になることもある。

改行する（新しい配列要素にする）タイミング:
- 「飛行特効」等の特効効果（単語1つでも独立した行）
- 「奥義が発動しやすい（発動カウント-1）」等の発動カウント効果
- 「ターン開始時、...」で始まるターン開始効果
- 「戦闘中、...」で始まる戦闘効果
- 「自分から攻撃した時、...」等の条件付き効果
- 「【再移動（...）】を発動可能」等の再移動効果

改行しない（同じ行に続ける）場合:
- 条件と効果が読点（、）で繋がっている場合
- 括弧内の補足「（範囲奥義を除く）」等
- 「かつ」「および」で繋がる場合`

const nativeLinebreakExamples = `改行の例:

例1（武器スキル、5行）:
["杖は他の武器同様のダメージ計算になる", "奥義が発動しやすい（発動カウント-1）（奥義発動カウント最大値の下限は1）", "自身を中心とした縦3列と横3列の敵は、戦闘中、攻撃、速さ、守備、魔防-5、奥義以外のスキルによる「ダメージを○○％軽減」を半分無効（無効にする数値は端数切捨て）（範囲奥義を除く）、奥義以外の「敵の致死攻撃を受けた時、ダメージをHPが1残るように軽減」する効果を無効", "戦闘中、攻撃、速さ、守備、魔防+10、与えるダメージ+25（範囲奥義を除く）、受けるダメージ-15（範囲奥義を除く）", "下記の【スタイル】を使用可能【スタイル】：フリーズ"]
※3行目は約130文字だが、同一効果が読点で繋がっているため1行。

例2（パッシブC、3行）:
["【再移動（マス間の距離、最大3、最低1）】を発動可能", "自分から攻撃した時、戦闘後、敵とその周囲2マスの敵に【護られ不可】、【不和】を付与（敵次回行動終了まで）、敵のマスとその周囲2マスのマスに【天脈・気】を付与（1ターン）", "戦闘中、攻撃、速さ、守備、魔防+5、与えるダメージ+7（範囲奥義を除く）、受けるダメージ-7（範囲奥義を除く）、自身の奥義発動カウント変動量-を無効、かつ追撃の速さ条件を-10した状態で追撃の速さ条件を満たしている時（絶対追撃、追撃不可は含まない）、戦闘中、【神速追撃：ダメージ100%】を発動"]
※3行目は約150文字。「かつ」で繋がる条件は改行しない。`

const nativeSystemPrompt = `あなたはFEH（ファイアーエムブレム ヒーローズ）のスキル説明文を正確に書き起こす専門家です。
スキルテキストは枠線で囲まれたカード内に表示され、カード上部にスキルアイコン（丸型）と
大きな文字のスキル名、その下にスキル効果の説明文が続きます。
画面に表示されているスキル情報をすべて正確にJSON形式で抽出してください。
この構造がない画面（英雄紹介、キャラクター説明等）の場合はスキルがないことを示してください。`

const nativeNewOnlyPrompt = `このFEHのスキル画面から、新スキルのみを抽出してください。

スキルテキストの見分け方:
- スキルは枠線で囲まれたカード内に表示される
- カード上部にスキルアイコン（丸型）と大きな文字のスキル名がある
- その下にスキル効果の説明文が続く
- 英雄紹介やキャラクター説明のテキストはスキルではありません
- この構造がない画面の場合、空配列 [] を返してください

この画面に「習得可能スキル」のヘッダーがない場合（双界スキル画面、スタイル画面など）は、「！」マークは表示されないため空配列 [] を返してください。

画面のスキル一覧では、各行が左から「！」マーク（新スキルの場合のみ表示）→ スキル種別アイコン（丸いバッジ）→ スキル名 の順に並んでいます。
「！」マークはオレンジ/黄色の小さいビックリマークで、行の最左端に表示されます。
丸い円形のアイコン（スキル種別バッジ）は「！」マークではありません。
「！」マークがないスキルは新スキルではないので無視してください。

まず各スキルの「！」マークの有無を確認し、「！」があるスキルのみ以下の情報をJSON配列で出力してください。
該当スキルがない場合は空配列 [] を返してください。

抽出フィールド:
- skill_name: スキル名（文字列）
- skill_type: スキル種別。次のいずれか: "武器", "奥義", "サポート", "パッシブA", "パッシブB", "パッシブC", "響心"
- weapon_type: 武器種（武器の場合のみ）
- might: 威力（武器の場合のみ、整数）
- range: 射程（武器の場合のみ、整数）
- special_count: 奥義カウント（奥義の場合のみ、整数）
- description: 説明文（行ごとの配列）
- hero_name: この画面に表示されている英雄名

descriptionの改行ルール:
` + nativeLinebreakRules + `

` + nativeLinebreakExamples + `

注意事項:
- テキストは一字一句正確に写してください。意味の推測による修正はしないでください
- 数値は半角で記述してください

出力形式（JSON配列のみ、他のテキストは不要）:
` + fence + `json
[{"skill_name": "スキル名", "skill_type": "武器", ...}]
` + fence

const nativeAllPrompt = `このFEHのスキル画面から以下の情報を正確にJSON形式で抽出してください。

- この画面にスキルのカード（枠線＋アイコン＋スキル名の構造）がない場合、
  skill_nameを空文字 "" にしてください

抽出フィールド:
- skill_name: スキル名（文字列）
- skill_type: スキル種別。次のいずれか: "武器", "奥義", "サポート", "パッシブA", "パッシブB", "パッシブC", "響心"
- weapon_type: 武器種（武器の場合のみ。例: "剣", "槍", "斧", "弓", "暗器", "杖", "竜石", "獣", "赤魔法", "青魔法", "緑魔法", "無魔法"）
- might: 威力（武器の場合のみ、整数）
- range: 射程（整数。武器の場合のみ）
- special_count: 奥義カウント（奥義の場合のみ、整数）
- description: 説明文（行ごとの配列）
- hero_name: この画面に表示されている英雄名（表示されていればnull以外）

descriptionの改行ルール:
` + nativeLinebreakRules + `

` + nativeLinebreakExamples + `

注意事項:
- テキストは一字一句正確に写してください。意味の推測による修正はしないでください
- 「ー」（長音）と「-」（ハイフン/マイナス）の区別に注意してください
- 数値は半角で記述してください
- 【】や（）はそのまま写してください
- 複数画像が送られた場合は同一スキルのスクロール続きです。重複部分を除去して結合してください
- skill_typeは画面の表示から判断してください。画面左側のアイコンの位置や色で判断できます

出力形式（JSONのみ、他のテキストは不要）:
` + fence + `json
{
  "skill_name": "スキル名",
  "skill_type": "武器",
  "weapon_type": "剣",
  "might": 16,
  "range": 1,
  "special_count": null,
  "description": ["1行目", "2行目", "3行目"],
  "hero_name": "英雄名"
}
` + fence

const nativeCompactNewOnlyPrompt = `このFEHのスキル画面から「！」マーク付きの新スキルのみを抽出してください。

スキルの見分け方: スキルは枠線で囲まれたカード内に表示され、カード上部にスキルアイコン（丸型）と大きな文字のスキル名、その下に説明文が続きます。
英雄紹介やキャラクター説明のテキストはスキルではありません。この構造がない画面では skills: [] を返してください。

「習得可能スキル」のヘッダーがない画面（双界スキル画面、スタイル画面など）では新スキルなし（skills: []）です。
「！」マークはオレンジ/黄色の小さいビックリマークで、スキル名の左側に表示されます。
丸い円形のアイコン（スキル種別バッジ）は「！」マークではありません。
テキストは画面に表示されたものを一字一句正確に写してください。数値は半角で記述してください。

descriptionの改行ルール:
` + nativeLinebreakRules + `

例:
{"skills": [{"skill_name": "フィンブルの花", "skill_type": "武器", "weapon_type": "青魔法", "might": 14, "range": 2, "special_count": null, "description": ["ターン開始時、自身のHPが25%以上の時、自分と周囲2マスの味方の攻撃、速さ+6（1ターン）"], "hero_name": "春風の配達人 エイリーク"}]}`

const nativeCompactAllPrompt = `このFEHのスキル画面からスキル情報を抽出してください。

スキルの見分け方: スキルは枠線で囲まれたカード内に表示され、カード上部にスキルアイコン（丸型）と大きな文字のスキル名、その下に説明文が続きます。
英雄紹介やキャラクター説明のテキストはスキルではありません。この構造がない画面では skill_name を空文字 "" にしてください。

テキストは画面に表示されたものを一字一句正確に写してください。数値は半角で記述してください。
複数画像が送られた場合は同一スキルのスクロール続きです。重複部分を除去して結合してください。
skill_typeは「武器」「奥義」「サポート」「パッシブA」「パッシブB」「パッシブC」「響心」のいずれかです。

descriptionの改行ルール:
` + nativeLinebreakRules + `

例:
{"skill_name": "フィンブルの花", "skill_type": "武器", "weapon_type": "青魔法", "might": 14, "range": 2, "special_count": null, "description": ["ターン開始時、自身のHPが25%以上の時、自分と周囲2マスの味方の攻撃、速さ+6（1ターン）"], "hero_name": "春風の配達人 エイリーク"}`

const translatedSystemPrompt = `You are an expert at reading Fire Emblem Heroes skill screens.
Skills are displayed inside bordered cards with a circular skill icon and skill name at the top,
followed by the skill effect description below.
If the screen does not contain this card structure (e.g., hero introduction or character description),
indicate that no skills are present.
Extract only the skill names from the screenshots.`

const translatedNewOnlyPrompt = `Extract ONLY new skills from this FEH skill screen.

How to identify skill text:
- Skills are displayed inside bordered cards
- Each card has a skill icon (circular) and skill name in large text at the top
- Skill effect description follows below
- Hero introduction or character description text is NOT skill data
- If this screen does not have this card structure, return an empty array []

If this screen does not show a "Skills learnable" header (e.g., Harmonized Skill or Style screens), return an empty array [] — "!" marks only appear on skill list screens.

In the skill list, each row is laid out as: "!" indicator (shown only for new skills) → skill type icon (circular badge) → skill name.
The "!" is a small orange/yellow mark at the far left of the row.
Circular icons (skill type badges) are NOT the "!" indicator.
Skills without the "!" mark are not new — ignore them.

First check each skill for the "!" indicator, then extract only those with "!".
If no skills have "!", return an empty array: []

For each skill with "!", extract:
- skill_name: Skill name (string)
- skill_type: One of "Weapon", "Special", "Assist", "Passive A", "Passive B", "Passive C", "Harmonized"
- weapon_type: Weapon type (for weapons only)
- might: Might (for weapons only, integer)
- range: Range (for weapons only, integer)
- special_count: Special cooldown (for specials only, integer)
- description: Skill effect text (array of lines)
- hero_name: Hero name shown on this screen

Output as JSON array:
` + fence + `json
[{"skill_name": "Heroic Maltet", "skill_type": "Weapon", ...}]
` + fence

const translatedAllPrompt = `Extract the skill shown on this FEH skill screen as JSON.

- If this screen has no skill card (border + icon + skill name), set skill_name to an empty string ""
- If several images are sent they are scroll continuations of the same skill. Remove the overlap and join them.

Extract:
- skill_name: Skill name (string)
- skill_type: One of "Weapon", "Special", "Assist", "Passive A", "Passive B", "Passive C", "Harmonized"
- weapon_type: Weapon type (for weapons only)
- might: Might (for weapons only, integer)
- range: Range (for weapons only, integer)
- special_count: Special cooldown (for specials only, integer)
- description: Skill effect text (array of lines)
- hero_name: Hero name shown on this screen

Output JSON only:
` + fence + `json
{"skill_name": "Heroic Maltet", "skill_type": "Weapon", "weapon_type": "Staff", "might": 14, "range": 2, "special_count": null, "description": ["..."], "hero_name": "..."}
` + fence

const hintPreamble = `

参考情報（ローカルOCRによる事前読み取り結果）:
以下はOCRエンジンで読み取ったテキストです。誤読がある可能性があります。
画像の表示を正として、このテキストは読み取りの参考にしてください。

`

// AugmentWithHint appends a local OCR reading as reference text. The image
// stays authoritative; an empty hint leaves the prompt unchanged.
func AugmentWithHint(prompt, hint string) string {
	if hint == "" {
		return prompt
	}
	return prompt + hintPreamble + fence + "\n" + hint + "\n" + fence
}

func skillEntrySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skill_name":    map[string]any{"type": "string"},
			"skill_type":    map[string]any{"type": "string"},
			"weapon_type":   map[string]any{"type": "string", "nullable": true},
			"might":         map[string]any{"type": "integer", "nullable": true},
			"range":         map[string]any{"type": "integer", "nullable": true},
			"special_count": map[string]any{"type": "integer", "nullable": true},
			"description":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"hero_name":     map[string]any{"type": "string", "nullable": true},
		},
		"required": []string{"skill_name", "skill_type"},
	}
}

func skillListSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skills": map[string]any{"type": "array", "items": skillEntrySchema()},
		},
		"required": []string{"skills"},
	}
}

// Instruction is everything sent to a model for one group besides images.
type Instruction struct {
	System    string
	Prompt    string
	Format    types.ResponseFormat
	Schema    map[string]any
	MaxTokens int
}

// InstructionFor picks the prompt set for a track and mode.
func InstructionFor(track types.Track, onlyNew bool, profile string) Instruction {
	in := Instruction{MaxTokens: allMaxTokens, Format: types.FormatObject}
	if onlyNew {
		in.MaxTokens = newOnlyMaxTokens
		in.Format = types.FormatArray
	}

	if track == types.TrackTranslated {
		in.System = translatedSystemPrompt
		in.Prompt = translatedAllPrompt
		if onlyNew {
			in.Prompt = translatedNewOnlyPrompt
		}
		return in
	}

	if profile == ProfileCompact {
		in.Format = types.FormatObject
		in.Prompt = nativeCompactAllPrompt
		in.Schema = skillEntrySchema()
		if onlyNew {
			in.Prompt = nativeCompactNewOnlyPrompt
			in.Schema = skillListSchema()
		}
		return in
	}

	in.System = nativeSystemPrompt
	in.Prompt = nativeAllPrompt
	if onlyNew {
		in.Prompt = nativeNewOnlyPrompt
	}
	return in
}
