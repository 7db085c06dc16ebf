package extract

import (
	"encoding/json"
	"strings"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

const classifyPromptTemplate = `以下はOCRで読み取った内容です。以下の情報を抽出してください：

1. ジャンル（ご飯屋 / 観光地 / 本 / 乗り換え案内 / その他）
2. タイトル（店名・本の名前など）
3. 場所（住所・市区町村・駅名など）
4. 備考（価格・営業時間・感想などがあれば）

※ 出力は **厳密なJSON**。前置き・コードフェンスは禁止。
※ title は必ず OCR から抽出（ファイル名は使わない）。
※ どの候補タグにも当てはまらない場合は tag を "others" とし、suggest_tag_title / suggest_tag_description に新しいタグ案を入れる。

候補タグ:
${candidate_tags}

### OCRテキスト：
${ocr_text}

出力（このJSONのみ）:
{
  "results": [
    {
      "status.success": true,
      "tag": "<候補タグの中から1つ>",
      "title": "<OCRから抽出した短いタイトル>",
      "location": "<住所/駅/地名/URLなど。無ければ空文字>",
      "description": "<要点の短い説明（1〜2文以内）。無ければ空文字>",
      "suggest_tag_title": "<tagがothersの時のみ。新タグ名>",
      "suggest_tag_description": "<tagがothersの時のみ。新タグの説明>"
    }
  ]
}`

// BuildPrompt renders the classification prompt for the given catalog and OCR
// text. Deterministic and side-effect free.
func BuildPrompt(catalog domain.TagCatalog, ocrText string) string {
	tagsJSON, err := json.Marshal(catalog.Pairs())
	if err != nil {
		// Pairs is [][]string; marshaling cannot fail.
		tagsJSON = []byte("[]")
	}
	return renderTemplate(classifyPromptTemplate, map[string]string{
		"candidate_tags": string(tagsJSON),
		"ocr_text":       ocrText,
	})
}

// renderTemplate substitutes ${name} placeholders in a single left-to-right
// pass over the template. Substituted values are emitted verbatim and never
// rescanned, so placeholder-like substrings in OCR text stay literal. Unknown
// placeholders are kept as-is.
func renderTemplate(tmpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for {
		start := strings.Index(tmpl, "${")
		if start < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.Index(tmpl[start:], "}")
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end += start

		name := tmpl[start+2 : end]
		value, ok := vars[name]
		b.WriteString(tmpl[:start])
		if ok {
			b.WriteString(value)
		} else {
			b.WriteString(tmpl[start : end+1])
		}
		tmpl = tmpl[end+1:]
	}
}
