package extract

import (
	"strings"
	"testing"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

func TestBuildPromptEmbedsCatalogAndText(t *testing.T) {
	catalog := domain.TagCatalog{
		{Tag: "recipes", Description: "料理のスクショ"},
		{Tag: "workout", Description: "トレーニング記録"},
	}
	prompt := BuildPrompt(catalog, "鶏むね肉 300g\nオーブン 200度")

	for _, want := range []string{`["recipes","料理のスクショ"]`, `["workout","トレーニング記録"]`, "鶏むね肉 300g"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "${candidate_tags}") || strings.Contains(prompt, "${ocr_text}") {
		t.Fatalf("unsubstituted placeholder left in prompt")
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	catalog := domain.DefaultCatalog()
	a := BuildPrompt(catalog, "同じ入力")
	b := BuildPrompt(catalog, "同じ入力")
	if a != b {
		t.Fatalf("prompt must be deterministic for identical inputs")
	}
}

func TestBuildPromptOCRTextIsNotReinterpreted(t *testing.T) {
	// OCR text containing the template's own placeholder syntax must come
	// through verbatim, not get substituted.
	hostile := "price: $100 ${ocr_text} ${candidate_tags} $$ {not json}"
	prompt := BuildPrompt(domain.DefaultCatalog(), hostile)
	if !strings.Contains(prompt, hostile) {
		t.Fatalf("ocr text was reinterpreted:\n%s", prompt)
	}
}

func TestRenderTemplateKeepsUnknownPlaceholders(t *testing.T) {
	out := renderTemplate("a ${known} b ${unknown} c", map[string]string{"known": "X"})
	if out != "a X b ${unknown} c" {
		t.Fatalf("unexpected render %q", out)
	}
}

func TestRenderTemplateUnterminatedPlaceholder(t *testing.T) {
	out := renderTemplate("tail ${never", map[string]string{"never": "X"})
	if out != "tail ${never" {
		t.Fatalf("unexpected render %q", out)
	}
}
