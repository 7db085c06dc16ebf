package extract

import (
	"errors"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

var (
	errResultsMissing  = errors.New("results missing or empty")
	errResultNotObject = errors.New("first result is not an object")
)

// NormalizeRecord coerces a parsed model payload into the canonical record.
// Individual fields are coerced with per-field defaults and cannot fail; the
// only failure modes are a missing/empty results list or a non-object first
// element, which route the caller to the heuristic fallback.
func NormalizeRecord(payload map[string]any, catalog domain.TagCatalog) (domain.ClassificationRecord, error) {
	results, ok := payload["results"].([]any)
	if !ok || len(results) == 0 {
		return domain.ClassificationRecord{}, errResultsMissing
	}
	item, ok := results[0].(map[string]any)
	if !ok {
		return domain.ClassificationRecord{}, errResultNotObject
	}

	rec := domain.ClassificationRecord{
		Success:     asBool(item["status.success"]),
		Tag:         asString(item["tag"]),
		Title:       asString(item["title"]),
		Location:    asString(item["location"]),
		Description: asString(item["description"]),
	}

	if !catalog.Contains(rec.Tag) {
		rec.Tag = domain.OverflowTag
	}
	// Suggestion fields only survive on the overflow tag.
	if rec.Tag == domain.OverflowTag {
		rec.SuggestedTagName = asString(item["suggest_tag_title"])
		rec.SuggestedTagDescription = asString(item["suggest_tag_description"])
	}

	return rec, nil
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
