package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

// Catalog wire format: a JSON array of [tag, description] string pairs.
const catalogSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "array",
		"items": {"type": "string"},
		"minItems": 2,
		"maxItems": 2
	}
}`

var catalogSchema = jsonschema.MustCompileString("catalog.schema.json", catalogSchemaJSON)

// ParseCatalog decodes and validates the catalog wire format.
func ParseCatalog(raw []byte) (domain.TagCatalog, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	if err := catalogSchema.Validate(value); err != nil {
		return nil, fmt.Errorf("catalog does not match schema: %w", err)
	}

	pairs := value.([]any)
	catalog := make(domain.TagCatalog, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		pair := p.([]any)
		tag := strings.TrimSpace(pair[0].(string))
		if tag == "" {
			return nil, errors.New("catalog contains an empty tag")
		}
		if _, dup := seen[tag]; dup {
			return nil, fmt.Errorf("catalog contains duplicate tag %q", tag)
		}
		seen[tag] = struct{}{}
		catalog = append(catalog, domain.TagEntry{Tag: tag, Description: pair[1].(string)})
	}
	return catalog, nil
}

// CatalogOrDefault parses caller-supplied catalog JSON and falls back to the
// built-in catalog when the input is absent or invalid.
func CatalogOrDefault(raw []byte) domain.TagCatalog {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return domain.DefaultCatalog()
	}
	catalog, err := ParseCatalog(raw)
	if err != nil {
		return domain.DefaultCatalog()
	}
	return catalog
}
