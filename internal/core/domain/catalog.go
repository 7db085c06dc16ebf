package domain

// TagEntry is one allowed classification category with its description.
type TagEntry struct {
	Tag         string
	Description string
}

// TagCatalog is the ordered, caller-supplied set of allowed categories.
// It is read-only once built and safe to share across concurrent pipelines.
type TagCatalog []TagEntry

// DefaultCatalog returns the built-in four-tag catalog used when the caller
// supplies none. Descriptions match the prompt the model is trained against.
func DefaultCatalog() TagCatalog {
	return TagCatalog{
		{Tag: "location", Description: "行きたい場所、泊まりたい場所など。位置情報を持つ"},
		{Tag: "train", Description: "時刻表など。どの駅に何時発の電車が、どの駅に何時につくか"},
		{Tag: "things", Description: "ほしいもの"},
		{Tag: OverflowTag, Description: "上記のどれにも当てはまらないもの"},
	}
}

// Contains reports whether tag is a member of the catalog.
func (c TagCatalog) Contains(tag string) bool {
	for _, entry := range c {
		if entry.Tag == tag {
			return true
		}
	}
	return false
}

// First returns the catalog's first tag, or OverflowTag for an empty catalog.
func (c TagCatalog) First() string {
	if len(c) == 0 {
		return OverflowTag
	}
	return c[0].Tag
}

// Pairs renders the catalog in its wire shape: [[tag, description], ...].
func (c TagCatalog) Pairs() [][]string {
	pairs := make([][]string, 0, len(c))
	for _, entry := range c {
		pairs = append(pairs, []string{entry.Tag, entry.Description})
	}
	return pairs
}
