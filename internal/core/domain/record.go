package domain

// OverflowTag is the sentinel category for text that fits no catalog entry.
// Suggestion fields are only meaningful on records carrying it.
const OverflowTag = "others"

// ClassificationRecord is the canonical output of the extraction pipeline.
// Success is true only when the record came from the generative model and
// survived normalization; heuristic fallback records always carry false.
type ClassificationRecord struct {
	Success                 bool       `json:"status.success"`
	Tag                     string     `json:"tag"`
	Title                   string     `json:"title"`
	Location                string     `json:"location"`
	Description             string     `json:"description"`
	SuggestedTagName        string     `json:"suggest_tag_title,omitempty"`
	SuggestedTagDescription string     `json:"suggest_tag_description,omitempty"`
	Place                   *PlaceInfo `json:"place,omitempty"`
}

// PlaceInfo is the optional geodata attached by the place enricher.
type PlaceInfo struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MapURL      string  `json:"map_url"`
	DisplayName string  `json:"display_name,omitempty"`
}

// Upload is one uploaded image entering the single-item pipeline.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BatchItemResult is the terminal outcome for one batch item. Exactly one of
// Record and Error is set: Error describes why the item never reached the
// pipeline (bad mime, empty, oversized, internal defect).
type BatchItemResult struct {
	Filename string                `json:"filename"`
	OK       bool                  `json:"ok"`
	Record   *ClassificationRecord `json:"record,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// GenerationParams tunes a single generative-model call.
type GenerationParams struct {
	Temperature float64
	TopP        float64
	JSONOutput  bool
}
