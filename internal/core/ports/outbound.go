package ports

import (
	"context"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

// TextRecognizer extracts text from an image. An image with no readable text
// yields an empty string, not an error. Path-based detection surfaces a
// missing file as domain.ErrNotFound.
type TextRecognizer interface {
	DetectText(ctx context.Context, image []byte) (string, error)
	DetectTextFromPath(ctx context.Context, path string) (string, error)
}

// LabelDetector lists visual labels for a stored image.
type LabelDetector interface {
	DetectLabels(ctx context.Context, path string) ([]string, error)
}

// TextGenerator calls the generative model with a rendered prompt. Failures
// surface as errors, never as panics; an empty response is a valid outcome.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error)
}

// PlaceSearcher resolves a free-text query to place data. A miss is (nil, nil);
// callers treat every failure mode as "no place".
type PlaceSearcher interface {
	SearchText(ctx context.Context, query string) (*domain.PlaceInfo, error)
}
