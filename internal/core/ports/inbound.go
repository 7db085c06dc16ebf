package ports

import (
	"context"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

// ImageClassifier is the inbound contract for the single-item pipeline.
// ClassifyUpload never returns an error: every failure mode terminates in the
// returned BatchItemResult.
type ImageClassifier interface {
	ValidateUpload(up domain.Upload) error
	ClassifyUpload(ctx context.Context, up domain.Upload, catalog domain.TagCatalog) domain.BatchItemResult
}

// BatchClassifier runs the single-item pipeline across many uploads under a
// concurrency ceiling, preserving input order.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, uploads []domain.Upload, catalog domain.TagCatalog) ([]domain.BatchItemResult, error)
}

// ImageReader is the inbound contract for path-based OCR and label detection.
type ImageReader interface {
	ReadText(ctx context.Context, path string) (string, error)
	ReadLabels(ctx context.Context, path string) ([]string, error)
}
