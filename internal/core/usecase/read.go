package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ymatsuda/snaptag/internal/core/ports"
)

// ReadImageUseCase exposes path-based OCR and label detection for images
// already on disk.
type ReadImageUseCase struct {
	ocr    ports.TextRecognizer
	labels ports.LabelDetector
}

func NewReadImageUseCase(ocr ports.TextRecognizer, labels ports.LabelDetector) *ReadImageUseCase {
	return &ReadImageUseCase{ocr: ocr, labels: labels}
}

func (uc *ReadImageUseCase) ReadText(ctx context.Context, path string) (string, error) {
	text, err := uc.ocr.DetectTextFromPath(ctx, path)
	if err != nil {
		return "", fmt.Errorf("detect text: %w", err)
	}
	return text, nil
}

func (uc *ReadImageUseCase) ReadLabels(ctx context.Context, path string) ([]string, error) {
	if uc.labels == nil {
		return nil, errors.New("label detection is not available with the configured ocr provider")
	}
	labels, err := uc.labels.DetectLabels(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}
	return labels, nil
}
