package tesseract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

// Recognizer runs OCR locally through the tesseract engine. It implements
// ports.TextRecognizer for deployments without a Vision API key.
//
// gosseract clients are not safe for concurrent use, so a single client is
// guarded by a mutex. Batch throughput is bounded by the pipeline worker
// count upstream, not here.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func New(languages string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if languages != "" {
		langs := strings.Split(languages, "+")
		if err := client.SetLanguage(langs...); err != nil {
			client.Close()
			return nil, fmt.Errorf("set tesseract languages: %w", err)
		}
	}
	return &Recognizer{client: client}, nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

func (r *Recognizer) DetectText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set tesseract image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (r *Recognizer) DetectTextFromPath(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrNotFound, "read image", err)
		}
		return "", fmt.Errorf("read image: %w", err)
	}
	return r.DetectText(ctx, data)
}
