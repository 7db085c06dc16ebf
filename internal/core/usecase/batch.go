package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/core/ports"
)

// BatchUseCase fans the single-item pipeline out over a batch of uploads.
// At most `concurrency` pipelines run at once; results land at the index of
// their input item regardless of completion order.
type BatchUseCase struct {
	classifier  ports.ImageClassifier
	maxItems    int
	concurrency int
}

func NewBatchUseCase(classifier ports.ImageClassifier, maxItems, concurrency int) *BatchUseCase {
	if maxItems <= 0 {
		maxItems = 16
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchUseCase{
		classifier:  classifier,
		maxItems:    maxItems,
		concurrency: concurrency,
	}
}

// ClassifyBatch runs every admitted item to a terminal result. The batch-size
// cap is checked before any work starts; past that point one item's failure
// never aborts or delays the others.
func (uc *BatchUseCase) ClassifyBatch(ctx context.Context, uploads []domain.Upload, catalog domain.TagCatalog) ([]domain.BatchItemResult, error) {
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify batch", errors.New("no files provided"))
	}
	if len(uploads) > uc.maxItems {
		return nil, domain.WrapError(domain.ErrTooLarge, "classify batch",
			fmt.Errorf("%d files exceeds batch limit %d", len(uploads), uc.maxItems))
	}

	results := make([]domain.BatchItemResult, len(uploads))
	sem := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup

	for i, up := range uploads {
		wg.Add(1)
		go func(idx int, item domain.Upload) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = uc.classifier.ClassifyUpload(ctx, item, catalog)
		}(i, up)
	}
	wg.Wait()

	return results, nil
}
