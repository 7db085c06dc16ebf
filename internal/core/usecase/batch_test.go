package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

// itemClassifierFake lets batch tests control per-item latency and outcome
// without touching OCR or the model.
type itemClassifierFake struct {
	delay   func(filename string) time.Duration
	outcome func(filename string) domain.BatchItemResult

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (f *itemClassifierFake) ValidateUpload(domain.Upload) error { return nil }

func (f *itemClassifierFake) ClassifyUpload(_ context.Context, up domain.Upload, _ domain.TagCatalog) domain.BatchItemResult {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(up.Filename))
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.outcome != nil {
		return f.outcome(up.Filename)
	}
	return domain.BatchItemResult{
		Filename: up.Filename,
		OK:       true,
		Record:   &domain.ClassificationRecord{Tag: "location", Title: up.Filename},
	}
}

func uploads(n int) []domain.Upload {
	ups := make([]domain.Upload, n)
	for i := range ups {
		ups[i] = domain.Upload{
			Filename:    fmt.Sprintf("file-%03d.png", i),
			ContentType: "image/png",
			Data:        []byte{1},
		}
	}
	return ups
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	fake := &itemClassifierFake{
		delay: func(string) time.Duration {
			return time.Duration(rand.Intn(20)) * time.Millisecond
		},
	}
	uc := NewBatchUseCase(fake, 64, 8)

	ups := uploads(32)
	results, err := uc.ClassifyBatch(context.Background(), ups, domain.DefaultCatalog())
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}
	if len(results) != len(ups) {
		t.Fatalf("expected %d results, got %d", len(ups), len(results))
	}
	for i, res := range results {
		if res.Filename != ups[i].Filename {
			t.Fatalf("position %d: expected %q, got %q", i, ups[i].Filename, res.Filename)
		}
	}
}

func TestClassifyBatchHonorsConcurrencyCeiling(t *testing.T) {
	const ceiling = 3
	fake := &itemClassifierFake{
		delay: func(string) time.Duration { return 5 * time.Millisecond },
	}
	uc := NewBatchUseCase(fake, 64, ceiling)

	if _, err := uc.ClassifyBatch(context.Background(), uploads(24), domain.DefaultCatalog()); err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}
	if fake.peak > ceiling {
		t.Fatalf("observed %d concurrent pipelines, ceiling is %d", fake.peak, ceiling)
	}
	if fake.peak == 0 {
		t.Fatalf("no pipeline ever ran")
	}
}

func TestClassifyBatchIsolatesFailures(t *testing.T) {
	const broken = "file-007.png"
	fake := &itemClassifierFake{
		outcome: func(filename string) domain.BatchItemResult {
			if filename == broken {
				return domain.BatchItemResult{Filename: filename, Error: "internal error: injected"}
			}
			return domain.BatchItemResult{
				Filename: filename,
				OK:       true,
				Record:   &domain.ClassificationRecord{Tag: "location", Title: filename},
			}
		},
	}
	uc := NewBatchUseCase(fake, 64, 4)

	results, err := uc.ClassifyBatch(context.Background(), uploads(16), domain.DefaultCatalog())
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}
	for _, res := range results {
		if res.Filename == broken {
			if res.OK {
				t.Fatalf("injected failure was not reported")
			}
			continue
		}
		if !res.OK || res.Record == nil || res.Record.Title != res.Filename {
			t.Fatalf("sibling item affected by injected failure: %+v", res)
		}
	}
}

func TestClassifyBatchRejectsOversizedBatchUpfront(t *testing.T) {
	var calls atomic.Int64
	fake := &itemClassifierFake{
		outcome: func(filename string) domain.BatchItemResult {
			calls.Add(1)
			return domain.BatchItemResult{Filename: filename, OK: true}
		},
	}
	uc := NewBatchUseCase(fake, 4, 2)

	_, err := uc.ClassifyBatch(context.Background(), uploads(5), domain.DefaultCatalog())
	if err == nil {
		t.Fatalf("expected batch-size rejection")
	}
	if !domain.IsKind(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("oversized batch must be rejected before any work, saw %d calls", calls.Load())
	}
}

func TestClassifyBatchRejectsEmptyBatch(t *testing.T) {
	uc := NewBatchUseCase(&itemClassifierFake{}, 4, 2)
	if _, err := uc.ClassifyBatch(context.Background(), nil, domain.DefaultCatalog()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
