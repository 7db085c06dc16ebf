package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/core/extract"
	"github.com/ymatsuda/snaptag/internal/core/ports"
)

// UploadPolicy gates uploads before the pipeline runs.
type UploadPolicy struct {
	AllowedMIMETypes []string
	DeniedMIMETypes  []string
	MaxFileBytes     int64
}

// MIMEAllowed requires an image/* content type that is not denylisted and,
// when an allowlist is configured, is a member of it.
func (p UploadPolicy) MIMEAllowed(mime string) bool {
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		return false
	}
	for _, denied := range p.DeniedMIMETypes {
		if mime == denied {
			return false
		}
	}
	if len(p.AllowedMIMETypes) == 0 {
		return true
	}
	for _, allowed := range p.AllowedMIMETypes {
		if mime == allowed {
			return true
		}
	}
	return false
}

// ClassifyUseCase is the single-item pipeline: upload gates, OCR, model
// classification with heuristic fallback, best-effort place enrichment.
type ClassifyUseCase struct {
	ocr       ports.TextRecognizer
	generator ports.TextGenerator
	places    ports.PlaceSearcher
	policy    UploadPolicy
	logger    *slog.Logger
}

func NewClassifyUseCase(
	ocr ports.TextRecognizer,
	generator ports.TextGenerator,
	places ports.PlaceSearcher,
	policy UploadPolicy,
	logger *slog.Logger,
) *ClassifyUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyUseCase{
		ocr:       ocr,
		generator: generator,
		places:    places,
		policy:    policy,
		logger:    logger,
	}
}

// ValidateUpload applies the mime and size gates. These are the only terminal
// failures the pipeline knows.
func (uc *ClassifyUseCase) ValidateUpload(up domain.Upload) error {
	if !uc.policy.MIMEAllowed(up.ContentType) {
		return domain.WrapError(domain.ErrUnsupportedMedia, "validate upload",
			fmt.Errorf("content type %q", up.ContentType))
	}
	if len(up.Data) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("empty file"))
	}
	if uc.policy.MaxFileBytes > 0 && int64(len(up.Data)) > uc.policy.MaxFileBytes {
		return domain.WrapError(domain.ErrTooLarge, "validate upload",
			fmt.Errorf("%d bytes exceeds limit %d", len(up.Data), uc.policy.MaxFileBytes))
	}
	return nil
}

// ClassifyUpload runs one upload to a terminal BatchItemResult. Past the
// upload gates no error escapes: OCR and model failures degrade to the
// heuristic fallback, and a panic anywhere below becomes an ok=false result.
func (uc *ClassifyUseCase) ClassifyUpload(ctx context.Context, up domain.Upload, catalog domain.TagCatalog) (result domain.BatchItemResult) {
	name := up.Filename
	if name == "" {
		name = "unnamed"
	}

	if err := uc.ValidateUpload(up); err != nil {
		return domain.BatchItemResult{Filename: name, Error: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("pipeline_panic", "filename", name, "panic", fmt.Sprint(r))
			result = domain.BatchItemResult{
				Filename: name,
				Error:    fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	text, err := uc.ocr.DetectText(ctx, up.Data)
	if err != nil {
		// Classification over empty text is well-defined and lands in the
		// fallback, so an OCR failure is not terminal.
		uc.logger.Warn("ocr_failed", "filename", name, "error", err)
		text = ""
	}

	rec := uc.ClassifyText(ctx, text, catalog)
	uc.enrich(ctx, &rec)

	return domain.BatchItemResult{Filename: name, OK: true, Record: &rec}
}

// ClassifyText turns OCR text into a record via the model, routing every model
// failure mode to the deterministic fallback.
func (uc *ClassifyUseCase) ClassifyText(ctx context.Context, ocrText string, catalog domain.TagCatalog) domain.ClassificationRecord {
	if len(catalog) == 0 {
		catalog = domain.DefaultCatalog()
	}

	prompt := extract.BuildPrompt(catalog, ocrText)
	raw, err := uc.generator.Generate(ctx, prompt, domain.GenerationParams{
		Temperature: 0.2,
		TopP:        0.8,
		JSONOutput:  true,
	})
	if err != nil {
		uc.logger.Warn("model_generate_failed", "error", err)
		return extract.FallbackFromText(ocrText, catalog)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		uc.logger.Warn("model_empty_response")
		return extract.FallbackFromText(ocrText, catalog)
	}

	payload, err := extract.ParseModelResponse(raw)
	if err != nil {
		uc.logger.Warn("model_response_unparseable", "error", err, "excerpt", excerpt(raw))
		return extract.FallbackFromText(ocrText, catalog)
	}

	rec, err := extract.NormalizeRecord(payload, catalog)
	if err != nil {
		uc.logger.Warn("model_response_rejected", "error", err, "excerpt", excerpt(raw))
		return extract.FallbackFromText(ocrText, catalog)
	}
	return rec
}

// enrich attaches place data to location-bearing records. Strictly best
// effort: lookup errors are logged and swallowed, a miss leaves Place nil.
func (uc *ClassifyUseCase) enrich(ctx context.Context, rec *domain.ClassificationRecord) {
	if uc.places == nil || rec.Location == "" {
		return
	}
	query := strings.TrimSpace(rec.Title + " " + rec.Location)
	place, err := uc.places.SearchText(ctx, query)
	if err != nil {
		uc.logger.Warn("place_lookup_failed", "query", query, "error", err)
		return
	}
	rec.Place = place
}

func excerpt(s string) string {
	const max = 200
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
