package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/ymatsuda/snaptag/internal/config"
	"github.com/ymatsuda/snaptag/internal/core/ports"
	"github.com/ymatsuda/snaptag/internal/core/usecase"
	"github.com/ymatsuda/snaptag/internal/infrastructure/llm/gemini"
	"github.com/ymatsuda/snaptag/internal/infrastructure/ocr/gvision"
	"github.com/ymatsuda/snaptag/internal/infrastructure/ocr/tesseract"
	"github.com/ymatsuda/snaptag/internal/infrastructure/places/googleplaces"
	"github.com/ymatsuda/snaptag/internal/infrastructure/resilience"
	"github.com/ymatsuda/snaptag/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	ClassifyUC *usecase.ClassifyUseCase
	BatchUC    *usecase.BatchUseCase
	ReadUC     *usecase.ReadImageUseCase

	closeFn func()
}

func New(cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("snaptag", cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var (
		recognizer ports.TextRecognizer
		labels     ports.LabelDetector
		closeFn    func()
	)
	switch cfg.OCRProvider {
	case "gvision", "":
		vision := gvision.New(cfg.VisionBaseURL, cfg.VisionAPIKey, executor)
		recognizer = vision
		labels = vision
	case "tesseract":
		local, err := tesseract.New(cfg.OCRLanguages)
		if err != nil {
			return nil, fmt.Errorf("init tesseract: %w", err)
		}
		recognizer = local
		closeFn = func() { _ = local.Close() }
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.OCRProvider)
	}

	generator := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, executor)

	// Enrichment is optional. Without a Places key records simply carry no
	// map link.
	var places ports.PlaceSearcher
	if cfg.PlacesAPIKey != "" {
		places = googleplaces.New(cfg.PlacesBaseURL, cfg.PlacesAPIKey)
	}

	policy := usecase.UploadPolicy{
		AllowedMIMETypes: cfg.AllowedMIMETypes,
		DeniedMIMETypes:  cfg.DeniedMIMETypes,
		MaxFileBytes:     cfg.MaxFileBytes(),
	}

	classifyUC := usecase.NewClassifyUseCase(recognizer, generator, places, policy, logger)
	batchUC := usecase.NewBatchUseCase(classifyUC, cfg.MaxBatchFiles, cfg.PipelineConcurrency)
	readUC := usecase.NewReadImageUseCase(recognizer, labels)

	return &App{
		Config: cfg,
		Logger: logger,

		ClassifyUC: classifyUC,
		BatchUC:    batchUC,
		ReadUC:     readUC,

		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
