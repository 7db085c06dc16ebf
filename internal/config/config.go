package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiModel   string `yaml:"gemini_model"`
	GeminiBaseURL string `yaml:"gemini_base_url"`

	OCRProvider   string `yaml:"ocr_provider"`
	OCRLanguages  string `yaml:"ocr_languages"`
	VisionAPIKey  string `yaml:"vision_api_key"`
	VisionBaseURL string `yaml:"vision_base_url"`

	PlacesAPIKey  string `yaml:"places_api_key"`
	PlacesBaseURL string `yaml:"places_base_url"`

	MaxFileSizeMB       int `yaml:"max_file_size_mb"`
	MaxBatchFiles       int `yaml:"max_batch_files"`
	PipelineConcurrency int `yaml:"pipeline_concurrency"`

	AllowedMIMETypes []string `yaml:"allowed_mime_types"`
	DeniedMIMETypes  []string `yaml:"denied_mime_types"`
}

// Load builds the configuration from defaults, then an optional YAML file
// named by SNAPTAG_CONFIG_FILE, then environment variables. Later sources
// win.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("SNAPTAG_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		GeminiModel: "gemini-2.5-flash",

		OCRProvider:  "gvision",
		OCRLanguages: "jpn+eng",

		MaxFileSizeMB:       10,
		MaxBatchFiles:       16,
		PipelineConcurrency: 4,

		AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif"},
		DeniedMIMETypes:  []string{"image/svg+xml"},
	}
}

func applyEnv(cfg *Config) {
	cfg.APIPort = envOr("API_PORT", cfg.APIPort)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = envOr("GEMINI_BASE_URL", cfg.GeminiBaseURL)

	cfg.OCRProvider = envOr("OCR_PROVIDER", cfg.OCRProvider)
	cfg.OCRLanguages = envOr("OCR_LANGUAGES", cfg.OCRLanguages)
	cfg.VisionAPIKey = envOr("VISION_API_KEY", cfg.VisionAPIKey)
	cfg.VisionBaseURL = envOr("VISION_BASE_URL", cfg.VisionBaseURL)

	cfg.PlacesAPIKey = envOr("PLACES_API_KEY", cfg.PlacesAPIKey)
	cfg.PlacesBaseURL = envOr("PLACES_BASE_URL", cfg.PlacesBaseURL)

	cfg.MaxFileSizeMB = envOrInt("MAX_FILE_SIZE_MB", cfg.MaxFileSizeMB)
	cfg.MaxBatchFiles = envOrInt("MAX_BATCH_FILES", cfg.MaxBatchFiles)
	cfg.PipelineConcurrency = envOrInt("PIPELINE_CONCURRENCY", cfg.PipelineConcurrency)
}

func (c Config) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
