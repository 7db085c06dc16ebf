package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/core/extract"
	"github.com/ymatsuda/snaptag/internal/core/ports"
	"github.com/ymatsuda/snaptag/internal/observability/metrics"
)

type Router struct {
	classifier ports.ImageClassifier
	batch      ports.BatchClassifier
	reader     ports.ImageReader
	metrics    *metrics.HTTPServerMetrics

	service       string
	maxFileBytes  int64
	maxBatchFiles int
}

func NewRouter(
	classifier ports.ImageClassifier,
	batch ports.BatchClassifier,
	reader ports.ImageReader,
	m *metrics.HTTPServerMetrics,
	service string,
	maxFileBytes int64,
	maxBatchFiles int,
) *Router {
	return &Router{
		classifier:    classifier,
		batch:         batch,
		reader:        reader,
		metrics:       m,
		service:       service,
		maxFileBytes:  maxFileBytes,
		maxBatchFiles: maxBatchFiles,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ocr/text", rt.ocrText)
	mux.HandleFunc("/v1/vision/labels", rt.visionLabels)
	mux.HandleFunc("/v1/classify", rt.classify)
	mux.HandleFunc("/v1/classify/batch", rt.classifyBatch)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": rt.service, "status": "ok"})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ocrText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("file_path"))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'file_path' is required"})
		return
	}

	text, err := rt.reader.ReadText(r.Context(), path)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if text == "" {
		writeJSON(w, http.StatusOK, map[string]string{"text": "", "message": "No text detected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (rt *Router) visionLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("file_path"))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'file_path' is required"})
		return
	}

	labels, err := rt.reader.ReadLabels(r.Context(), path)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"labels": labels})
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	start := time.Now()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	up, err := rt.readUpload(file, fileHeader)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := rt.classifier.ValidateUpload(up); err != nil {
		rt.metrics.RecordClassifiedItem(rt.service, "rejected")
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	catalog := extract.CatalogOrDefault([]byte(r.FormValue("candidate_tags")))
	result := rt.classifier.ClassifyUpload(r.Context(), up, catalog)
	rt.recordItem(result)
	rt.metrics.RecordClassifyDuration(rt.service, "/v1/classify", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) classifyBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	start := time.Now()

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}
	if len(headers) > rt.maxBatchFiles {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("too many files: %d exceeds limit of %d", len(headers), rt.maxBatchFiles),
		})
		return
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable multipart file"})
			return
		}
		up, err := rt.readUpload(file, header)
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		uploads = append(uploads, up)
	}

	catalog := extract.CatalogOrDefault([]byte(r.FormValue("candidate_tags")))
	results, err := rt.batch.ClassifyBatch(r.Context(), uploads, catalog)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	for _, result := range results {
		rt.recordItem(result)
	}
	rt.metrics.RecordBatchSize(rt.service, len(uploads))
	rt.metrics.RecordClassifyDuration(rt.service, "/v1/classify/batch", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// readUpload buffers one multipart file, reading at most one byte past the
// size limit so the validation layer can reject oversized files without the
// handler holding the whole payload.
func (rt *Router) readUpload(file multipart.File, header *multipart.FileHeader) (domain.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, rt.maxFileBytes+1))
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read multipart file: %w", err)
	}
	return domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (rt *Router) recordItem(result domain.BatchItemResult) {
	switch {
	case !result.OK:
		rt.metrics.RecordClassifiedItem(rt.service, "error")
	case result.Record != nil && result.Record.Success:
		rt.metrics.RecordClassifiedItem(rt.service, "model")
	default:
		rt.metrics.RecordClassifiedItem(rt.service, "fallback")
	}
	if result.OK && result.Record != nil && result.Record.Location != "" {
		rt.metrics.RecordEnrichment(rt.service, result.Record.Place != nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
