package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/observability/metrics"
)

type classifierFake struct {
	validateErr error
	result      domain.BatchItemResult
	gotUpload   domain.Upload
	gotCatalog  domain.TagCatalog
}

func (f *classifierFake) ValidateUpload(up domain.Upload) error {
	return f.validateErr
}

func (f *classifierFake) ClassifyUpload(ctx context.Context, up domain.Upload, catalog domain.TagCatalog) domain.BatchItemResult {
	f.gotUpload = up
	f.gotCatalog = catalog
	return f.result
}

type batchFake struct {
	results    []domain.BatchItemResult
	err        error
	gotUploads []domain.Upload
}

func (f *batchFake) ClassifyBatch(ctx context.Context, uploads []domain.Upload, catalog domain.TagCatalog) ([]domain.BatchItemResult, error) {
	f.gotUploads = uploads
	return f.results, f.err
}

type readerFake struct {
	text      string
	labels    []string
	textErr   error
	labelsErr error
	gotPath   string
}

func (f *readerFake) ReadText(ctx context.Context, path string) (string, error) {
	f.gotPath = path
	return f.text, f.textErr
}

func (f *readerFake) ReadLabels(ctx context.Context, path string) ([]string, error) {
	f.gotPath = path
	return f.labels, f.labelsErr
}

func newTestRouter(classifier *classifierFake, batch *batchFake, reader *readerFake) *Router {
	return NewRouter(
		classifier,
		batch,
		reader,
		metrics.NewHTTPServerMetrics("snaptag-test"),
		"snaptag-test",
		10<<20,
		16,
	)
}

func multipartBody(t *testing.T, field string, files map[string][]byte, tags string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if tags != "" {
		if err := writer.WriteField("candidate_tags", tags); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestOCRTextRequiresPath(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	req := httptest.NewRequest(http.MethodGet, "/v1/ocr/text", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestOCRTextHappyPath(t *testing.T) {
	reader := &readerFake{text: "東京駅 10:30発"}
	router := newTestRouter(&classifierFake{}, &batchFake{}, reader)
	req := httptest.NewRequest(http.MethodGet, "/v1/ocr/text?file_path=/tmp/ticket.png", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["text"] != "東京駅 10:30発" {
		t.Fatalf("unexpected text %q", payload["text"])
	}
	if reader.gotPath != "/tmp/ticket.png" {
		t.Fatalf("unexpected path %q", reader.gotPath)
	}
}

func TestOCRTextEmptyCarriesMessage(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	req := httptest.NewRequest(http.MethodGet, "/v1/ocr/text?file_path=/tmp/blank.png", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["message"] != "No text detected" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestOCRTextMissingFileMapsTo404(t *testing.T) {
	reader := &readerFake{textErr: domain.WrapError(domain.ErrNotFound, "read image", io.ErrUnexpectedEOF)}
	router := newTestRouter(&classifierFake{}, &batchFake{}, reader)
	req := httptest.NewRequest(http.MethodGet, "/v1/ocr/text?file_path=/tmp/missing.png", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestVisionLabels(t *testing.T) {
	reader := &readerFake{labels: []string{"Train", "Station"}}
	router := newTestRouter(&classifierFake{}, &batchFake{}, reader)
	req := httptest.NewRequest(http.MethodGet, "/v1/vision/labels?file_path=/tmp/photo.png", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var payload map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload["labels"]) != 2 {
		t.Fatalf("unexpected labels %v", payload["labels"])
	}
}

func TestClassifySingle(t *testing.T) {
	classifier := &classifierFake{result: domain.BatchItemResult{
		Filename: "ticket.png",
		OK:       true,
		Record: &domain.ClassificationRecord{
			Success: true,
			Tag:     "train",
			Title:   "東京駅",
		},
	}}
	router := newTestRouter(classifier, &batchFake{}, &readerFake{})

	body, contentType := multipartBody(t, "file", map[string][]byte{"ticket.png": []byte("img-bytes")}, `[["train","乗換案内"]]`)
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.BatchItemResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.OK || result.Record == nil || result.Record.Tag != "train" {
		t.Fatalf("unexpected result %+v", result)
	}
	if classifier.gotUpload.Filename != "ticket.png" {
		t.Fatalf("unexpected upload filename %q", classifier.gotUpload.Filename)
	}
	if string(classifier.gotUpload.Data) != "img-bytes" {
		t.Fatal("upload bytes not forwarded")
	}
	if len(classifier.gotCatalog) != 1 || classifier.gotCatalog[0].Tag != "train" {
		t.Fatalf("unexpected catalog %+v", classifier.gotCatalog)
	}
}

func TestClassifyRejectsUnsupportedMedia(t *testing.T) {
	classifier := &classifierFake{
		validateErr: domain.WrapError(domain.ErrUnsupportedMedia, "validate upload", io.ErrUnexpectedEOF),
	}
	router := newTestRouter(classifier, &batchFake{}, &readerFake{})

	body, contentType := multipartBody(t, "file", map[string][]byte{"vector.svg": []byte("<svg/>")}, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestClassifyRequiresFile(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestClassifyBatchPreservesResults(t *testing.T) {
	batch := &batchFake{results: []domain.BatchItemResult{
		{Filename: "a.png", OK: true, Record: &domain.ClassificationRecord{Success: true, Tag: "train"}},
		{Filename: "b.png", OK: false, Error: "internal error"},
	}}
	router := newTestRouter(&classifierFake{}, batch, &readerFake{})

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.png": []byte("aaa"),
		"b.png": []byte("bbb"),
	}, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/classify/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Results []domain.BatchItemResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Results) != 2 {
		t.Fatalf("unexpected result count %d", len(payload.Results))
	}
	if payload.Results[1].Error != "internal error" {
		t.Fatalf("unexpected error field %q", payload.Results[1].Error)
	}
	if len(batch.gotUploads) != 2 {
		t.Fatalf("unexpected upload count %d", len(batch.gotUploads))
	}
}

func TestClassifyBatchRejectsTooManyFiles(t *testing.T) {
	batch := &batchFake{}
	router := newTestRouter(&classifierFake{}, batch, &readerFake{})

	files := make(map[string][]byte)
	for i := 0; i < 17; i++ {
		files["file-"+string(rune('a'+i))+".png"] = []byte("x")
	}
	body, contentType := multipartBody(t, "files", files, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/classify/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if batch.gotUploads != nil {
		t.Fatal("batch should not run when the file count exceeds the limit")
	}
}

func TestClassifyBatchRequiresFiles(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	body, contentType := multipartBody(t, "unused", map[string][]byte{}, `[["train","乗換案内"]]`)
	req := httptest.NewRequest(http.MethodPost, "/v1/classify/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&classifierFake{}, &batchFake{}, &readerFake{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
