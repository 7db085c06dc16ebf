package gvision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://vision.googleapis.com"

const (
	featureTextDetection  = "TEXT_DETECTION"
	featureLabelDetection = "LABEL_DETECTION"
)

// Client is the Vision images:annotate adapter. It implements both
// ports.TextRecognizer and ports.LabelDetector.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

// DetectText runs OCR over image bytes. No detected text is an empty string,
// not an error.
func (c *Client) DetectText(ctx context.Context, image []byte) (string, error) {
	resp, err := c.annotate(ctx, image, featureTextDetection)
	if err != nil {
		return "", err
	}
	if len(resp.TextAnnotations) == 0 {
		return "", nil
	}
	// The first annotation carries the whole detected text block.
	return resp.TextAnnotations[0].Description, nil
}

func (c *Client) DetectTextFromPath(ctx context.Context, path string) (string, error) {
	data, err := readImageFile(path)
	if err != nil {
		return "", err
	}
	return c.DetectText(ctx, data)
}

func (c *Client) DetectLabels(ctx context.Context, path string) ([]string, error) {
	data, err := readImageFile(path)
	if err != nil {
		return nil, err
	}
	resp, err := c.annotate(ctx, data, featureLabelDetection)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(resp.LabelAnnotations))
	for _, l := range resp.LabelAnnotations {
		labels = append(labels, l.Description)
	}
	return labels, nil
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotation struct {
	Description string `json:"description"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	TextAnnotations  []annotation   `json:"textAnnotations"`
	LabelAnnotations []annotation   `json:"labelAnnotations"`
	Error            *responseError `json:"error"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) annotate(ctx context.Context, image []byte, featureType string) (imageResponse, error) {
	reqBody := annotateRequest{
		Requests: []imageRequest{{
			Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{{Type: featureType}},
		}},
	}

	var resp annotateResponse
	call := func(callCtx context.Context) error {
		// Decode into a fresh struct per attempt so a retried call never
		// keeps fields from a partially decoded earlier body.
		var out annotateResponse
		if err := c.postJSON(callCtx, "/v1/images:annotate", reqBody, &out, "annotate"); err != nil {
			return err
		}
		resp = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "vision_annotate", call, classifyVisionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return imageResponse{}, err
	}

	if len(resp.Responses) == 0 {
		return imageResponse{}, nil
	}
	first := resp.Responses[0]
	if first.Error != nil {
		return imageResponse{}, fmt.Errorf("vision annotate: %s (code %d)", first.Error.Message, first.Error.Code)
	}
	return first, nil
}

func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "read image", err)
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
