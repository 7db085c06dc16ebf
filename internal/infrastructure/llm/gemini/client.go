package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ymatsuda/snaptag/internal/core/domain"
	"github.com/ymatsuda/snaptag/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Client talks to the generative-language REST API. One instance is shared
// across all requests for the process lifetime.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// Generate renders one model completion. Safety-blocked and empty responses
// come back as empty text, not as errors; callers decide how to degrade.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: params.Temperature,
			TopP:        params.TopP,
		},
	}
	if params.JSONOutput {
		reqBody.GenerationConfig.ResponseMIMEType = "application/json"
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(c.model))

	var resp generateResponse
	call := func(callCtx context.Context) error {
		// Decode into a fresh struct per attempt so a retried call never
		// keeps fields from a partially decoded earlier body.
		var out generateResponse
		if err := c.postJSON(callCtx, path, reqBody, &out, "generate"); err != nil {
			return err
		}
		resp = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini_generate", call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}

	text := resp.text()
	if text == "" && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		slog.Warn("gemini_response_blocked", "block_reason", resp.PromptFeedback.BlockReason)
	}
	return text, nil
}
