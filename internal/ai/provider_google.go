package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// GoogleProvider implements Provider for Google Gemini.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL sets the base URL (for testing).
func WithGoogleBaseURL(url string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.client = client
	}
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// geminiRequest is the request body for the Gemini generateContent API.
type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

// geminiResponse is the response from the Gemini API. Pointers distinguish
// an absent field from an empty one.
type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason,omitempty"`
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultGeminiModel
	}

	gemReq := geminiRequest{Contents: make([]geminiContent, 0, len(req.Messages))}
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			// Gemini takes system text out of band.
			system = append(system, m.Content)
			continue
		case "assistant":
			gemReq.Contents = append(gemReq.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			gemReq.Contents = append(gemReq.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		gemReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}

	if req.MaxTokens > 0 || req.Temperature > 0 || req.JSONMode {
		config := &geminiGenerationConfig{}
		if req.MaxTokens > 0 {
			config.MaxOutputTokens = req.MaxTokens
		}
		if req.Temperature > 0 {
			temp := req.Temperature
			config.Temperature = &temp
		}
		if req.JSONMode {
			config.ResponseMIMEType = "application/json"
		}
		gemReq.GenerationConfig = config
	}

	body, err := json.Marshal(gemReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return CompletionResponse{}, fmt.Errorf("gemini api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(respBody, &gemResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("unmarshal response: %w: %w", ErrEmptyResponse, err)
	}

	text, err := gemResp.text()
	if err != nil {
		return CompletionResponse{}, err
	}

	return CompletionResponse{
		Content:      text,
		Model:        model,
		InputTokens:  gemResp.UsageMetadata.PromptTokenCount,
		OutputTokens: gemResp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// text extracts candidates[0].content.parts[0].text, naming the first
// missing level.
func (r geminiResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	c := r.Candidates[0]
	if c.Content == nil {
		return "", fmt.Errorf("%w: candidate has no content (finish reason %q)", ErrEmptyResponse, c.FinishReason)
	}
	if len(c.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: content has no parts", ErrEmptyResponse)
	}
	return c.Content.Parts[0].Text, nil
}

func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/models?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
