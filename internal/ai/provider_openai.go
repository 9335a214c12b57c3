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
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL   = "https://api.deepseek.com"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible APIs
// (DeepSeek, OpenRouter, Ollama) via a configurable base URL.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	name         string
	defaultModel string
	headers      map[string]string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithBaseURL sets the base URL for the OpenAI-compatible API.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.client = client
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.defaultModel = model
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.headers[key] = value
	}
}

// WithProviderName sets the provider name used in error messages.
func WithProviderName(name string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.name = name
	}
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      defaultOpenAIBaseURL,
		client:       http.DefaultClient,
		name:         "openai",
		defaultModel: "gpt-4o-mini",
		headers:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDeepSeekProvider creates a provider for the DeepSeek API.
func NewDeepSeekProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultDeepSeekBaseURL),
		WithProviderName("deepseek"),
		WithDefaultModel("deepseek-chat"),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}

// NewOpenRouterProvider creates a provider for OpenRouter, which expects
// attribution headers on every call.
func NewOpenRouterProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultOpenRouterBaseURL),
		WithProviderName("openrouter"),
		WithDefaultModel("google/gemini-2.5-flash"),
		WithHeader("HTTP-Referer", "https://educonnect.app"),
		WithHeader("X-Title", "EduConnect"),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}

// NewOllamaProvider creates a provider for a self-hosted Ollama server,
// which serves the OpenAI-compatible API under /v1.
func NewOllamaProvider(baseURL string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(strings.TrimRight(baseURL, "/") + "/v1"),
		WithProviderName("ollama"),
		WithDefaultModel("llama3:8b"),
	}, opts...)
	return NewOpenAIProvider("", opts...)
}

// openaiRequest is the request body for the OpenAI chat completions API.
type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// openaiResponse is the response from the OpenAI chat completions API.
type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openaiMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openaiMessage(m)
	}

	oaiReq := openaiRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		oaiReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		oaiReq.Temperature = &temp
	}
	if req.JSONMode {
		oaiReq.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq)

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
		return CompletionResponse{}, fmt.Errorf("%s api error (status %d): %s", p.name, resp.StatusCode, string(respBody))
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("unmarshal response: %w: %w", ErrEmptyResponse, err)
	}

	if len(oaiResp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	respModel := oaiResp.Model
	if respModel == "" {
		respModel = model
	}

	return CompletionResponse{
		Content:      oaiResp.Choices[0].Message.Content,
		Model:        respModel,
		InputTokens:  oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.authorize(req)

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
