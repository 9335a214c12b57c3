// Package ai provides a provider-agnostic AI gateway with task-based routing.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrNoProvider is returned when no provider can serve a request.
	ErrNoProvider = errors.New("no AI provider available")
	// ErrEmptyResponse is returned when a provider answers with an envelope
	// that lacks the generated text.
	ErrEmptyResponse = errors.New("AI response missing content")
)

// TaskType defines the kind of AI task for routing purposes.
type TaskType int

const (
	TaskGeneral TaskType = iota
	TaskCourseGeneration
)

func (t TaskType) String() string {
	switch t {
	case TaskGeneral:
		return "general"
	case TaskCourseGeneration:
		return "course_generation"
	default:
		return "unknown"
	}
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
	JSONMode    bool      `json:"json_mode,omitempty"` // ask the provider for a bare JSON object
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}

// Completer is the narrow view consumers depend on; *Router satisfies it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
