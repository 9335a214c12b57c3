package ai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Router selects a provider based on task type and availability.
// Tasks pinned with Pin go to exactly one provider and never fall back;
// everything else walks the registration order until a provider succeeds.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	pins      map[TaskType]string
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
		pins:      make(map[TaskType]string),
	}
}

// Register adds a provider to the router.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

// Pin routes every request of the given task to the named provider only.
func (r *Router) Pin(task TaskType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("pin %s: provider %q not registered", task, name)
	}
	r.pins[task] = name
	return nil
}

// Complete routes a request to the pinned provider, or to the first
// provider in fallback order that succeeds.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	// The lock covers the lookup only; model calls can take minutes.
	r.mu.RLock()
	pinned, isPinned := r.pins[req.Task]
	var provider Provider
	if isPinned {
		provider = r.providers[pinned]
	}
	chain := make([]namedProvider, 0, len(r.fallback))
	if !isPinned {
		for _, name := range r.fallback {
			chain = append(chain, namedProvider{name, r.providers[name]})
		}
	}
	r.mu.RUnlock()

	if isPinned {
		resp, err := provider.Complete(ctx, req)
		if err != nil {
			return CompletionResponse{}, fmt.Errorf("provider %s: %w", pinned, err)
		}
		logCompletion(pinned, req.Task, resp)
		return resp, nil
	}

	if len(chain) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	var lastErr error
	for _, p := range chain {
		resp, err := p.provider.Complete(ctx, req)
		if err != nil {
			slog.Warn("AI provider failed, trying next",
				"provider", p.name,
				"task", req.Task.String(),
				"error", err,
			)
			lastErr = err
			continue
		}
		logCompletion(p.name, req.Task, resp)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", lastErr)
}

type namedProvider struct {
	name     string
	provider Provider
}

func logCompletion(provider string, task TaskType, resp CompletionResponse) {
	slog.Debug("AI request completed",
		"provider", provider,
		"task", task.String(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// ProviderStatus is the health of one registered provider.
type ProviderStatus struct {
	Name    string   `json:"name"`
	Healthy bool     `json:"healthy"`
	Error   string   `json:"error,omitempty"`
	Tasks   []string `json:"pinned_tasks,omitempty"`
}

// HealthCheck probes every registered provider in registration order.
func (r *Router) HealthCheck(ctx context.Context) []ProviderStatus {
	r.mu.RLock()
	chain := make([]namedProvider, 0, len(r.fallback))
	for _, name := range r.fallback {
		chain = append(chain, namedProvider{name, r.providers[name]})
	}
	tasks := make(map[string][]string)
	for task, name := range r.pins {
		tasks[name] = append(tasks[name], task.String())
	}
	r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(chain))
	for _, p := range chain {
		st := ProviderStatus{Name: p.name, Healthy: true, Tasks: tasks[p.name]}
		if err := p.provider.HealthCheck(ctx); err != nil {
			st.Healthy = false
			st.Error = err.Error()
		}
		slices.Sort(st.Tasks)
		statuses = append(statuses, st)
	}
	return statuses
}
