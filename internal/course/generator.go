package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/educonnect/internal/ai"
	"github.com/p-n-ai/educonnect/internal/audit"
	"github.com/p-n-ai/educonnect/internal/platform/metrics"
)

const (
	defaultMaxTokens   = 32768
	defaultTemperature = 0.7
	defaultTimeout     = 3 * time.Minute
	maxLoggedRaw       = 4000
)

// Stage names a step of a generation, reported through ProgressFunc.
type Stage string

const (
	StagePrompting   Stage = "prompting"
	StageGenerating  Stage = "generating"
	StageParsing     Stage = "parsing"
	StageNormalizing Stage = "normalizing"
	StagePersisting  Stage = "persisting"
	StageDone        Stage = "done"
)

// ProgressFunc receives each stage as it starts. It may be nil.
type ProgressFunc func(Stage)

// GenerateRequest describes the course to build.
type GenerateRequest struct {
	UserID       string
	Title        string
	Description  string
	Syllabus     string
	DurationDays int
}

// GeneratorConfig holds dependencies for the course generator.
type GeneratorConfig struct {
	AI          ai.Completer
	Store       Store
	IDs         IDGenerator
	Now         func() time.Time
	Budget      ai.BudgetChecker  // optional
	Events      audit.EventLogger // optional
	Metrics     *metrics.Metrics  // optional
	Model       string            // provider default when empty
	MaxTokens   int               // default 32768
	Temperature float64           // default 0.7
	Timeout     time.Duration     // bounds the model call (default 3m)
}

// Generator runs the prompt, model call, parse, normalize and save pipeline.
type Generator struct {
	ai          ai.Completer
	store       Store
	normalizer  Normalizer
	budget      ai.BudgetChecker
	events      audit.EventLogger
	metrics     *metrics.Metrics
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewGenerator creates a new course generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	normalizer := NewNormalizer()
	if cfg.IDs != nil {
		normalizer.IDs = cfg.IDs
	}
	if cfg.Now != nil {
		normalizer.Now = cfg.Now
	}
	events := cfg.Events
	if events == nil {
		events = audit.NopEventLogger{}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		ai:          cfg.AI,
		store:       store,
		normalizer:  normalizer,
		budget:      cfg.Budget,
		events:      events,
		metrics:     cfg.Metrics,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Generate builds and stores a course. The model is called exactly once.
//
// When the store fails the generated course is still returned, together with
// an error wrapping ErrPersistence, so callers can keep showing it.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest, progress ProgressFunc) (*Course, error) {
	start := time.Now()
	c, err := g.generate(ctx, req, progress)
	g.metrics.ObserveGeneration(outcome(err), time.Since(start))
	return c, err
}

func (g *Generator) generate(ctx context.Context, req GenerateRequest, progress ProgressFunc) (*Course, error) {
	report := func(s Stage) {
		if progress != nil {
			progress(s)
		}
	}

	if g.ai == nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, ai.ErrNoProvider)
	}

	if g.budget != nil {
		ok, err := g.budget.Check(ctx, req.UserID)
		if err != nil {
			slog.Warn("budget check failed, allowing request", "user_id", req.UserID, "error", err)
		} else if !ok {
			return nil, ErrBudgetExceeded
		}
	}

	report(StagePrompting)
	prompt := BuildPrompt(req.Title, req.Syllabus, req.DurationDays)

	report(StageGenerating)
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	resp, err := g.ai.Complete(callCtx, ai.CompletionRequest{
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Task:        ai.TaskCourseGeneration,
		JSONMode:    true,
	})
	cancel()
	if err != nil {
		g.logEvent(ctx, audit.Event{
			UserID:    req.UserID,
			EventType: audit.EventGenerationFailed,
			Data:      map[string]any{"title": req.Title, "error": err.Error()},
		})
		// An envelope without text is a malformed answer, not an outage.
		if errors.Is(err, ai.ErrEmptyResponse) {
			slog.Error("model response envelope missing text", "title", req.Title, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		slog.Error("course generation model call failed", "title", req.Title, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	g.metrics.ObserveTokens(resp.Model, resp.InputTokens, resp.OutputTokens)
	if g.budget != nil {
		if err := g.budget.Record(ctx, req.UserID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record token usage", "user_id", req.UserID, "error", err)
		}
	}

	report(StageParsing)
	parsed, err := ParseResponse(resp.Content)
	if err != nil {
		slog.Error("malformed course response",
			"title", req.Title,
			"error", err,
			"raw_response", truncate(resp.Content, maxLoggedRaw),
		)
		g.logEvent(ctx, audit.Event{
			UserID:    req.UserID,
			EventType: audit.EventMalformedResponse,
			Data: map[string]any{
				"title":        req.Title,
				"error":        err.Error(),
				"raw_response": truncate(resp.Content, maxLoggedRaw),
			},
		})
		return nil, err
	}

	report(StageNormalizing)
	c := g.normalizer.Normalize(parsed, CourseMeta{
		OwnerID:      req.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Syllabus:     req.Syllabus,
		DurationDays: req.DurationDays,
	})

	report(StagePersisting)
	if err := g.store.Save(ctx, c); err != nil {
		slog.Error("failed to persist course", "course_id", c.ID, "error", err)
		g.logEvent(ctx, audit.Event{
			CourseID:  c.ID,
			UserID:    req.UserID,
			EventType: audit.EventPersistenceFailed,
			Data:      map[string]any{"error": err.Error()},
		})
		return c, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	g.logEvent(ctx, audit.Event{
		CourseID:  c.ID,
		UserID:    req.UserID,
		EventType: audit.EventCourseGenerated,
		Data: map[string]any{
			"title":         c.Title,
			"modules":       len(c.Modules),
			"documents":     len(c.TopicDocuments),
			"model":         resp.Model,
			"input_tokens":  resp.InputTokens,
			"output_tokens": resp.OutputTokens,
		},
	})
	slog.Info("course generated",
		"course_id", c.ID,
		"user_id", req.UserID,
		"modules", len(c.Modules),
		"documents", len(c.TopicDocuments),
	)

	report(StageDone)
	return c, nil
}

func (g *Generator) logEvent(ctx context.Context, e audit.Event) {
	if err := g.events.LogEvent(ctx, e); err != nil {
		slog.Warn("failed to log generation event", "type", e.EventType, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrBudgetExceeded):
		return metrics.OutcomeBudgetExceeded
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformedResponse
	case errors.Is(err, ErrModelUnavailable):
		return metrics.OutcomeModelUnavailable
	case errors.Is(err, ErrPersistence):
		return metrics.OutcomePersistenceFailed
	default:
		return metrics.OutcomeError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
