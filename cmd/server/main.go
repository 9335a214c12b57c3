package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/educonnect/internal/ai"
	"github.com/p-n-ai/educonnect/internal/audit"
	"github.com/p-n-ai/educonnect/internal/course"
	"github.com/p-n-ai/educonnect/internal/platform/cache"
	"github.com/p-n-ai/educonnect/internal/platform/config"
	"github.com/p-n-ai/educonnect/internal/platform/database"
	"github.com/p-n-ai/educonnect/internal/platform/metrics"
	"github.com/p-n-ai/educonnect/internal/render"
	"github.com/p-n-ai/educonnect/internal/server"
	"github.com/p-n-ai/educonnect/internal/syllabus"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := newHandler(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// Generation holds the request open for the whole model call.
		WriteTimeout: cfg.Generation.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newRouter registers every configured provider and pins course generation
// to the one named by EDU_GENERATION_PROVIDER.
func newRouter(cfg *config.Config) (*ai.Router, error) {
	router := ai.NewRouter()

	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if cfg.AI.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.AI.DeepSeek.APIKey))
	}
	if cfg.AI.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.AI.OpenRouter.APIKey))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
	}

	if !router.HasProvider() {
		return nil, fmt.Errorf("no AI provider configured: %w", ai.ErrNoProvider)
	}
	if err := router.Pin(ai.TaskCourseGeneration, cfg.Generation.Provider); err != nil {
		return nil, err
	}
	return router, nil
}

// newHandler connects the configured backing services and builds the API.
// The returned cleanup closes them.
func newHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	router, err := newRouter(cfg)
	if err != nil {
		return fail(err)
	}

	checks := map[string]server.Check{}
	var (
		store  course.Store = course.NewMemoryStore()
		events audit.EventLogger
	)

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		pgStore, err := course.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		store = pgStore
		events = audit.NewPostgresEventLogger(db.Pool)
		checks["database"] = db.HealthCheck
		slog.Info("course store: postgres")
	} else {
		slog.Warn("EDU_DATABASE_URL not set, courses are kept in memory only")
	}

	var budget ai.BudgetChecker = ai.NewInMemoryBudget(cfg.Budget.TokensPerUser)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { c.Close() })
		store = course.NewCachedStore(store, c, cfg.Cache.TTL, func(id string) string {
			return cache.Key("course", id)
		})
		budget = cache.NewRedisBudget(c, cfg.Budget.TokensPerUser)
		checks["cache"] = c.HealthCheck
		slog.Info("course cache enabled", "ttl", cfg.Cache.TTL)
	}

	presets, err := syllabus.NewLoader(cfg.SyllabusPath)
	if err != nil {
		return fail(err)
	}

	m := metrics.New()
	generator := course.NewGenerator(course.GeneratorConfig{
		AI:          router,
		Store:       store,
		Budget:      budget,
		Events:      events,
		Metrics:     m,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	})

	srv := server.New(server.Config{
		Generator:   generator,
		Store:       store,
		Providers:   router,
		Syllabi:     presets,
		Renderer:    render.NewPDFRenderer(),
		Metrics:     m,
		Events:      events,
		ReadyChecks: checks,
	})
	return srv.Handler(), cleanup, nil
}
