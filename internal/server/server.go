// Package server exposes course generation, browsing and export over HTTP
// and WebSocket.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/p-n-ai/educonnect/internal/ai"
	"github.com/p-n-ai/educonnect/internal/audit"
	"github.com/p-n-ai/educonnect/internal/course"
	"github.com/p-n-ai/educonnect/internal/platform/metrics"
	"github.com/p-n-ai/educonnect/internal/render"
	"github.com/p-n-ai/educonnect/internal/syllabus"
)

const (
	userHeader       = "X-User-ID"
	anonymousUser    = "anonymous"
	defaultListLimit = 50
	maxBodyBytes     = 1 << 20
	readyTimeout     = 3 * time.Second
)

// CourseGenerator builds and stores a course.
type CourseGenerator interface {
	Generate(ctx context.Context, req course.GenerateRequest, progress course.ProgressFunc) (*course.Course, error)
}

// ProviderHealth reports the health of the registered model providers.
type ProviderHealth interface {
	HealthCheck(ctx context.Context) []ai.ProviderStatus
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

// Config holds dependencies for the HTTP server.
type Config struct {
	Generator      CourseGenerator
	Store          course.Store
	Providers      ProviderHealth   // optional
	Syllabi        *syllabus.Loader // optional
	Renderer       *render.PDFRenderer
	Metrics        *metrics.Metrics  // optional
	Events         audit.EventLogger // optional
	ReadyChecks    map[string]Check  // optional, probed by /readyz
	OriginPatterns []string          // extra WebSocket origins besides same-host
}

// Server serves the EduConnect API.
type Server struct {
	generator CourseGenerator
	store     course.Store
	providers ProviderHealth
	syllabi   *syllabus.Loader
	renderer  *render.PDFRenderer
	metrics   *metrics.Metrics
	events    audit.EventLogger
	checks    map[string]Check
	origins   []string
	validator *requestValidator
	unsaved   *unsavedCourses
}

// New creates a server.
func New(cfg Config) *Server {
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewPDFRenderer()
	}
	events := cfg.Events
	if events == nil {
		events = audit.NopEventLogger{}
	}
	return &Server{
		generator: cfg.Generator,
		store:     cfg.Store,
		providers: cfg.Providers,
		syllabi:   cfg.Syllabi,
		renderer:  renderer,
		metrics:   cfg.Metrics,
		events:    events,
		checks:    cfg.ReadyChecks,
		origins:   cfg.OriginPatterns,
		validator: newRequestValidator(),
		unsaved:   newUnsavedCourses(maxUnsavedCourses),
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/ai/providers", s.handleProviders)
	mux.HandleFunc("GET /api/syllabi", s.handleSyllabi)

	mux.HandleFunc("POST /api/courses/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/courses", s.handleListCourses)
	mux.HandleFunc("GET /api/courses/{id}", s.handleGetCourse)
	mux.HandleFunc("GET /api/courses/{id}/documents/{index}", s.handleDocument)
	mux.HandleFunc("GET /api/courses/{id}/documents/{index}/pdf", s.handleDocumentPDF)
	mux.HandleFunc("GET /api/courses/{id}/documents/{index}/pages/{page}/png", s.handleDocumentPNG)
	mux.HandleFunc("GET /api/courses/{id}/export.xlsx", s.handleExportWorkbook)

	mux.HandleFunc("GET /ws/courses/generate", s.handleGenerateWS)

	return logRequests(mux)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	statuses := []ai.ProviderStatus{}
	if s.providers != nil {
		statuses = s.providers.HealthCheck(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": statuses})
}

func (s *Server) handleSyllabi(w http.ResponseWriter, r *http.Request) {
	presets := []syllabus.Preset{}
	if s.syllabi != nil {
		presets = s.syllabi.All()
	}
	writeJSON(w, http.StatusOK, map[string]any{"syllabi": presets})
}

// userID identifies the caller. Authentication happens in front of this
// service; the header is trusted as given.
func userID(r *http.Request) string {
	if id := r.Header.Get(userHeader); id != "" {
		return id
	}
	return anonymousUser
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack hands the connection over for the WebSocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
