package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/educonnect/internal/ai"
	"github.com/p-n-ai/educonnect/internal/audit"
	"github.com/p-n-ai/educonnect/internal/course"
	"github.com/p-n-ai/educonnect/internal/platform/metrics"
	"github.com/p-n-ai/educonnect/internal/syllabus"
)

const validModelJSON = `{"modules":[{"title":"Unit Tests","description":"Basics of **testing**","topics":[` +
	`{"title":"Assertions","theory":"Check **results** early.\n\nKeep tests small.",` +
	`"practiceQuestions":[{"question":"What is an assertion?","answer":"A check."}],` +
	`"resources":[{"type":"video","title":"Go testing","url":"https://go.dev/doc/tutorial/add-a-test"}]},` +
	`{"title":"Table tests","theory":"Loop over cases.","practiceQuestions":[],"resources":[]}]}]}`

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *Server
	handler http.Handler
	mock    *ai.MockProvider
	store   course.Store
	events  *audit.MemoryEventLogger
	metrics *metrics.Metrics
}

// newTestEnv wires a server around a mock model. Fields left empty in cfg
// get test defaults.
func newTestEnv(t *testing.T, cfg course.GeneratorConfig) *testEnv {
	t.Helper()
	mock, _ := cfg.AI.(*ai.MockProvider)
	if cfg.AI == nil {
		mock = ai.NewMockProvider(validModelJSON)
		cfg.AI = mock
	}
	if cfg.Store == nil {
		cfg.Store = course.NewMemoryStore()
	}
	events := audit.NewMemoryEventLogger()
	m := metrics.New()
	cfg.IDs = course.NewSequenceGenerator("id-")
	cfg.Now = func() time.Time { return fixedNow }
	cfg.Events = events
	cfg.Metrics = m

	router := ai.NewRouter()
	if mock != nil {
		router.Register("mock", mock)
	}

	s := New(Config{
		Generator: course.NewGenerator(cfg),
		Store:     cfg.Store,
		Providers: router,
		Syllabi:   testSyllabi(t),
		Metrics:   m,
		Events:    events,
	})
	return &testEnv{server: s, handler: s.Handler(), mock: mock, store: cfg.Store, events: events, metrics: m}
}

func testSyllabi(t *testing.T) *syllabus.Loader {
	t.Helper()
	dir := t.TempDir()
	preset := "id: intro-testing\ntitle: Intro to Testing\nsyllabus: Unit tests, mocks, integration\nduration_days: 3\n"
	if err := os.WriteFile(filepath.Join(dir, "intro-testing.yaml"), []byte(preset), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := syllabus.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	return l
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// generate creates a course and returns it.
func (e *testEnv) generate(t *testing.T) *course.Course {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/courses/generate",
		`{"title":"Intro to Testing","description":"Learn testing","syllabus":"Unit tests","durationDays":1}`,
		map[string]string{userHeader: "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Course
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	s := New(Config{
		Store: course.NewMemoryStore(),
		ReadyChecks: map[string]Check{
			"database": func(context.Context) error { return nil },
			"cache":    func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Failed map[string]string `json:"failed"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Failed["cache"] != "connection refused" || len(body.Failed) != 1 {
		t.Errorf("failed = %v", body.Failed)
	}
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	c := env.generate(t)

	if c.OwnerID != "u1" || c.Title != "Intro to Testing" {
		t.Errorf("course = %q by %q", c.Title, c.OwnerID)
	}
	if len(c.Modules) != 1 || c.Modules[0].Day != 1 {
		t.Fatalf("modules = %+v", c.Modules)
	}
	if got := c.Modules[0].Topics[0].Resources[0].Type; got != course.ResourceWebsite {
		t.Errorf("resource type = %q, want website", got)
	}
	if len(c.TopicDocuments) != 2 {
		t.Errorf("documents = %d, want 2", len(c.TopicDocuments))
	}
	if env.mock.Calls() != 1 {
		t.Errorf("model calls = %d, want 1", env.mock.Calls())
	}
	if !env.mock.LastRequest.JSONMode || env.mock.LastRequest.Task != ai.TaskCourseGeneration {
		t.Errorf("request = %+v, want JSON mode course generation", env.mock.LastRequest)
	}

	rec := env.do(t, http.MethodGet, "/api/courses", "", map[string]string{userHeader: "u1"})
	var list struct {
		Courses []course.Summary `json:"courses"`
	}
	json.NewDecoder(rec.Body).Decode(&list)
	if rec.Code != http.StatusOK || len(list.Courses) != 1 || list.Courses[0].ID != c.ID {
		t.Errorf("list = %d %+v", rec.Code, list.Courses)
	}

	rec = env.do(t, http.MethodGet, "/api/courses", "", map[string]string{userHeader: "someone-else"})
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list.Courses) != 0 {
		t.Errorf("other user sees %d courses, want 0", len(list.Courses))
	}

	rec = env.do(t, http.MethodGet, "/api/courses/"+c.ID, "", nil)
	var got course.Course
	json.NewDecoder(rec.Body).Decode(&got)
	if rec.Code != http.StatusOK || got.ID != c.ID || got.Modules[0].Day != 1 {
		t.Errorf("get = %d %+v", rec.Code, got)
	}
}

func TestGenerate_Errors(t *testing.T) {
	valid := `{"title":"Intro to Testing","syllabus":"Unit tests","durationDays":1}`

	tests := []struct {
		name       string
		response   string
		modelErr   error
		body       string
		wantStatus int
		wantFields []string
		wantCalls  int
	}{
		{name: "malformed model output", response: "I cannot help with that.", body: valid, wantStatus: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "missing modules key", response: `{"courses":[]}`, body: valid, wantStatus: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "empty envelope", modelErr: fmt.Errorf("gemini: %w", ai.ErrEmptyResponse), body: valid, wantStatus: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "model unavailable", modelErr: errors.New("connection refused"), body: valid, wantStatus: http.StatusBadGateway, wantCalls: 1},
		{name: "invalid json", body: `{"title":`, wantStatus: http.StatusBadRequest},
		{name: "validation", body: `{"title":"  ","syllabus":"x","durationDays":0}`, wantStatus: http.StatusBadRequest, wantFields: []string{"title", "durationDays"}},
		{name: "unknown preset", body: `{"presetId":"nope"}`, wantStatus: http.StatusBadRequest, wantFields: []string{"presetId"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := ai.NewMockProvider(tt.response)
			mock.Err = tt.modelErr
			env := newTestEnv(t, course.GeneratorConfig{AI: mock})

			rec := env.do(t, http.MethodPost, "/api/courses/generate", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp errorResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Error == "" {
				t.Error("error message is empty")
			}
			for _, f := range tt.wantFields {
				if resp.Fields[f] == "" {
					t.Errorf("fields = %v, want an entry for %s", resp.Fields, f)
				}
			}
			if mock.Calls() != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", mock.Calls(), tt.wantCalls)
			}
		})
	}
}

func TestGenerate_BudgetExceeded(t *testing.T) {
	budget := ai.NewInMemoryBudget(100)
	budget.Record(context.Background(), "u1", 100)
	env := newTestEnv(t, course.GeneratorConfig{Budget: budget})

	rec := env.do(t, http.MethodPost, "/api/courses/generate",
		`{"title":"Intro to Testing","syllabus":"Unit tests","durationDays":1}`,
		map[string]string{userHeader: "u1"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if env.mock.Calls() != 0 {
		t.Errorf("model calls = %d, want 0", env.mock.Calls())
	}
}

type failingStore struct {
	*course.MemoryStore
}

func (failingStore) Save(context.Context, *course.Course) error {
	return errors.New("database is down")
}

func TestGenerate_PersistenceFailureKeepsCourse(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{Store: failingStore{course.NewMemoryStore()}})

	rec := env.do(t, http.MethodPost, "/api/courses/generate",
		`{"title":"Intro to Testing","syllabus":"Unit tests","durationDays":1}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp generateResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Warning == "" {
		t.Error("warning should explain the course was not saved")
	}
	if resp.Course == nil || len(resp.Course.TopicDocuments) != 2 {
		t.Fatalf("course = %+v, want the generated course", resp.Course)
	}

	base := "/api/courses/" + resp.Course.ID
	tests := []struct {
		path        string
		contentType string
	}{
		{base, "application/json"},
		{base + "/documents/1", "application/json"},
		{base + "/documents/0/pdf", "application/pdf"},
		{base + "/documents/0/pages/1/png", "image/png"},
		{base + "/export.xlsx", xlsxContentType},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
		})
	}
}

func TestUnsavedCourses_EvictsOldest(t *testing.T) {
	u := newUnsavedCourses(2)
	for _, id := range []string{"a", "b", "b", "c"} {
		u.Add(&course.Course{ID: id})
	}

	if _, ok := u.Get("a"); ok {
		t.Error("oldest course should be evicted")
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := u.Get(id); !ok {
			t.Errorf("course %q should be kept", id)
		}
	}
}

func TestGenerate_Preset(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})

	rec := env.do(t, http.MethodPost, "/api/courses/generate", `{"presetId":"intro-testing"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Course.Title != "Intro to Testing" || resp.Course.DurationDays != 3 || resp.Course.OwnerID != anonymousUser {
		t.Errorf("course = %q, %d days, owner %q", resp.Course.Title, resp.Course.DurationDays, resp.Course.OwnerID)
	}
	prompt := env.mock.LastRequest.Messages[0].Content
	if !strings.Contains(prompt, "Unit tests, mocks, integration") || !strings.Contains(prompt, "exactly 3 modules") {
		t.Errorf("prompt does not use the preset:\n%s", prompt)
	}
}

func TestDocument_Navigation(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	c := env.generate(t)

	tests := []struct {
		path         string
		wantStatus   int
		wantIndex    int
		wantNext     bool
		wantPrevious bool
		wantTopic    string
	}{
		{"/documents/0", http.StatusOK, 0, true, false, "Assertions"},
		{"/documents/1", http.StatusOK, 1, false, true, "Table tests"},
		{"/documents/2", http.StatusNotFound, 0, false, false, ""},
		{"/documents/-1", http.StatusNotFound, 0, false, false, ""},
		{"/documents/first", http.StatusNotFound, 0, false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/courses/"+c.ID+tt.path, "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp documentResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Index != tt.wantIndex || resp.Total != 2 || resp.HasNext != tt.wantNext || resp.HasPrevious != tt.wantPrevious {
				t.Errorf("navigation = %+v", resp)
			}
			if resp.Document.TopicTitle != tt.wantTopic {
				t.Errorf("topic = %q, want %q", resp.Document.TopicTitle, tt.wantTopic)
			}
			if strings.Contains(resp.Preview, "**") {
				t.Errorf("preview still has markdown: %q", resp.Preview)
			}
			if resp.Pages != 1 {
				t.Errorf("pages = %d, want 1", resp.Pages)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/courses/missing/documents/0", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown course status = %d, want 404", rec.Code)
	}
}

func TestDocumentPDF(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	c := env.generate(t)
	path := "/api/courses/" + c.ID + "/documents/0/pdf"

	rec := env.do(t, http.MethodGet, path, "", map[string]string{userHeader: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}
	wantDisposition := `attachment; filename="Intro to Testing_Day1_Assertions.pdf"; filename*=UTF-8''Intro%20to%20Testing_Day1_Assertions.pdf`
	if cd := rec.Header().Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", cd, wantDisposition)
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	rec = env.do(t, http.MethodGet, path, "", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/courses/"+c.ID+"/documents/1/pdf", "", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusOK || rec.Header().Get("ETag") == etag {
		t.Errorf("another document should not match the first ETag")
	}

	exported := env.events.OfType(audit.EventDocumentExported)
	if len(exported) != 2 || exported[0].UserID != "u1" || exported[0].Data["format"] != "pdf" {
		t.Errorf("export events = %+v", exported)
	}
}

func TestDocumentPNG(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	c := env.generate(t)
	base := "/api/courses/" + c.ID + "/documents/0/pages/"

	rec := env.do(t, http.MethodGet, base+"1/png", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("decode: %v", err)
	}

	for _, page := range []string{"0", "2", "x"} {
		if rec := env.do(t, http.MethodGet, base+page+"/png", "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("page %s status = %d, want 404", page, rec.Code)
		}
	}
}

func TestExportWorkbook(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	c := env.generate(t)

	rec := env.do(t, http.MethodGet, "/api/courses/"+c.ID+"/export.xlsx", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip container")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="Intro to Testing_Outline.xlsx"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if rec := env.do(t, http.MethodGet, "/api/courses/missing/export.xlsx", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown course status = %d, want 404", rec.Code)
	}
}

func TestListCourses_Limit(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	env.generate(t)
	env.generate(t)

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, 2},
		{"?limit=1", http.StatusOK, 1},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, "/api/courses"+tt.query, "", map[string]string{userHeader: "u1"})
		if rec.Code != tt.wantStatus {
			t.Errorf("%q status = %d, want %d", tt.query, rec.Code, tt.wantStatus)
			continue
		}
		if tt.wantStatus != http.StatusOK {
			continue
		}
		var list struct {
			Courses []course.Summary `json:"courses"`
		}
		json.NewDecoder(rec.Body).Decode(&list)
		if len(list.Courses) != tt.wantCount {
			t.Errorf("%q returned %d courses, want %d", tt.query, len(list.Courses), tt.wantCount)
		}
	}
}

func TestSyllabiAndProviders(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})

	rec := env.do(t, http.MethodGet, "/api/syllabi", "", nil)
	var syllabi struct {
		Syllabi []syllabus.Preset `json:"syllabi"`
	}
	json.NewDecoder(rec.Body).Decode(&syllabi)
	if len(syllabi.Syllabi) != 1 || syllabi.Syllabi[0].ID != "intro-testing" {
		t.Errorf("syllabi = %+v", syllabi.Syllabi)
	}

	rec = env.do(t, http.MethodGet, "/api/ai/providers", "", nil)
	var providers struct {
		Providers []ai.ProviderStatus `json:"providers"`
	}
	json.NewDecoder(rec.Body).Decode(&providers)
	if len(providers.Providers) != 1 || !providers.Providers[0].Healthy {
		t.Errorf("providers = %+v", providers.Providers)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})
	env.generate(t)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `educonnect_course_generations_total{outcome="success"} 1`) {
		t.Error("metrics should count the successful generation")
	}
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("Café; Day1.pdf")
	want := `attachment; filename="Cafe; Day1.pdf"; filename*=UTF-8''Caf%C3%A9%3B%20Day1.pdf`
	if got != want {
		t.Errorf("contentDisposition() = %q, want %q", got, want)
	}
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, `"abc"`); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
