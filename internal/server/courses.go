package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/educonnect/internal/audit"
	"github.com/p-n-ai/educonnect/internal/course"
	"github.com/p-n-ai/educonnect/internal/export"
	"github.com/p-n-ai/educonnect/internal/platform/metrics"
	"github.com/p-n-ai/educonnect/internal/render"
)

const (
	maxListLimit = 200

	// renderVersion is mixed into ETags; bump it when the layout changes.
	renderVersion = "layout-1"

	persistenceWarning = "the course was generated but could not be saved; export its documents before leaving"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// generateRequest is the body of a generation request. A preset fills any
// field left empty.
type generateRequest struct {
	PresetID     string `json:"presetId,omitempty"`
	Title        string `json:"title" validate:"notblank,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	Syllabus     string `json:"syllabus" validate:"notblank,max=20000"`
	DurationDays int    `json:"durationDays" validate:"min=1,max=365"`
}

type generateResponse struct {
	Course  *course.Course `json:"course"`
	Warning string         `json:"warning,omitempty"`
}

// prepare applies the preset, validates the result and returns the
// generator request, or the 400 response to send.
func (s *Server) prepare(body generateRequest, user string) (course.GenerateRequest, *errorResponse) {
	if body.PresetID != "" {
		if s.syllabi == nil {
			return course.GenerateRequest{}, &errorResponse{Error: "invalid request", Fields: map[string]string{"presetId": "unknown preset"}}
		}
		p, ok := s.syllabi.Get(body.PresetID)
		if !ok {
			return course.GenerateRequest{}, &errorResponse{Error: "invalid request", Fields: map[string]string{"presetId": "unknown preset"}}
		}
		if strings.TrimSpace(body.Title) == "" {
			body.Title = p.Title
		}
		if strings.TrimSpace(body.Description) == "" {
			body.Description = p.Description
		}
		if strings.TrimSpace(body.Syllabus) == "" {
			body.Syllabus = p.Syllabus
		}
		if body.DurationDays == 0 {
			body.DurationDays = p.DurationDays
		}
	}

	if fields := s.validator.Struct(body); fields != nil {
		return course.GenerateRequest{}, &errorResponse{Error: "invalid request", Fields: fields}
	}

	return course.GenerateRequest{
		UserID:       user,
		Title:        strings.TrimSpace(body.Title),
		Description:  strings.TrimSpace(body.Description),
		Syllabus:     strings.TrimSpace(body.Syllabus),
		DurationDays: body.DurationDays,
	}, nil
}

// generationStatus maps a generator error to an HTTP status and a message
// fit for the user.
func generationStatus(err error) (int, string) {
	switch {
	case errors.Is(err, course.ErrBudgetExceeded):
		return http.StatusTooManyRequests, "AI token budget exhausted"
	case errors.Is(err, course.ErrMalformedResponse):
		return http.StatusUnprocessableEntity, "the model returned an unusable course; please try again"
	case errors.Is(err, course.ErrModelUnavailable):
		return http.StatusBadGateway, "the model is unavailable; please try again later"
	default:
		return http.StatusInternalServerError, "course generation failed"
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, bad := s.prepare(body, userID(r))
	if bad != nil {
		writeJSON(w, http.StatusBadRequest, bad)
		return
	}

	c, err := s.generator.Generate(r.Context(), req, nil)
	if err != nil {
		if errors.Is(err, course.ErrPersistence) && c != nil {
			s.unsaved.Add(c)
			writeJSON(w, http.StatusCreated, generateResponse{Course: c, Warning: persistenceWarning})
			return
		}
		status, msg := generationStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, generateResponse{Course: c})
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	summaries, err := s.store.List(r.Context(), userID(r), limit)
	if err != nil {
		slog.Error("failed to list courses", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "could not list courses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": summaries})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCourse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) loadCourse(w http.ResponseWriter, r *http.Request) (*course.Course, bool) {
	id := r.PathValue("id")
	if c, ok := s.unsaved.Get(id); ok {
		return c, true
	}
	c, err := s.store.Get(r.Context(), id)
	if errors.Is(err, course.ErrCourseNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load course", "course_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load course")
		return nil, false
	}
	return c, true
}

// loadDocument resolves {id} and the 0-based {index} to a topic document.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*course.Course, *course.Navigator, bool) {
	c, ok := s.loadCourse(w, r)
	if !ok {
		return nil, nil, false
	}
	idx, err := strconv.Atoi(r.PathValue("index"))
	nav := course.NewNavigator(c.TopicDocuments, render.StripMarkdown)
	if err != nil || !nav.Select(idx) {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, nil, false
	}
	return c, nav, true
}

type documentResponse struct {
	CourseID    string               `json:"courseId"`
	CourseTitle string               `json:"courseTitle"`
	Index       int                  `json:"index"`
	Total       int                  `json:"total"`
	HasNext     bool                 `json:"hasNext"`
	HasPrevious bool                 `json:"hasPrevious"`
	Document    course.TopicDocument `json:"document"`
	Preview     string               `json:"preview"`
	Filename    string               `json:"filename"`
	Pages       int                  `json:"pages"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	c, nav, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	doc, _ := nav.Current()

	resp := documentResponse{
		CourseID:    c.ID,
		CourseTitle: c.Title,
		Index:       nav.Index(),
		Total:       nav.Len(),
		HasNext:     nav.HasNext(),
		HasPrevious: nav.HasPrevious(),
		Document:    doc,
		Preview:     nav.Preview(),
		Filename:    render.Filename(c.Title, doc.ModuleDay, doc.TopicTitle, "pdf"),
	}
	if l, err := s.renderer.Layout(render.InputFor(doc, c.Title)); err == nil {
		resp.Pages = l.PageCount()
	} else {
		slog.Warn("failed to lay out document", "course_id", c.ID, "document_id", doc.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) layoutDocument(c *course.Course, doc course.TopicDocument) (*render.DocumentLayout, error) {
	in := render.InputFor(doc, c.Title)
	in.Date = c.CreatedAt
	return s.renderer.Layout(in)
}

func (s *Server) handleDocumentPDF(w http.ResponseWriter, r *http.Request) {
	c, nav, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	doc, _ := nav.Current()

	etag := documentETag("pdf", c, doc)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	l, err := s.layoutDocument(c, doc)
	if err == nil {
		err = s.renderer.RenderLayout(&buf, l)
	}
	if err != nil {
		slog.Error("failed to export document", "course_id", c.ID, "document_id", doc.ID, "error", err)
		s.metrics.ObserveRender("pdf", metrics.OutcomeError, 0)
		writeError(w, http.StatusInternalServerError, render.ErrRender.Error())
		return
	}
	s.metrics.ObserveRender("pdf", metrics.OutcomeSuccess, l.PageCount())
	s.logExport(r, c, doc.ID, "pdf", l.PageCount())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(render.Filename(c.Title, doc.ModuleDay, doc.TopicTitle, "pdf")))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleDocumentPNG(w http.ResponseWriter, r *http.Request) {
	c, nav, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	doc, _ := nav.Current()

	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}

	etag := documentETag("png:"+strconv.Itoa(page), c, doc)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	l, err := s.layoutDocument(c, doc)
	if err == nil {
		err = render.RenderPreviewPNG(&buf, l, page)
	}
	if errors.Is(err, render.ErrPageOutOfRange) {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		slog.Error("failed to render page preview", "course_id", c.ID, "document_id", doc.ID, "page", page, "error", err)
		s.metrics.ObserveRender("png", metrics.OutcomeError, 0)
		writeError(w, http.StatusInternalServerError, render.ErrRender.Error())
		return
	}
	s.metrics.ObserveRender("png", metrics.OutcomeSuccess, 1)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCourse(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, c); err != nil {
		slog.Error("failed to export workbook", "course_id", c.ID, "error", err)
		s.metrics.ObserveRender("xlsx", metrics.OutcomeError, 0)
		writeError(w, http.StatusInternalServerError, render.ErrRender.Error())
		return
	}
	s.metrics.ObserveRender("xlsx", metrics.OutcomeSuccess, 0)
	s.logExport(r, c, "", "xlsx", 0)

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", contentDisposition(render.OutlineFilename(c.Title, "xlsx")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) logExport(r *http.Request, c *course.Course, documentID, format string, pages int) {
	data := map[string]any{"format": format}
	if documentID != "" {
		data["document_id"] = documentID
	}
	if pages > 0 {
		data["pages"] = pages
	}
	err := s.events.LogEvent(r.Context(), audit.Event{
		CourseID:  c.ID,
		UserID:    userID(r),
		EventType: audit.EventDocumentExported,
		Data:      data,
	})
	if err != nil {
		slog.Warn("failed to log export event", "course_id", c.ID, "error", err)
	}
}

// documentETag hashes everything the rendered output depends on. The PDF
// bytes themselves are not hashed.
func documentETag(variant string, c *course.Course, doc course.TopicDocument) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{
		renderVersion,
		variant,
		c.ID,
		c.Title,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		doc.ID,
		doc.ModuleTitle,
		strconv.Itoa(doc.ModuleDay),
		doc.TopicTitle,
		doc.PlainTextBody,
	} {
		io.WriteString(h, part)
		h.Write([]byte{0})
	}
	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// contentDisposition names an attachment for both old clients (ASCII
// filename) and RFC 6266 clients (UTF-8 filename*).
func contentDisposition(name string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, render.ASCIIFilename(name), encoded)
}
