package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGeneration(t *testing.T) {
	m := New()
	m.ObserveGeneration(OutcomeSuccess, 2*time.Second)
	m.ObserveGeneration(OutcomeSuccess, 3*time.Second)
	m.ObserveGeneration(OutcomeMalformedResponse, time.Second)

	if got := testutil.ToFloat64(m.generations.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("success generations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues(OutcomeMalformedResponse)); got != 1 {
		t.Errorf("malformed generations = %v, want 1", got)
	}
}

func TestObserveRender_FailureSkipsPages(t *testing.T) {
	m := New()
	m.ObserveRender("pdf", OutcomeError, 4)
	m.ObserveRender("pdf", OutcomeSuccess, 2)

	if got := testutil.ToFloat64(m.renders.WithLabelValues("pdf", OutcomeError)); got != 1 {
		t.Errorf("failed renders = %v, want 1", got)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "educonnect_document_pages" {
			continue
		}
		found = true
		if c := f.GetMetric()[0].GetHistogram().GetSampleCount(); c != 1 {
			t.Errorf("page histogram samples = %d, want 1", c)
		}
	}
	if !found {
		t.Error("educonnect_document_pages not gathered")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration(OutcomeSuccess, time.Second)
	m.ObserveTokens("mock", 1, 2)
	m.ObserveRender("pdf", OutcomeSuccess, 1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveTokens("gemini-2.5-flash", 100, 900)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `educonnect_ai_tokens_total{direction="output",model="gemini-2.5-flash"} 900`) {
		t.Errorf("metrics output missing token counter:\n%s", rec.Body.String())
	}
}
