package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadline-platform/internal/conversation"
	"leadline-platform/internal/leads"
	"leadline-platform/internal/metrics"

	"github.com/gin-gonic/gin"
)

func newTestRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/analytics", h.GetAnalytics)
	r.GET("/v1/leads/recent", h.GetRecentLeads)
	r.GET("/v1/calls/:call_sid", h.GetCall)
	return r
}

func TestGetAnalyticsOverview(t *testing.T) {
	rec := metrics.NewRecorder()
	id := rec.StartCall("user-1")
	rec.EndCall(id, metrics.OutcomeCompleted, metrics.UrgencyLevelHigh, metrics.QualityQualified)

	router := newTestRouter(Handlers{Metrics: rec})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/analytics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"performance", "users", "system", "recent_calls"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("overview missing %q: %s", key, w.Body.String())
		}
	}
}

func TestGetAnalyticsRejectsUnknownType(t *testing.T) {
	router := newTestRouter(Handlers{Metrics: metrics.NewRecorder()})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/analytics?type=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAnalyticsRejectsBadTimeRange(t *testing.T) {
	router := newTestRouter(Handlers{Metrics: metrics.NewRecorder()})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/analytics?type=performance&from=yesterday", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetRecentLeads(t *testing.T) {
	archive := leads.NewMemoryRepo()
	_ = archive.Append(context.Background(), leads.Summary{CallID: "CA1", CallerName: "Sarah Johnson"})
	_ = archive.Append(context.Background(), leads.Summary{CallID: "CA2", CallerName: "Dan Wood"})

	router := newTestRouter(Handlers{Leads: archive})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/leads/recent?limit=1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// newest first
	if !strings.Contains(w.Body.String(), "CA2") || strings.Contains(w.Body.String(), "CA1") {
		t.Fatalf("expected only the newest lead: %s", w.Body.String())
	}
}

func TestGetCall(t *testing.T) {
	registry := conversation.NewRegistry(10*time.Minute, 2*time.Minute)
	registry.Create("CA1", "+15551234567", "+15557654321")

	router := newTestRouter(Handlers{Sessions: registry})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls/CA1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current_step":"greeting"`) {
		t.Fatalf("snapshot should include the step: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls/CA-missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
