package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"git-actions/internal/action"
	"git-actions/internal/webhook"
	"git-actions/pkg/log"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	exec := action.NewExecutor(nil, log.NewNop())
	sched := action.NewScheduler(exec, log.NewNop())

	entry := &webhook.Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: webhook.NewBitbucketHandler("", nil, log.NewNop()),
	}
	d, err := webhook.NewDispatcher([]*webhook.Entry{entry}, sched, log.NewNop())
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	srv, err := New(Config{
		Logger:       log.NewNop(),
		Host:         "127.0.0.1",
		Port:         18081,
		Dispatcher:   d,
		Scheduler:    sched,
		DrainTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func TestHealthRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.gin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("body: got %q", w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.gin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "git_actions_uptime_seconds") {
		t.Error("metrics exposition should include the uptime gauge")
	}
}

func TestUnknownWebhookPathIs404(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.gin.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/unknown", strings.NewReader("{}")))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected validation error for empty config")
	}
}
