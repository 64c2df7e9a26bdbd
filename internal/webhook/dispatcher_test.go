package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"git-actions/internal/action"
	"git-actions/internal/model"
	"git-actions/internal/rules"
	"git-actions/pkg/log"
)

// spyHandler wraps a Handler and records whether Parse was attempted.
type spyHandler struct {
	inner  Handler
	parsed bool
}

func (s *spyHandler) Authenticate(body []byte, header http.Header) error {
	return s.inner.Authenticate(body, header)
}

func (s *spyHandler) Parse(ctx context.Context, body []byte, header http.Header) (*model.Event, error) {
	s.parsed = true
	return s.inner.Parse(ctx, body, header)
}

func dockerBuildRule(t *testing.T) *rules.Rule {
	t.Helper()
	paths, err := rules.NewGlob("docker/**/*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return &rules.Rule{
		Name:       "docker-build",
		Webhooks:   []string{"bitbucket-repo-a"},
		EventTypes: map[model.EventType]struct{}{model.EventPush: {}},
		Branches:   rules.Filter{rules.NewExact("main")},
		Paths:      rules.Filter{rules.NewExact("Dockerfile"), paths},
		Actions:    []action.Action{{Shell: &action.ShellAction{Command: "true"}}},
	}
}

func newTestRouter(t *testing.T, entry *Entry) (*gin.Engine, *action.Scheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	exec := action.NewExecutor(nil, log.NewNop())
	sched := action.NewScheduler(exec, log.NewNop())

	d, err := NewDispatcher([]*Entry{entry}, sched, log.NewNop())
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	r := gin.New()
	r.POST(entry.Path, d.HandleDelivery(entry))
	return r, sched
}

func deliver(r *gin.Engine, path string, payload []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authHeader(token string) http.Header {
	h := http.Header{}
	h.Set(TokenHeader, token)
	return h
}

func TestDispatcherMatchedDelivery(t *testing.T) {
	api := &fakeChangesAPI{commitFiles: map[string][]string{"abc123": {"Dockerfile"}}}
	spy := &spyHandler{inner: NewBitbucketHandler("s3cret", api, log.NewNop())}

	entry := &Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: spy,
		Rules:   []*rules.Rule{dockerBuildRule(t)},
	}
	r, sched := newTestRouter(t, entry)
	defer sched.Drain(5 * time.Second)

	w := deliver(r, "/webhook/repo-a", pushPayload("main", "abc123"), authHeader("s3cret"))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", w.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Matched int    `json:"matched_rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.Matched != 1 {
		t.Errorf("got %+v, want accepted/1", resp)
	}
}

func TestDispatcherBranchExcluded(t *testing.T) {
	api := &fakeChangesAPI{commitFiles: map[string][]string{"abc123": {"Dockerfile"}}}
	entry := &Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: NewBitbucketHandler("s3cret", api, log.NewNop()),
		Rules:   []*rules.Rule{dockerBuildRule(t)},
	}
	r, sched := newTestRouter(t, entry)
	defer sched.Drain(5 * time.Second)

	w := deliver(r, "/webhook/repo-a", pushPayload("hotfix", "abc123"), authHeader("s3cret"))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", w.Code)
	}
	var resp struct {
		Matched int `json:"matched_rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Matched != 0 {
		t.Errorf("matched: got %d, want 0", resp.Matched)
	}
}

func TestDispatcherBadAuth(t *testing.T) {
	spy := &spyHandler{inner: NewBitbucketHandler("s3cret", nil, log.NewNop())}
	entry := &Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: spy,
		Rules:   []*rules.Rule{dockerBuildRule(t)},
	}
	r, sched := newTestRouter(t, entry)
	defer sched.Drain(5 * time.Second)

	w := deliver(r, "/webhook/repo-a", pushPayload("main", "abc123"), authHeader("wrong"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", w.Code)
	}
	if spy.parsed {
		t.Error("parse must not be attempted after failed authentication")
	}
}

func TestDispatcherUnsupportedEvent(t *testing.T) {
	entry := &Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: NewBitbucketHandler("s3cret", nil, log.NewNop()),
		Rules:   []*rules.Rule{dockerBuildRule(t)},
	}
	r, sched := newTestRouter(t, entry)
	defer sched.Drain(5 * time.Second)

	header := authHeader("s3cret")
	header.Set(EventKeyHeader, "repo:comment:added")
	w := deliver(r, "/webhook/repo-a", []byte(`{"eventKey":"repo:comment:added"}`), header)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ignored" {
		t.Errorf("status: got %q, want ignored", resp.Status)
	}
}

func TestDispatcherParseError(t *testing.T) {
	entry := &Entry{
		Name:    "bitbucket-repo-a",
		Path:    "/webhook/repo-a",
		Handler: NewBitbucketHandler("s3cret", nil, log.NewNop()),
		Rules:   []*rules.Rule{dockerBuildRule(t)},
	}
	r, sched := newTestRouter(t, entry)
	defer sched.Drain(5 * time.Second)

	w := deliver(r, "/webhook/repo-a", []byte("{broken"), authHeader("s3cret"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestDispatcherDuplicatePath(t *testing.T) {
	exec := action.NewExecutor(nil, log.NewNop())
	sched := action.NewScheduler(exec, log.NewNop())

	entries := []*Entry{
		{Name: "a", Path: "/webhook/x", Handler: NewBitbucketHandler("", nil, log.NewNop())},
		{Name: "b", Path: "/webhook/x", Handler: NewBitbucketHandler("", nil, log.NewNop())},
	}
	if _, err := NewDispatcher(entries, sched, log.NewNop()); err == nil {
		t.Error("expected error for duplicate path")
	}
}
