package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"git-actions/pkg/log"
)

func changesBody(paths []string, isLast bool, next *int) string {
	type pathObj struct {
		ToString string `json:"toString"`
	}
	type value struct {
		Path pathObj `json:"path"`
	}
	resp := map[string]any{
		"values":     []value{},
		"isLastPage": isLast,
	}
	values := make([]value, 0, len(paths))
	for _, p := range paths {
		values = append(values, value{Path: pathObj{ToString: p}})
	}
	resp["values"] = values
	if next != nil {
		resp["nextPageStart"] = *next
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient(Config{
		BaseURL: ts.URL,
		Project: "PROJ",
		Repo:    "repo-a",
		Token:   "api-token",
	}, log.NewNop())
	return c, ts
}

func TestPullRequestChanges(t *testing.T) {
	var gotPath, gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, changesBody([]string{"src/login.go", "src/login_test.go"}, true, nil))
	}))

	files, err := c.PullRequestChanges(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "src/login.go" {
		t.Errorf("files: got %v", files)
	}
	if gotPath != "/projects/PROJ/repos/repo-a/pull-requests/42/changes" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer api-token" {
		t.Errorf("auth: got %q", gotAuth)
	}
}

func TestCommitChangesPagination(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("start") {
		case "0":
			next := 2
			fmt.Fprint(w, changesBody([]string{"a.txt", "b.txt"}, false, &next))
		case "2":
			fmt.Fprint(w, changesBody([]string{"c.txt"}, true, nil))
		default:
			t.Errorf("unexpected start %q", r.URL.Query().Get("start"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	files, err := c.CommitChanges(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 3 || files[2] != "c.txt" {
		t.Errorf("files: got %v", files)
	}
	if calls != 2 {
		t.Errorf("expected 2 page fetches, got %d", calls)
	}
}

func TestChangedFilesCached(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, changesBody([]string{"a.txt"}, true, nil))
	}))

	for i := 0; i < 3; i++ {
		if _, err := c.CommitChanges(context.Background(), "abc123"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected one upstream call for a cached listing, got %d", calls)
	}
}

func TestAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":[{"message":"Commit does not exist"}]}`)
	}))

	if _, err := c.CommitChanges(context.Background(), "missing"); err == nil {
		t.Error("expected error for 404 response")
	}
}
