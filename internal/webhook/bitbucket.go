package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"git-actions/internal/model"
	"git-actions/pkg/log"
)

// EventKeyHeader names the delivery's provider event kind.
const EventKeyHeader = "X-Event-Key"

// BitbucketHandler normalises Bitbucket Server deliveries.
type BitbucketHandler struct {
	token string // resolved shared secret; empty disables auth
	api   ChangesAPI
	l     log.Logger
}

// NewBitbucketHandler creates the handler for one configured webhook.
// token is the environment-resolved shared secret; api may be nil when the
// webhook has no API configuration (events then carry no changed files).
func NewBitbucketHandler(token string, api ChangesAPI, l log.Logger) *BitbucketHandler {
	return &BitbucketHandler{token: token, api: api, l: l}
}

// Authenticate compares the delivery's shared token header against the
// configured secret in constant time. A webhook configured without a
// token accepts every delivery.
func (h *BitbucketHandler) Authenticate(body []byte, header http.Header) error {
	if h.token == "" {
		return nil
	}
	if !validToken(header, h.token) {
		return ErrAuthFailed
	}
	return nil
}

// bitbucketPayload covers the fields this service extracts from Bitbucket
// Server webhook payloads.
type bitbucketPayload struct {
	EventKey string `json:"eventKey"`
	Actor    struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"actor"`
	Repository struct {
		Slug    string `json:"slug"`
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
	} `json:"repository"`
	Changes []struct {
		Ref struct {
			ID        string `json:"id"`
			DisplayID string `json:"displayId"`
			Type      string `json:"type"` // BRANCH or TAG
		} `json:"ref"`
		ToHash string `json:"toHash"`
		Type   string `json:"type"` // ADD, UPDATE, DELETE
	} `json:"changes"`
	PullRequest struct {
		ID      int64 `json:"id"`
		FromRef struct {
			DisplayID    string `json:"displayId"`
			LatestCommit string `json:"latestCommit"`
		} `json:"fromRef"`
	} `json:"pullRequest"`
}

// Parse normalises one delivery into an Event, enriching changed files
// from the provider API where the payload omits them.
func (h *BitbucketHandler) Parse(ctx context.Context, body []byte, header http.Header) (*model.Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	var bb bitbucketPayload
	if err := json.Unmarshal(body, &bb); err != nil {
		return nil, fmt.Errorf("invalid Bitbucket payload: %w", err)
	}

	eventKey := header.Get(EventKeyHeader)
	if eventKey == "" {
		eventKey = bb.EventKey
	}
	if eventKey == "" {
		return nil, fmt.Errorf("missing event key")
	}

	ev := &model.Event{
		Source:     model.SourceBitbucket,
		Repository: repositoryName(&bb),
		Author:     authorName(&bb),
		Payload:    payload,
	}

	switch eventKey {
	case "repo:refs_changed":
		if err := h.parseRefsChanged(ctx, &bb, ev); err != nil {
			return nil, err
		}
	case "pr:opened":
		h.parsePullRequest(ctx, &bb, ev, model.EventPullRequestOpened)
	case "pr:from_ref_updated":
		h.parsePullRequest(ctx, &bb, ev, model.EventPullRequestUpdate)
	case "pr:merged":
		h.parsePullRequest(ctx, &bb, ev, model.EventPullRequestMerged)
	case "pr:declined", "pr:deleted":
		h.parsePullRequest(ctx, &bb, ev, model.EventPullRequestClosed)
	default:
		return nil, &UnsupportedEventError{Key: eventKey}
	}

	ev.ChangedFiles = sanitizePaths(ev.ChangedFiles)
	return ev, nil
}

// parseRefsChanged handles pushes and tag creation. A removed ref carries
// nothing actionable and is reported as unsupported.
func (h *BitbucketHandler) parseRefsChanged(ctx context.Context, bb *bitbucketPayload, ev *model.Event) error {
	if len(bb.Changes) == 0 {
		return fmt.Errorf("refs_changed payload has no changes")
	}
	change := bb.Changes[0]

	switch {
	case change.Ref.Type == "TAG" && change.Type == "ADD":
		// Tag creation on a bare ref: no branch.
		ev.EventType = model.EventTag
		ev.CommitHash = change.ToHash
		return nil
	case change.Ref.Type == "BRANCH" && (change.Type == "ADD" || change.Type == "UPDATE"):
		ev.EventType = model.EventPush
		ev.Branch = change.Ref.DisplayID
		ev.CommitHash = change.ToHash
	default:
		return &UnsupportedEventError{Key: fmt.Sprintf("repo:refs_changed/%s:%s", change.Ref.Type, change.Type)}
	}

	// The push payload carries refs, not files; list them per commit.
	if h.api == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, c := range bb.Changes {
		if c.Ref.Type != "BRANCH" || c.ToHash == "" {
			continue
		}
		if _, dup := seen[c.ToHash]; dup {
			continue
		}
		seen[c.ToHash] = struct{}{}

		files, err := h.api.CommitChanges(ctx, c.ToHash)
		if err != nil {
			h.l.Warnf(ctx, "enrich commit %s failed, continuing without its files: %v", c.ToHash, err)
			continue
		}
		ev.ChangedFiles = append(ev.ChangedFiles, files...)
	}
	return nil
}

func (h *BitbucketHandler) parsePullRequest(ctx context.Context, bb *bitbucketPayload, ev *model.Event, et model.EventType) {
	ev.EventType = et
	ev.Branch = bb.PullRequest.FromRef.DisplayID
	ev.CommitHash = bb.PullRequest.FromRef.LatestCommit

	if h.api == nil || bb.PullRequest.ID == 0 {
		return
	}
	files, err := h.api.PullRequestChanges(ctx, bb.PullRequest.ID)
	if err != nil {
		h.l.Warnf(ctx, "enrich pull request %d failed, continuing without changed files: %v", bb.PullRequest.ID, err)
		return
	}
	ev.ChangedFiles = files
}

func repositoryName(bb *bitbucketPayload) string {
	if bb.Repository.Project.Key == "" {
		return bb.Repository.Slug
	}
	return bb.Repository.Project.Key + "/" + bb.Repository.Slug
}

func authorName(bb *bitbucketPayload) string {
	if bb.Actor.Name != "" {
		return bb.Actor.Name
	}
	return bb.Actor.DisplayName
}

// sanitizePaths strips one leading "/" so paths are repository-relative,
// and drops empty entries and duplicates, keeping first-seen order.
// Separators are left as the provider sent them.
func sanitizePaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
