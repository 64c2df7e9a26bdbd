package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"git-actions/pkg/log"
)

const (
	requestTimeout = 15 * time.Second

	// Changed-file listings are immutable for a given commit, so a short
	// cache of commit listings absorbs provider redelivery bursts.
	cacheSize = 512
	cacheTTL  = 5 * time.Minute

	// Client-side throttle for the provider REST API.
	requestsPerSecond = 10
	requestBurst      = 20
)

// Config holds the provider API coordinates from a webhook configuration.
type Config struct {
	BaseURL string
	Project string
	Repo    string
	Token   string
}

// Client is a Bitbucket Server REST API client used to list the files
// changed by a commit or pull request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *expirable.LRU[string, []string]
	l          log.Logger
}

// NewClient creates a client for one configured repository.
func NewClient(cfg Config, l log.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		cache:      expirable.NewLRU[string, []string](cacheSize, nil, cacheTTL),
		l:          l,
	}
}

// PullRequestChanges lists the paths changed by a pull request.
func (c *Client) PullRequestChanges(ctx context.Context, prID int64) ([]string, error) {
	return c.changedFiles(ctx, fmt.Sprintf("pull-requests/%d/changes", prID))
}

// CommitChanges lists the paths changed by a single commit.
func (c *Client) CommitChanges(ctx context.Context, commitID string) ([]string, error) {
	return c.changedFiles(ctx, fmt.Sprintf("commits/%s/changes", commitID))
}

// changedFiles fetches every page of a changes listing. Commit listings
// are cached; pull-request listings change when the source branch moves
// and are always fetched.
func (c *Client) changedFiles(ctx context.Context, resource string) ([]string, error) {
	cacheable := strings.HasPrefix(resource, "commits/")
	if cacheable {
		if cached, ok := c.cache.Get(resource); ok {
			return cached, nil
		}
	}

	var paths []string
	start := 0
	for {
		page, err := c.changesPage(ctx, resource, start)
		if err != nil {
			return nil, err
		}
		for _, ch := range page.Values {
			paths = append(paths, ch.Path.ToString)
		}
		if page.IsLastPage || page.NextPageStart == nil {
			break
		}
		start = *page.NextPageStart
	}

	if cacheable {
		c.cache.Add(resource, paths)
	}
	return paths, nil
}

func (c *Client) changesPage(ctx context.Context, resource string, start int) (*changesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bitbucket api throttle: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/repos/%s/%s?start=%d",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Project, c.cfg.Repo, resource, start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build bitbucket request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitbucket api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("bitbucket api %d: %s", resp.StatusCode, apiErr.Errors[0].Message)
		}
		return nil, fmt.Errorf("bitbucket api %d: %s", resp.StatusCode, raw)
	}

	var page changesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode bitbucket response: %w", err)
	}
	return &page, nil
}
