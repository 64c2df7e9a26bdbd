package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"git-actions/pkg/template"
)

// runHTTP renders and issues one outbound HTTP call. Any non-2xx status or
// transport error is an action failure.
func (e *Executor) runHTTP(ctx context.Context, a *HTTPAction, tctx template.Context) error {
	url, err := template.Render(a.URL, tctx)
	if err != nil {
		return fmt.Errorf("render url: %w", err)
	}

	headers, err := template.RenderMap(a.Headers, tctx)
	if err != nil {
		return fmt.Errorf("render headers: %w", err)
	}

	var body io.Reader
	if a.Body != "" {
		rendered, err := template.Render(a.Body, tctx)
		if err != nil {
			return fmt.Errorf("render body: %w", err)
		}
		body = strings.NewReader(rendered)
	}

	if !MethodAllowed(a.Method) {
		return fmt.Errorf("method %q not allowed", a.Method)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, a.Method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", a.Method, url, err)
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))
	e.l.Debugf(ctx, "http action %s %s: status %d, body %q", a.Method, url, resp.StatusCode, preview)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", a.Method, url, resp.StatusCode)
	}
	return nil
}
