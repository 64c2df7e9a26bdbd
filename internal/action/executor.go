package action

import (
	"context"
	"net/http"

	"git-actions/internal/metrics"
	"git-actions/internal/model"
	"git-actions/pkg/log"
	"git-actions/pkg/template"
)

// Executor runs the actions of matched rules. One Executor is shared by
// all deliveries; it holds the pooled outbound HTTP client and the
// restricted environment exposed to templates.
type Executor struct {
	client *http.Client
	env    map[string]string
	l      log.Logger
}

// NewExecutor creates the shared action executor. env is the restricted
// map of environment variables referenced by the configuration.
func NewExecutor(env map[string]string, l log.Logger) *Executor {
	return &Executor{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		env: env,
		l:   l,
	}
}

// RunRule executes a rule's actions sequentially, in declaration order.
// A failed action is recorded and does not abort its siblings.
func (e *Executor) RunRule(ctx context.Context, ev *model.Event, ruleName string, actions []Action) {
	tctx, err := template.NewContext(ev, e.env)
	if err != nil {
		e.l.Errorf(ctx, "rule %s: build template context: %v", ruleName, err)
		for range actions {
			metrics.ActionErrors.Inc()
		}
		return
	}

	for i, a := range actions {
		var runErr error
		switch {
		case a.HTTP != nil:
			runErr = e.runHTTP(ctx, a.HTTP, tctx)
		case a.Shell != nil:
			runErr = e.runShell(ctx, a.Shell, tctx)
		}

		metrics.ActionsExecuted.Inc()
		if runErr != nil {
			metrics.ActionErrors.Inc()
			e.l.Errorf(ctx, "rule %s: action %d (%s) failed: %v", ruleName, i, a.Kind(), runErr)
			continue
		}
		e.l.Infof(ctx, "rule %s: action %d (%s) succeeded", ruleName, i, a.Kind())
	}
}
