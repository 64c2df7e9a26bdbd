package webhook

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"git-actions/internal/action"
	"git-actions/internal/metrics"
	"git-actions/internal/rules"
	"git-actions/pkg/log"
)

const payloadPreviewLimit = 256

// Entry is one row of the dispatch table: a configured webhook, its
// handler, and the rules scoped to it. Built at startup, read-only after.
type Entry struct {
	Name    string
	Path    string
	Handler Handler
	Rules   []*rules.Rule
}

// Dispatcher routes deliveries through authenticate, parse, match, and
// schedules matched rules' actions in the background.
type Dispatcher struct {
	entries map[string]*Entry
	sched   *action.Scheduler
	l       log.Logger
}

// NewDispatcher builds the dispatch table. Duplicate paths are a
// configuration defect and rejected.
func NewDispatcher(entries []*Entry, sched *action.Scheduler, l log.Logger) (*Dispatcher, error) {
	table := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if _, dup := table[e.Path]; dup {
			return nil, fmt.Errorf("duplicate webhook path %q", e.Path)
		}
		table[e.Path] = e
	}
	return &Dispatcher{entries: table, sched: sched, l: l}, nil
}

// Entries returns the dispatch table rows for route registration.
func (d *Dispatcher) Entries() []*Entry {
	out := make([]*Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	return out
}

// HandleDelivery returns the gin handler for one dispatch table entry.
// The response is decoupled from action completion: the provider sees a
// quick acknowledgement and action outcomes surface via logs and metrics.
func (d *Dispatcher) HandleDelivery(entry *Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveryID := uuid.NewString()
		ctx := log.WithDeliveryID(c.Request.Context(), deliveryID)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			d.l.Errorf(ctx, "webhook %s: read body: %v", entry.Name, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		metrics.EventsReceived.Inc()

		if err := entry.Handler.Authenticate(body, c.Request.Header); err != nil {
			metrics.AuthFailed.Inc()
			d.l.Warnf(ctx, "webhook %s: authentication failed", entry.Name)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		ev, err := entry.Handler.Parse(ctx, body, c.Request.Header)
		if err != nil {
			var unsupported *UnsupportedEventError
			if errors.As(err, &unsupported) {
				metrics.EventsUnmatched.Inc()
				d.l.Infof(ctx, "webhook %s: ignoring %v", entry.Name, unsupported)
				c.JSON(http.StatusOK, gin.H{"status": "ignored"})
				return
			}
			metrics.ParseErrors.Inc()
			d.l.Errorf(ctx, "webhook %s: parse failed: %v (payload %q)", entry.Name, err, preview(body))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		ev.WebhookName = entry.Name

		var matched []*rules.Rule
		for _, r := range entry.Rules {
			if rules.Matches(ev, r) {
				matched = append(matched, r)
			}
		}

		d.l.Infof(ctx, "webhook %s: %s on %s matched %d rule(s)",
			entry.Name, ev.EventType, ev.Repository, len(matched))

		if len(matched) == 0 {
			metrics.EventsUnmatched.Inc()
		}
		for _, r := range matched {
			metrics.RulesMatched.Inc()
			if r.Description != "" {
				d.l.Debugf(ctx, "rule %s matched: %s", r.Name, r.Description)
			}
			d.sched.Dispatch(deliveryID, ev, r.Name, r.Actions)
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":        "accepted",
			"matched_rules": len(matched),
		})
	}
}

func preview(body []byte) []byte {
	if len(body) > payloadPreviewLimit {
		return body[:payloadPreviewLimit]
	}
	return body
}
