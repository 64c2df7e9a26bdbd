package rules

import (
	"git-actions/internal/action"
	"git-actions/internal/model"
)

// Rule binds event criteria to a list of actions, scoped to one or more
// named webhooks. Rules are built at configuration load and immutable
// afterwards.
type Rule struct {
	Name        string
	Description string
	Webhooks    []string
	EventTypes  map[model.EventType]struct{}
	Branches    Filter
	Paths       Filter
	Actions     []action.Action
}

// AppliesTo reports whether the rule is scoped to the named webhook.
// The dispatcher uses this once, when building the dispatch table.
func (r *Rule) AppliesTo(webhookName string) bool {
	for _, w := range r.Webhooks {
		if w == webhookName {
			return true
		}
	}
	return false
}
