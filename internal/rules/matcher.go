package rules

import (
	"git-actions/internal/model"
)

// Matches decides whether an event matches a rule. Webhook membership is
// enforced earlier via the dispatch table and is not re-checked here.
// Matching is pure: no side effects, no I/O.
func Matches(e *model.Event, r *Rule) bool {
	if _, ok := r.EventTypes[e.EventType]; !ok {
		return false
	}

	// An event without a branch satisfies only an empty branch filter.
	if e.Branch == "" {
		if len(r.Branches) > 0 {
			return false
		}
	} else if !r.Branches.Matches(e.Branch) {
		return false
	}

	return r.Paths.MatchesAny(e.ChangedFiles)
}
