package model

// Source identifies the provider kind that produced an event.
type Source string

const (
	SourceBitbucket Source = "bitbucket"
)

// EventType is the normalised event kind.
type EventType string

const (
	EventPush              EventType = "push"
	EventPullRequestOpened EventType = "pull_request_opened"
	EventPullRequestUpdate EventType = "pull_request_updated"
	EventPullRequestMerged EventType = "pull_request_merged"
	EventPullRequestClosed EventType = "pull_request_closed"
	EventTag               EventType = "tag"
)

// KnownEventTypes lists every normalised event type. Configuration strings
// must match one of these exactly (case-sensitive).
var KnownEventTypes = []EventType{
	EventPush,
	EventPullRequestOpened,
	EventPullRequestUpdate,
	EventPullRequestMerged,
	EventPullRequestClosed,
	EventTag,
}

// ParseEventType returns the EventType for a configuration string.
func ParseEventType(s string) (EventType, bool) {
	for _, et := range KnownEventTypes {
		if string(et) == s {
			return et, true
		}
	}
	return "", false
}

// Event is the normalised representation of one webhook delivery.
// It is immutable once produced; action tasks share it read-only.
type Event struct {
	EventType    EventType      `json:"event_type"`
	Source       Source         `json:"source"`
	WebhookName  string         `json:"webhook_name"`
	Repository   string         `json:"repository"`
	Branch       string         `json:"branch,omitempty"`
	CommitHash   string         `json:"commit_hash,omitempty"`
	Author       string         `json:"author,omitempty"`
	ChangedFiles []string       `json:"changed_files"`
	Payload      map[string]any `json:"payload"`
}
