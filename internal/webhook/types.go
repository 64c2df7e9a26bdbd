package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"git-actions/internal/model"
)

// ErrAuthFailed is returned when a delivery cannot be authenticated.
// The dispatcher answers 401 and never logs the presented credential.
var ErrAuthFailed = errors.New("webhook authentication failed")

// UnsupportedEventError marks a payload whose event kind this service does
// not handle. The dispatcher acknowledges it with 200 so the provider does
// not retry.
type UnsupportedEventError struct {
	Key string
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event kind %q", e.Key)
}

// Handler authenticates and normalises provider-specific deliveries.
// Implementations are selected by the configured webhook kind.
type Handler interface {
	// Authenticate verifies the delivery is genuine. It receives the
	// exact raw bytes as delivered; implementations must not verify a
	// re-serialised copy.
	Authenticate(body []byte, header http.Header) error

	// Parse extracts the normalised event, calling back to the provider
	// API when the payload omits data (changed files). A failed
	// enrichment lookup leaves its files out of the event (no changed
	// files at all when every lookup fails); it does not fail the parse.
	Parse(ctx context.Context, body []byte, header http.Header) (*model.Event, error)
}

// ChangesAPI lists the files changed by a commit or pull request. It is
// implemented by the Bitbucket REST client and faked in tests.
type ChangesAPI interface {
	PullRequestChanges(ctx context.Context, prID int64) ([]string, error)
	CommitChanges(ctx context.Context, commitID string) ([]string, error)
}
