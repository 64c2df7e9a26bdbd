package webhook

import (
	"crypto/subtle"
	"net/http"
)

// TokenHeader carries the shared webhook secret on Bitbucket Server
// deliveries.
const TokenHeader = "X-Hub-Signature"

// validToken compares the presented token against the configured one in
// constant time.
func validToken(header http.Header, want string) bool {
	got := header.Get(TokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
