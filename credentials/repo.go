package credentials

import "errors"

// Kind selects which of the two persisted credentials a call refers to.
// The values double as the stable storage keys.
type Kind string

const (
	KindAccess  Kind = "access"  // Short-lived bearer token attached to requests
	KindRefresh Kind = "refresh" // Longer-lived token used only to mint a new access token
)

var ErrNotFound = errors.New("credential not found")

// Store persists opaque bearer tokens across process restarts. Tokens are
// never decoded or validated here; the store is pure key/value plumbing.
// Writes only ever originate from the session manager and the refresh
// coordinator, which already serialize them, so last-write-wins is enough.
type Store interface {
	// Get returns the stored token for kind, or ErrNotFound.
	Get(kind Kind) (string, error)
	// Set stores the token for kind, replacing any previous value.
	Set(kind Kind, token string) error
	// Clear removes the token for kind. Clearing an absent kind is not an error.
	Clear(kind Kind) error
	// ClearAll removes every stored credential.
	ClearAll() error
}
