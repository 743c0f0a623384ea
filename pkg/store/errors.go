package store

import "errors"

// ErrNotFound is returned by Get* methods when the key doesn't exist. It is
// distinct from notifyerr.ErrStoreError: callers translate a not-found into
// the protocol-level NoProjectDataForTopic / NoClientDataForTopic errors,
// while anything else bubbles up as an infrastructure StoreError.
var ErrNotFound = errors.New("not found")
