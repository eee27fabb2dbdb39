package transport

import "errors"

// ErrNoIdentity is returned by New when no transport identity was loaded.
var ErrNoIdentity = errors.New("transport identity is required")
