package cache

import "errors"

// ErrEntryNotFound indicates no cache entry exists for a given key.
var ErrEntryNotFound = errors.New("cache entry not found")
