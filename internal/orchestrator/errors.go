package orchestrator

import "errors"

// ErrMissingArchiveRoot indicates the configured archive root does not
// exist or is not a directory. This is a step-level (infrastructure)
// failure, never an item-level one.
var ErrMissingArchiveRoot = errors.New("archive root missing or not a directory")

// ErrMissingChatFile indicates the configured chat export file could not
// be opened.
var ErrMissingChatFile = errors.New("chat export file missing")

// ErrCancelled indicates the orchestrator observed context cancellation at
// a step or item suspension point.
var ErrCancelled = errors.New("run cancelled")
