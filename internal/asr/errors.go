package asr

import "errors"

// ErrMissingCredential indicates a backend was constructed without a usable
// API credential; this is a config error surfaced before any work begins.
var ErrMissingCredential = errors.New("missing ASR provider credential")

// ErrUnknownProvider indicates a requested provider name has no backend.
var ErrUnknownProvider = errors.New("unknown ASR provider")
