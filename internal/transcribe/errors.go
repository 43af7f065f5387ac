package transcribe

import "errors"

// ErrNoChunks indicates the chunker produced zero windows for a source that
// passed normalization; this should not occur for a non-empty source and
// signals a chunking invariant violation rather than a transient failure.
var ErrNoChunks = errors.New("no chunks produced for normalized audio")
