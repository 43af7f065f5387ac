package render

import "errors"

// ErrPreviewClosed indicates a write was attempted on a preview writer
// that has already had Close called.
var ErrPreviewClosed = errors.New("preview writer already closed")
