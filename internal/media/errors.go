package media

import "errors"

// ErrRootNotFound indicates the archive root does not exist or is not a directory.
var ErrRootNotFound = errors.New("archive root not found")
