package pipelineconfig

import "errors"

// ErrInvalidKey indicates a config key passed to Get/Set is not recognized.
var ErrInvalidKey = errors.New("invalid config key")

// ErrNotWritable indicates the configuration directory could not be created
// or written to.
var ErrNotWritable = errors.New("directory not writable")
