package message

import "errors"

// ErrInvalidEnum indicates a record field holds a value outside its closed set.
var ErrInvalidEnum = errors.New("value outside closed enum")

// ErrPartialMismatch indicates partial does not match status=partial.
var ErrPartialMismatch = errors.New("partial flag does not match status")

// ErrNegativeIdx indicates idx is negative.
var ErrNegativeIdx = errors.New("idx must be non-negative")

// ErrNonContiguous indicates a stage output's idx sequence is not dense.
var ErrNonContiguous = errors.New("idx sequence is not contiguous from 0")

// ErrIncompatibleSchema indicates a reader encountered an unsupported major
// schema version.
var ErrIncompatibleSchema = errors.New("incompatible schema version")
