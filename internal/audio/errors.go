package audio

import "errors"

// ErrInvalidOverlap indicates a chunk window's overlap is negative or not
// strictly less than the window duration.
var ErrInvalidOverlap = errors.New("invalid chunk overlap")

// ErrEmptySource indicates the source audio has zero or unreadable duration;
// it never surfaces as a silent empty-chunk traversal.
var ErrEmptySource = errors.New("empty or unreadable audio source")

// ErrChunkingFailed indicates ffmpeg failed to extract a chunk window.
var ErrChunkingFailed = errors.New("chunk extraction failed")

// ErrProbeFailed indicates the source duration could not be determined.
var ErrProbeFailed = errors.New("failed to probe audio duration")
