package cli

import "errors"

// CLI-specific sentinel errors: validation/usage errors that don't belong
// to any domain package.
var (
	// ErrArchiveRootMissing indicates the given archive root does not exist.
	ErrArchiveRootMissing = errors.New("archive root not found")

	// ErrChatFileMissing indicates no chat export file was found under the
	// archive root and none was given explicitly.
	ErrChatFileMissing = errors.New("chat export file not found")

	// ErrRunDirMissing indicates a "resume" was requested against a run
	// directory that was never initialized.
	ErrRunDirMissing = errors.New("run directory not found")
)
