package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Artifact is a single media file discovered under the archive root.
type Artifact struct {
	Path     string // absolute path
	Size     int64
	ModTime  int64 // epoch seconds, stable across filesystems/timezones
	Tokens   Tokens
	FastPath bool // filename matched the canonical pattern

	hash string // lazily computed, cached
}

// ChatDay buckets a's modification time into the archive's temporal frame:
// UTC-rendered calendar date of the epoch-seconds mtime. Using UTC rather
// than host-local time keeps bucketing identical across machines.
func (a *Artifact) ChatDay() string {
	return time.Unix(a.ModTime, 0).UTC().Format("2006-01-02")
}

// SHA256 returns the artifact's content hash, computing and caching it on
// first call (lazy per the Media Artifact contract).
func (a *Artifact) SHA256() (string, error) {
	if a.hash != "" {
		return a.hash, nil
	}
	f, err := os.Open(a.Path) // #nosec G304 -- path comes from the archive scan, not user input
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", a.Path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", a.Path, err)
	}
	a.hash = hex.EncodeToString(h.Sum(nil))
	return a.hash, nil
}

// newArtifact builds an Artifact from a stat'd path.
func newArtifact(path string, info os.FileInfo) *Artifact {
	name := filepath.Base(path)
	tokens, fastPath := ParseFilename(name)
	if !fastPath {
		tokens.Kind = ExtKind(filepath.Ext(name))
		tokens.Sequence = -1
	}
	return &Artifact{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime().Unix(),
		Tokens:   tokens,
		FastPath: fastPath,
	}
}
