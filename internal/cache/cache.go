// Package cache implements the content-addressed store for audio
// transcription results, keyed so a re-run with identical inputs and
// pipeline parameters never re-pays ASR cost.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alnah/chatpipeline/internal/message"
)

// Key identifies the inputs that determine a transcription result. Any
// change to one of these fields must invalidate the cache entry, so all of
// them feed the digest.
type Key struct {
	ContentSHA256    string
	Provider         string
	Model            string
	WindowSeconds    float64
	OverlapSeconds   float64
	VADRatioThresh   float64
	VADSecondsThresh float64
	SchemaVersion    string
}

// Digest computes the cache key's hex digest over its component fields, in a
// fixed field order so the same inputs always produce the same key.
func (k Key) Digest() string {
	h := sha256.New()
	parts := []string{
		k.ContentSHA256,
		k.Provider,
		k.Model,
		strconv.FormatFloat(k.WindowSeconds, 'f', -1, 64),
		strconv.FormatFloat(k.OverlapSeconds, 'f', -1, 64),
		strconv.FormatFloat(k.VADRatioThresh, 'f', -1, 64),
		strconv.FormatFloat(k.VADSecondsThresh, 'f', -1, 64),
		k.SchemaVersion,
	}
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is the full hydrated state written for one voice record's
// transcription attempt, keyed so that reading it back requires no further
// ASR work.
type Entry struct {
	ContentText  string               `json:"content_text"`
	Status       message.Status       `json:"status"`
	StatusReason message.StatusReason `json:"status_reason,omitempty"`
	Partial      bool                 `json:"partial"`
	ASR          *message.ASRPayload  `json:"asr,omitempty"`
}

// Path returns the on-disk location of the entry for key under cacheRoot.
func Path(cacheRoot, key string) string {
	return filepath.Join(cacheRoot, "audio", key+".json")
}

// Read loads the entry for key, reporting ErrEntryNotFound when absent.
func Read(cacheRoot, key string) (*Entry, error) {
	path := Path(cacheRoot, key)
	b, err := os.ReadFile(path) // #nosec G304 -- path is derived from a content digest under cacheRoot
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, key)
		}
		return nil, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return &e, nil
}

// Write persists entry for key under cacheRoot, creating the audio/
// subdirectory if needed and writing via temp-file-then-rename so a crash
// mid-write never leaves a torn entry behind. Object keys are written in
// sorted order so byte-identical inputs always produce a byte-identical
// file, matching stage-output determinism elsewhere in the pipeline.
func Write(cacheRoot, key string, entry *Entry) error {
	dir := filepath.Join(cacheRoot, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	canon, err := canonicalJSON(entry)
	if err != nil {
		return fmt.Errorf("canonicalize cache entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache entry: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op once renamed

	if _, err := tmp.Write(canon); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cache entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache entry: %w", err)
	}

	if err := os.Rename(tmpPath, Path(cacheRoot, key)); err != nil {
		return fmt.Errorf("rename cache entry into place: %w", err)
	}
	return nil
}

// canonicalJSON marshals v to JSON with alphabetically sorted object keys,
// by round-tripping through a generic map: encoding/json sorts map[string]
// keys on marshal but preserves struct field declaration order, so a plain
// json.Marshal(v) would not give the stable, diffable shape a content-
// addressed store wants.
func canonicalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Exists reports whether an entry for key is present under cacheRoot.
func Exists(cacheRoot, key string) bool {
	_, err := os.Stat(Path(cacheRoot, key))
	return err == nil
}
