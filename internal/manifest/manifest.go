// Package manifest defines the run manifest and metrics JSON contracts the
// orchestrator writes after every stage, plus the atomic-write discipline
// shared with the content-addressed cache.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion is the current manifest/metrics schema version.
const SchemaVersion = "1.0.0"

// StepStatus is the closed set of per-step outcomes.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// String renders the status, falling back to a diagnostic form for any
// value outside the closed set (which Validate would reject).
func (s StepStatus) String() string {
	switch s {
	case StepPending, StepRunning, StepOK, StepFailed, StepSkipped:
		return string(s)
	default:
		return fmt.Sprintf("StepStatus(%q)", string(s))
	}
}

// Valid reports whether s lies within the closed StepStatus set.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepRunning, StepOK, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// StepState is one step's entry in RunManifest.Steps.
type StepState struct {
	Status StepStatus `json:"status"`
	Total  int        `json:"total"`
	Done   int        `json:"done"`
	Errors []string   `json:"errors,omitempty"`
}

// Summary carries the run-level counts and the failure message, if any.
type Summary struct {
	MessagesTotal int    `json:"messages_total"`
	VoiceTotal    int    `json:"voice_total"`
	Error         string `json:"error,omitempty"`
}

// RunManifest is the run_manifest.json contract.
type RunManifest struct {
	SchemaVersion string               `json:"schema_version"`
	RunID         string               `json:"run_id"`
	Root          string               `json:"root"`
	ChatFile      string               `json:"chat_file"`
	StartTime     string               `json:"start_time"`
	EndTime       string               `json:"end_time,omitempty"`
	CurrentStep   string               `json:"current_step,omitempty"`
	Steps         map[string]StepState `json:"steps"`
	Summary       Summary              `json:"summary"`
}

// Metrics is the metrics.json contract.
type Metrics struct {
	SchemaVersion      string  `json:"schema_version"`
	MessagesTotal      int     `json:"messages_total"`
	VoiceTotal         int     `json:"voice_total"`
	VoiceOK            int     `json:"voice_ok"`
	VoicePartial       int     `json:"voice_partial"`
	VoiceFailed        int     `json:"voice_failed"`
	MediaResolved      int     `json:"media_resolved"`
	MediaUnresolved    int     `json:"media_unresolved"`
	MediaAmbiguous     int     `json:"media_ambiguous"`
	ASRProvider        string  `json:"asr_provider"`
	ASRModel           string  `json:"asr_model"`
	ASRLanguage        string  `json:"asr_language"`
	AudioSecondsTotal  float64 `json:"audio_seconds_total"`
	ASRCostTotal       float64 `json:"asr_cost_total"`
	WallClockSeconds   float64 `json:"wall_clock_seconds"`
}

// WriteJSON marshals v with sorted, stable keys and persists it to path via
// write-temp-then-rename, the same discipline internal/cache and
// internal/message use for crash-safe writes.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op once renamed

	canon, err := canonicalJSON(v)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(canon); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadJSON loads a RunManifest or Metrics value from path.
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path) // #nosec G304 -- path is a run-directory stage output
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func canonicalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
