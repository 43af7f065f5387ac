package manifest

import (
	"fmt"
	"sync"
)

// Tracker owns one RunManifest and serializes every mutation to it behind a
// mutex, so concurrent workers can report per-item progress via IncDone
// while only the orchestrator thread ever calls Write. Done counters are
// monotonic: IncDone only ever increases a step's Done field.
type Tracker struct {
	mu sync.Mutex
	rm RunManifest
}

// NewTracker seeds a Tracker for a fresh run.
func NewTracker(runID, root, chatFile, startTime string) *Tracker {
	return &Tracker{
		rm: RunManifest{
			SchemaVersion: SchemaVersion,
			RunID:         runID,
			Root:          root,
			ChatFile:      chatFile,
			StartTime:     startTime,
			Steps:         make(map[string]StepState),
		},
	}
}

// StartStep marks step running with the given item total and records it as
// the manifest's current step.
func (t *Tracker) StartStep(step string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rm.CurrentStep = step
	t.rm.Steps[step] = StepState{Status: StepRunning, Total: total}
}

// IncDone advances step's Done counter by one. Safe for concurrent callers.
func (t *Tracker) IncDone(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.rm.Steps[step]
	s.Done++
	t.rm.Steps[step] = s
}

// FinishStep sets step's terminal status. errMsgs, if non-empty, are
// recorded on the step (item-level failures, not a step-level failure).
func (t *Tracker) FinishStep(step string, status StepStatus, errMsgs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.rm.Steps[step]
	s.Status = status
	if len(errMsgs) > 0 {
		s.Errors = append(s.Errors, errMsgs...)
	}
	t.rm.Steps[step] = s
}

// SkipStep marks step skipped without altering Total/Done, used when resume
// policy determines the step's output is already valid.
func (t *Tracker) SkipStep(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rm.Steps[step] = StepState{Status: StepSkipped}
}

// FailRun records a step-level (infrastructure) failure: the named step and
// the whole run are marked failed with summary.error populated.
func (t *Tracker) FailRun(step string, endTime string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.rm.Steps[step]
	s.Status = StepFailed
	t.rm.Steps[step] = s
	t.rm.EndTime = endTime
	t.rm.Summary.Error = err.Error()
}

// SetSummary overwrites the run-level message/voice counts.
func (t *Tracker) SetSummary(messagesTotal, voiceTotal int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rm.Summary.MessagesTotal = messagesTotal
	t.rm.Summary.VoiceTotal = voiceTotal
}

// Finish sets the run's end time.
func (t *Tracker) Finish(endTime string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rm.EndTime = endTime
}

// Snapshot returns a deep-enough copy of the manifest for writing or
// inspection; callers must not mutate the returned Steps map's entries
// concurrently with further Tracker calls.
func (t *Tracker) Snapshot() RunManifest {
	t.mu.Lock()
	defer t.mu.Unlock()
	steps := make(map[string]StepState, len(t.rm.Steps))
	for k, v := range t.rm.Steps {
		errs := make([]string, len(v.Errors))
		copy(errs, v.Errors)
		v.Errors = errs
		steps[k] = v
	}
	out := t.rm
	out.Steps = steps
	return out
}

// Write persists the current manifest snapshot to path atomically.
func (t *Tracker) Write(path string) error {
	snap := t.Snapshot()
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid manifest before write: %w", err)
	}
	return WriteJSON(path, snap)
}

// Validate fails fast on any step carrying an out-of-enum status.
func (rm RunManifest) Validate() error {
	for name, s := range rm.Steps {
		if !s.Status.Valid() {
			return fmt.Errorf("%w: step %q status %q", ErrInvalidStepStatus, name, s.Status)
		}
	}
	return nil
}
