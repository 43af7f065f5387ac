// Package orchestrator sequences the pipeline stages (M1_parse -> M2_media
// -> M3_audio -> M5_render) for one run, owning step- and item-level resume,
// bounded concurrency over voice transcription, and manifest/metrics
// emission. Stage-internal logic (parsing, resolving, transcribing,
// rendering) lives in their own packages; this package is pure composition.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/chatpipeline/internal/chatparse"
	"github.com/alnah/chatpipeline/internal/manifest"
	"github.com/alnah/chatpipeline/internal/media"
	"github.com/alnah/chatpipeline/internal/message"
	"github.com/alnah/chatpipeline/internal/render"
	"github.com/alnah/chatpipeline/internal/resolver"
	"github.com/alnah/chatpipeline/internal/transcribe"
)

// Orchestrator drives one run. Its transcriber is constructed by the
// caller: building an ASR backend requires provider credentials the
// orchestrator itself has no business holding.
type Orchestrator struct {
	cfg         Config
	transcriber *transcribe.Transcriber
	tracker     *manifest.Tracker
	startedAt   time.Time
}

// New builds an Orchestrator for cfg, driving voice transcription through
// transcriber.
func New(cfg Config, transcriber *transcribe.Transcriber) *Orchestrator {
	if cfg.MaxWorkersAudio < 1 {
		cfg.MaxWorkersAudio = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = os.Stderr
	}
	return &Orchestrator{cfg: cfg, transcriber: transcriber}
}

// Run executes the full pipeline, honoring resume/overwrite policy at the
// step level and, for M3_audio, at the per-voice-message level.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := os.MkdirAll(o.cfg.RunDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	runID := o.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	o.startedAt = time.Now().UTC()
	prev := o.loadPrevManifest()
	o.tracker = manifest.NewTracker(runID, o.cfg.RunDir, o.cfg.ChatFile, o.startedAt.Format(time.RFC3339))

	msgs, err := o.runParse(prev)
	if err != nil {
		return o.failRun(StepParse, err)
	}

	msgs, err = o.runResolve(msgs, prev)
	if err != nil {
		return o.failRun(StepMedia, err)
	}

	msgs, err = o.runTranscribe(ctx, msgs, prev)
	if err != nil {
		return o.failRun(StepAudio, err)
	}

	if err := o.runRender(msgs, prev); err != nil {
		return o.failRun(StepRender, err)
	}

	o.tracker.SetSummary(len(msgs), countVoice(msgs))
	o.tracker.Finish(time.Now().UTC().Format(time.RFC3339))
	if err := o.tracker.Write(o.path(fileManifest)); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	if err := o.writeMetrics(msgs); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	fmt.Fprintf(o.cfg.Logger, "run %s complete: %d messages, %d voice\n", runID, len(msgs), countVoice(msgs))
	return nil
}

func (o *Orchestrator) path(name string) string {
	return filepath.Join(o.cfg.RunDir, name)
}

// loadPrevManifest reads a prior run's manifest from the run directory, for
// step-level resume decisions. A missing or unreadable manifest simply
// disables resume; it is never a hard failure.
func (o *Orchestrator) loadPrevManifest() *manifest.RunManifest {
	if !o.cfg.Resume {
		return nil
	}
	var rm manifest.RunManifest
	if err := manifest.ReadJSON(o.path(fileManifest), &rm); err != nil {
		return nil
	}
	return &rm
}

// stepSatisfied reports whether step can be skipped entirely: its output
// file exists, the prior manifest recorded it ok, and overwrite was not
// requested.
func (o *Orchestrator) stepSatisfied(step, outputPath string, prev *manifest.RunManifest) bool {
	if o.cfg.Overwrite || prev == nil {
		return false
	}
	st, ok := prev.Steps[step]
	if !ok || st.Status != manifest.StepOK {
		return false
	}
	if _, err := os.Stat(outputPath); err != nil {
		return false
	}
	return true
}

func (o *Orchestrator) failRun(step string, err error) error {
	endTime := time.Now().UTC().Format(time.RFC3339)
	if o.tracker != nil {
		o.tracker.FailRun(step, endTime, err)
		_ = o.tracker.Write(o.path(fileManifest))
	}
	return fmt.Errorf("%s: %w", step, err)
}

func (o *Orchestrator) runParse(prev *manifest.RunManifest) ([]message.Message, error) {
	outPath := o.path(fileM1)
	if o.stepSatisfied(StepParse, outPath, prev) {
		o.tracker.SkipStep(StepParse)
		return message.ReadJSONL(outPath, message.SchemaVersion)
	}

	o.tracker.StartStep(StepParse, 1)
	f, err := os.Open(o.cfg.ChatFile) // #nosec G304 -- operator-supplied archive path
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingChatFile, o.cfg.ChatFile)
	}
	defer func() { _ = f.Close() }()

	msgs, err := chatparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse chat export: %w", err)
	}
	for i := range msgs {
		msgs[i].SchemaVersion = message.SchemaVersion
	}
	if err := message.WriteJSONL(outPath, msgs); err != nil {
		return nil, fmt.Errorf("write %s: %w", fileM1, err)
	}
	o.tracker.IncDone(StepParse)
	o.tracker.FinishStep(StepParse, manifest.StepOK)
	return msgs, nil
}

func (o *Orchestrator) runResolve(msgs []message.Message, prev *manifest.RunManifest) ([]message.Message, error) {
	outPath := o.path(fileM2)
	if o.stepSatisfied(StepMedia, outPath, prev) {
		o.tracker.SkipStep(StepMedia)
		return message.ReadJSONL(outPath, message.SchemaVersion)
	}

	o.tracker.StartStep(StepMedia, 1)
	info, err := os.Stat(o.cfg.ArchiveRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingArchiveRoot, o.cfg.ArchiveRoot)
	}
	idx, err := media.Build(o.cfg.ArchiveRoot)
	if err != nil {
		return nil, fmt.Errorf("build media index: %w", err)
	}
	res, err := resolver.New(idx, o.cfg.ResolverConfig)
	if err != nil {
		return nil, fmt.Errorf("configure resolver: %w", err)
	}
	out, exceptions, err := res.Resolve(msgs)
	if err != nil {
		return nil, fmt.Errorf("resolve media: %w", err)
	}
	if err := resolver.WriteExceptionsCSV(o.path(fileExceptions), exceptions); err != nil {
		return nil, fmt.Errorf("write exceptions csv: %w", err)
	}
	if err := message.WriteJSONL(outPath, out); err != nil {
		return nil, fmt.Errorf("write %s: %w", fileM2, err)
	}
	o.tracker.IncDone(StepMedia)
	o.tracker.FinishStep(StepMedia, manifest.StepOK)
	return out, nil
}

func (o *Orchestrator) runTranscribe(ctx context.Context, msgs []message.Message, prev *manifest.RunManifest) ([]message.Message, error) {
	outPath := o.path(fileM3)
	if o.stepSatisfied(StepAudio, outPath, prev) {
		o.tracker.SkipStep(StepAudio)
		return message.ReadJSONL(outPath, message.SchemaVersion)
	}

	resumable := o.loadResumableVoiceMessages(outPath)

	out := make([]message.Message, len(msgs))
	copy(out, msgs)

	var pending []int
	for i := range out {
		if out[i].Kind != message.KindVoice {
			continue
		}
		if out[i].MediaFilename == "" {
			// M2 already classified this as a resolution non-error
			// (status=ok, status_reason=unresolved_media/ambiguous_media);
			// there is nothing to transcribe and the status stands as-is.
			continue
		}
		if p, ok := resumable[out[i].Idx]; ok {
			out[i] = p
			continue
		}
		pending = append(pending, i)
	}

	o.tracker.StartStep(StepAudio, len(pending))
	if len(pending) == 0 {
		o.tracker.FinishStep(StepAudio, manifest.StepOK)
		if err := message.WriteJSONL(outPath, out); err != nil {
			return nil, fmt.Errorf("write %s: %w", fileM3, err)
		}
		return out, nil
	}

	var preview *render.PreviewWriter
	if o.cfg.EnablePreview {
		pf, err := os.OpenFile(o.path(filePreview), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 -- run-directory-relative
		if err != nil {
			return nil, fmt.Errorf("open preview stream: %w", err)
		}
		defer func() { _ = pf.Close() }()
		preview = render.NewPreviewWriter(pf)
	}

	sem := make(chan struct{}, o.cfg.MaxWorkersAudio)
	g, gctx := errgroup.WithContext(ctx)
	for _, i := range pending {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			o.transcribeOne(gctx, &out[i])
			if preview != nil {
				_ = preview.WriteMessage(out[i])
			}
			o.tracker.IncDone(StepAudio)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	if err := message.WriteJSONL(outPath, out); err != nil {
		return nil, fmt.Errorf("write %s: %w", fileM3, err)
	}
	o.tracker.FinishStep(StepAudio, manifest.StepOK)
	return out, nil
}

// transcribeOne resolves one voice message's transcript. It is only ever
// called for messages with a resolved MediaFilename; an ASR failure is
// captured on the message itself and never fails the step, per the
// item-level failure containment rule.
func (o *Orchestrator) transcribeOne(ctx context.Context, m *message.Message) {
	entry, err := o.transcriber.Transcribe(ctx, m.MediaFilename, m.Derived.MediaSHA256)
	if err != nil {
		m.Status = message.StatusFailed
		m.StatusReason = message.ReasonASRFailed
		m.Errors = append(m.Errors, err.Error())
		return
	}
	m.ContentText = entry.ContentText
	m.Status = entry.Status
	m.StatusReason = entry.StatusReason
	m.Partial = entry.Partial
	m.Derived.ASR = entry.ASR
}

// loadResumableVoiceMessages reads a prior M3 output (if resume is enabled)
// and returns the subset of voice messages that can be retained unchanged:
// those stamped with the current pipeline version and not already failed.
func (o *Orchestrator) loadResumableVoiceMessages(path string) map[int]message.Message {
	out := map[int]message.Message{}
	if !o.cfg.Resume || o.cfg.Overwrite {
		return out
	}
	prev, err := message.ReadJSONL(path, message.SchemaVersion)
	if err != nil {
		return out
	}
	for _, m := range prev {
		if m.Kind != message.KindVoice || m.Status == message.StatusFailed {
			continue
		}
		if m.Derived.ASR == nil || m.Derived.ASR.PipelineVersion != transcribe.PipelineVersion {
			continue
		}
		out[m.Idx] = m
	}
	return out
}

func (o *Orchestrator) runRender(msgs []message.Message, prev *manifest.RunManifest) error {
	outPath := o.path(fileChat)
	if o.stepSatisfied(StepRender, outPath, prev) {
		o.tracker.SkipStep(StepRender)
		return nil
	}

	o.tracker.StartStep(StepRender, 1)
	f, err := os.Create(outPath) // #nosec G304 -- run-directory-relative
	if err != nil {
		return fmt.Errorf("create %s: %w", fileChat, err)
	}
	defer func() { _ = f.Close() }()
	if err := render.WriteChat(f, msgs); err != nil {
		return fmt.Errorf("render chat: %w", err)
	}
	o.tracker.IncDone(StepRender)
	o.tracker.FinishStep(StepRender, manifest.StepOK)
	return nil
}

func (o *Orchestrator) writeMetrics(msgs []message.Message) error {
	m := manifest.Metrics{SchemaVersion: manifest.SchemaVersion}
	for _, msg := range msgs {
		m.MessagesTotal++
		if needsMediaBinding(msg.Kind) {
			switch {
			case msg.MediaFilename != "":
				m.MediaResolved++
			case msg.StatusReason == message.ReasonAmbiguousMedia:
				m.MediaAmbiguous++
			case msg.StatusReason == message.ReasonUnresolvedMedia:
				m.MediaUnresolved++
			}
		}
		if msg.Kind != message.KindVoice {
			continue
		}
		m.VoiceTotal++
		switch msg.Status {
		case message.StatusOK:
			m.VoiceOK++
		case message.StatusPartial:
			m.VoicePartial++
		case message.StatusFailed:
			m.VoiceFailed++
		}
		if msg.Derived.ASR == nil {
			continue
		}
		m.AudioSecondsTotal += msg.Derived.ASR.TotalDuration
		m.ASRCostTotal += msg.Derived.ASR.Cost
		if m.ASRProvider == "" {
			m.ASRProvider = msg.Derived.ASR.Provider
			m.ASRModel = msg.Derived.ASR.Model
			m.ASRLanguage = msg.Derived.ASR.LanguageHint
		}
	}
	m.WallClockSeconds = time.Since(o.startedAt).Seconds()
	return manifest.WriteJSON(o.path(fileMetrics), m)
}

func needsMediaBinding(k message.Kind) bool {
	switch k {
	case message.KindVoice, message.KindImage, message.KindVideo, message.KindDocument, message.KindSticker:
		return true
	default:
		return false
	}
}

func countVoice(msgs []message.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == message.KindVoice {
			n++
		}
	}
	return n
}
