// Package transcribe composes the normalize -> VAD -> chunk -> transcribe ->
// assemble pipeline that turns one voice-note source file into a hydrated
// cache entry, consulting and populating the content-addressed cache so a
// resumed run never re-pays ASR cost for work already done.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/chatpipeline/internal/apierr"
	"github.com/alnah/chatpipeline/internal/asr"
	"github.com/alnah/chatpipeline/internal/audio"
	"github.com/alnah/chatpipeline/internal/cache"
	"github.com/alnah/chatpipeline/internal/ffmpeg"
	"github.com/alnah/chatpipeline/internal/message"
)

const (
	placeholderConversionFailed = "[AUDIO CONVERSION FAILED]"
	placeholderTranscriptFailed = "[AUDIO TRANSCRIPTION FAILED]"

	// PipelineVersion is stamped onto every ASRPayload this package produces.
	// The orchestrator compares a prior run's stamped version against this
	// constant to decide whether a voice message can be resumed without
	// re-transcription.
	PipelineVersion = "1.0.0"

	defaultMaxParallelChunks = 4
)

// normalizer converts a source media file to 16kHz mono PCM WAV.
type normalizer interface {
	Normalize(ctx context.Context, ffmpegPath, srcPath, destPath string, cfg ffmpeg.NormalizeConfig) (ffmpeg.NormalizeResult, error)
}

// chunker splits a normalized WAV into fixed-window chunks.
type chunker interface {
	Chunk(ctx context.Context, pcmPath, destDir string, cfg audio.ChunkConfig) ([]audio.Chunk, error)
}

// vadAnalyzer computes observational voice-activity statistics.
type vadAnalyzer interface {
	Analyze(ctx context.Context, path string, cfg audio.VADConfig) (message.VADStats, error)
}

// asrClient transcribes one chunk.
type asrClient interface {
	Transcribe(ctx context.Context, req asr.Request) (asr.Response, error)
}

// Config holds the per-run parameters that both select the cache key and
// drive normalize/chunk/transcribe behavior.
type Config struct {
	FFmpegPath        string
	SampleRate        int
	Channels          int
	NormalizeTimeout  time.Duration
	NormalizeRetries  int
	ChunkConfig       audio.ChunkConfig
	VADConfig         audio.VADConfig
	Provider          string
	Model             string
	LanguageHint      string
	MaxParallelChunks int
	CacheRoot         string
	BillingPlan       string
}

// DefaultConfig mirrors the reference pipeline parameters: 16kHz mono,
// 120s windows with 0.25s overlap, 4 chunks transcribed concurrently.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		NormalizeTimeout:  2 * time.Minute,
		NormalizeRetries:  2,
		ChunkConfig:       audio.DefaultChunkConfig,
		VADConfig:         audio.DefaultVADConfig,
		MaxParallelChunks: defaultMaxParallelChunks,
	}
}

// Transcriber drives one voice-note source file through normalize, VAD,
// chunk, ASR, assembly, status resolution, and cache write.
type Transcriber struct {
	normalizer normalizer
	chunker    chunker
	vad        vadAnalyzer
	asr        asrClient
	tempDir    tempDirCreator
	dirRemover dirRemover
	cfg        Config
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithTempDirCreator overrides the scratch-directory creator (for testing).
func WithTempDirCreator(c tempDirCreator) Option {
	return func(t *Transcriber) { t.tempDir = c }
}

// WithDirRemover overrides the scratch-directory cleanup hook (for testing).
func WithDirRemover(r dirRemover) Option {
	return func(t *Transcriber) { t.dirRemover = r }
}

// New builds a Transcriber from its collaborators. norm, chk, and vad are
// expected to be *ffmpeg.Executor, *audio.Chunker, and *audio.VADDetector in
// production, narrowed to the interfaces above so tests can substitute
// fakes.
func New(norm normalizer, chk chunker, vad vadAnalyzer, client asrClient, cfg Config, opts ...Option) *Transcriber {
	t := &Transcriber{
		normalizer: norm,
		chunker:    chk,
		vad:        vad,
		asr:        client,
		tempDir:    osTempDirCreator{},
		dirRemover: osDirRemover{},
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// cacheKey builds this run's content-addressed key for srcContentSHA256.
func (t *Transcriber) cacheKey(srcContentSHA256 string) string {
	return cache.Key{
		ContentSHA256:    srcContentSHA256,
		Provider:         t.cfg.Provider,
		Model:            t.cfg.Model,
		WindowSeconds:    t.cfg.ChunkConfig.Window.Seconds(),
		OverlapSeconds:   t.cfg.ChunkConfig.Overlap.Seconds(),
		VADRatioThresh:   t.cfg.VADConfig.RatioThreshold,
		VADSecondsThresh: t.cfg.VADConfig.SecondsThreshold,
		SchemaVersion:    message.SchemaVersion,
	}.Digest()
}

// Transcribe produces the hydrated cache.Entry for srcPath, hydrating from
// the cache when a prior run already transcribed the same content under the
// same parameters. srcContentSHA256 is the resolved media file's content
// hash (derived.media_sha256), which anchors the cache key.
func (t *Transcriber) Transcribe(ctx context.Context, srcPath, srcContentSHA256 string) (*cache.Entry, error) {
	key := t.cacheKey(srcContentSHA256)

	if cached, err := cache.Read(t.cfg.CacheRoot, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrEntryNotFound) {
		return nil, fmt.Errorf("read cache for %s: %w", filepath.Base(srcPath), err)
	}

	entry, err := t.transcribeFresh(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	if err := cache.Write(t.cfg.CacheRoot, key, entry); err != nil {
		return nil, fmt.Errorf("write cache entry for %s: %w", filepath.Base(srcPath), err)
	}
	return entry, nil
}

func (t *Transcriber) transcribeFresh(ctx context.Context, srcPath string) (*cache.Entry, error) {
	tmpDir, err := t.tempDir.MkdirTemp("", "chatpipeline-voice-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = t.dirRemover.RemoveAll(tmpDir) }()

	normPath := filepath.Join(tmpDir, "normalized.wav")
	normResult, err := t.normalizer.Normalize(ctx, t.cfg.FFmpegPath, srcPath, normPath, ffmpeg.NormalizeConfig{
		SampleRate: t.cfg.SampleRate,
		Channels:   t.cfg.Channels,
		Timeout:    t.cfg.NormalizeTimeout,
		MaxRetries: t.cfg.NormalizeRetries,
	})
	if err != nil {
		reason := message.ReasonFFmpegFailed
		if errors.Is(err, ffmpeg.ErrTimeout) {
			reason = message.ReasonTimeoutFFmpeg
		}
		return &cache.Entry{
			ContentText:  placeholderConversionFailed,
			Status:       message.StatusFailed,
			StatusReason: reason,
			Partial:      false,
			ASR: &message.ASRPayload{
				PipelineVersion: PipelineVersion,
				Provider:        t.cfg.Provider,
				Model:           t.cfg.Model,
				LanguageHint:    t.cfg.LanguageHint,
				FFmpegLogTail:   normResult.LogTail,
			},
		}, nil
	}

	var vadStats *message.VADStats
	if stats, err := t.vad.Analyze(ctx, normPath, t.cfg.VADConfig); err == nil {
		vadStats = &stats
	}

	chunks, err := t.chunker.Chunk(ctx, normPath, tmpDir, t.cfg.ChunkConfig)
	if err != nil {
		return &cache.Entry{
			ContentText:  placeholderTranscriptFailed,
			Status:       message.StatusFailed,
			StatusReason: message.ReasonAudioUnsupportedFmt,
			Partial:      false,
			ASR: &message.ASRPayload{
				PipelineVersion: PipelineVersion,
				Provider:        t.cfg.Provider,
				Model:           t.cfg.Model,
				LanguageHint:    t.cfg.LanguageHint,
				VAD:             vadStats,
			},
		}, nil
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	chunkInfos, kinds, err := t.transcribeChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	return t.assemble(chunkInfos, kinds, vadStats, chunks), nil
}

// transcribeChunks runs ASR over every chunk with bounded concurrency via a
// semaphore over errgroup: each chunk's outcome is captured into its slot
// regardless of neighbors' failures, so a mid-run chunk failure never aborts
// the rest.
func (t *Transcriber) transcribeChunks(ctx context.Context, chunks []audio.Chunk) ([]message.ChunkInfo, []apierr.Kind, error) {
	maxParallel := t.cfg.MaxParallelChunks
	if maxParallel < 1 {
		maxParallel = 1
	}

	infos := make([]message.ChunkInfo, len(chunks))
	kinds := make([]apierr.Kind, len(chunks))
	sem := make(chan struct{}, maxParallel)
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range chunks {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			resp, err := t.asr.Transcribe(gctx, asr.Request{
				WavPath:      c.Path,
				StartSec:     c.StartSec,
				EndSec:       c.EndSec,
				LanguageHint: t.cfg.LanguageHint,
				Model:        t.cfg.Model,
			})
			infos[i] = chunkInfoFrom(c, resp, err)
			if err != nil {
				kinds[i] = apierr.Classify(err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("transcribe chunks: %w", err)
	}
	return infos, kinds, nil
}

func chunkInfoFrom(c audio.Chunk, resp asr.Response, err error) message.ChunkInfo {
	info := message.ChunkInfo{
		ChunkIndex:   c.Index,
		StartSec:     c.StartSec,
		EndSec:       c.EndSec,
		DurationSec:  c.DurationSec(),
		WavChunkPath: c.Path,
	}
	if err != nil {
		info.Status = "error"
		info.Error = err.Error()
		return info
	}
	info.Status = "ok"
	info.Text = resp.Text
	info.Language = resp.Language
	return info
}

// assemble joins successful chunk texts, resolves status, and attaches the
// ASR derived payload.
func (t *Transcriber) assemble(chunks []message.ChunkInfo, kinds []apierr.Kind, vadStats *message.VADStats, windows []audio.Chunk) *cache.Entry {
	var texts []string
	var okCount, errCount int
	var lastErrorKind apierr.Kind
	var lastErrorMsg string
	var totalDuration float64

	for i, c := range chunks {
		totalDuration += c.DurationSec
		if c.Status == "ok" {
			okCount++
			texts = append(texts, c.Text)
			continue
		}
		errCount++
		lastErrorMsg = c.Error
		lastErrorKind = kinds[i]
	}

	contentText := strings.Join(texts, "\n")

	var status message.Status
	var reason message.StatusReason
	partial := false

	switch {
	case errCount == 0:
		status, reason = message.StatusOK, message.ReasonNone
	case okCount == 0:
		status = message.StatusFailed
		if lastErrorKind == apierr.KindTimeout {
			reason = message.ReasonTimeoutASR
		} else {
			reason = message.ReasonASRFailed
		}
		if contentText == "" {
			contentText = placeholderTranscriptFailed
		}
	default:
		status, reason, partial = message.StatusPartial, message.ReasonASRPartial, true
	}

	billableSeconds := 0.0
	for _, w := range windows {
		billableSeconds += w.DurationSec()
	}

	errSummary := message.ErrSummary{
		ChunksOK:     okCount,
		ChunksError:  errCount,
		LastErrorMsg: lastErrorMsg,
	}
	if errCount > 0 {
		errSummary.LastErrorKind = string(lastErrorKind)
	}

	return &cache.Entry{
		ContentText:  contentText,
		Status:       status,
		StatusReason: reason,
		Partial:      partial,
		ASR: &message.ASRPayload{
			PipelineVersion: PipelineVersion,
			Provider:        t.cfg.Provider,
			Model:           t.cfg.Model,
			LanguageHint:    t.cfg.LanguageHint,
			TotalDuration:   totalDuration,
			Chunks:          chunks,
			VAD:             vadStats,
			ErrorSummary:    errSummary,
			Cost:            EstimateCost(t.cfg.Provider, t.cfg.Model, t.cfg.BillingPlan, billableSeconds),
		},
	}
}
