// Package pipelineconfig layers the pipeline's full configuration surface
// (resolver, audio, ASR, orchestrator knobs) from defaults, an optional YAML
// file, and environment variables, via viper. It also persists a small set
// of frequently-overridden settings (asr provider/model/language, credential
// env var name, cache dir, run dir, audio worker count) to a YAML file under
// the XDG config directory, readable and writable through "config get/set/list".
package pipelineconfig

import (
	"sort"
	"time"

	"github.com/alnah/chatpipeline/internal/audio"
	"github.com/alnah/chatpipeline/internal/media"
	"github.com/alnah/chatpipeline/internal/orchestrator"
	"github.com/alnah/chatpipeline/internal/resolver"
	"github.com/alnah/chatpipeline/internal/scoring"
	"github.com/alnah/chatpipeline/internal/transcribe"
)

// Config keys recognized by "config get/set/list". These are the knobs a
// user is expected to override interactively; the rest of the surface
// (resolver weights, VAD thresholds, ...) is file/env only.
const (
	KeyASRProvider      = "asr.provider"
	KeyASRModel         = "asr.model"
	KeyASRLanguage      = "asr.language"
	KeyCredentialEnvVar = "asr.credential_env_var"
	KeyCacheDir         = "audio.cache_dir"
	KeyRunDir           = "orchestrator.run_dir"
	KeyMaxWorkersAudio  = "orchestrator.max_workers_audio"
)

// ValidKeys lists every key "config get/set/list" accepts, in display order.
var ValidKeys = []string{
	KeyASRProvider,
	KeyASRModel,
	KeyASRLanguage,
	KeyCredentialEnvVar,
	KeyCacheDir,
	KeyRunDir,
	KeyMaxWorkersAudio,
}

// Settings is the fully composed configuration surface named in the
// external interfaces: resolver, audio, ASR, and orchestrator knobs.
type Settings struct {
	Resolver ResolverSettings
	Audio    AudioSettings
	ASR      ASRSettings
	Orch     OrchestratorSettings
}

// ResolverSettings is the externally configurable Resolver knob surface.
type ResolverSettings struct {
	WeightHint          float64
	WeightExt           float64
	WeightSeq           float64
	WeightMtime         float64
	Tau                 float64
	TieMargin           float64
	AcceptanceThreshold float64
	ClockDriftHours     float64

	// AllowedExtensions lists the file extensions (with leading dot, e.g.
	// ".opus") the resolver's fast path will accept.
	AllowedExtensions []string
	// ExtPriority orders candidate kinds ("voice", "image", "video",
	// "document", "other") by acceptance priority.
	ExtPriority map[string]float64
}

// AudioSettings is the externally configurable audio pipeline knob surface.
type AudioSettings struct {
	NormalizerToolPath  string
	SampleRate          int
	Channels            int
	ChunkSeconds        float64
	ChunkOverlapSeconds float64
	NormalizeTimeout    time.Duration
	NormalizeMaxRetries int
	VADMinSpeechRatio   float64
	VADMinSpeechSeconds float64
	CacheDir            string
}

// ASRSettings is the externally configurable ASR provider knob surface.
type ASRSettings struct {
	Provider          string
	Model             string
	LanguageHint      string
	Timeout           time.Duration
	MaxRetries        int
	BillingPlan       string
	CredentialEnvVar  string
	MaxParallelChunks int
}

// OrchestratorSettings is the externally configurable run-orchestration knob surface.
type OrchestratorSettings struct {
	RunID           string
	RunDir          string
	MaxWorkersAudio int
	Overwrite       bool
	Resume          bool
	EnablePreview   bool
}

// Defaults returns Settings whose resolver and audio values are seeded from
// resolver.DefaultConfig and transcribe.DefaultConfig. The ASR and
// orchestrator values are literals here: the ASR timeout and retry budget
// equal asr.NewClient's defaults, and MaxWorkersAudio equals
// orchestrator.DefaultConfig's.
func Defaults() Settings {
	rc := resolver.DefaultConfig()
	tc := transcribe.DefaultConfig()

	return Settings{
		Resolver: ResolverSettings{
			WeightHint:          rc.Weights.Hint,
			WeightExt:           rc.Weights.Ext,
			WeightSeq:           rc.Weights.Seq,
			WeightMtime:         rc.Weights.Mtime,
			Tau:                 rc.Tau,
			TieMargin:           rc.TieMargin,
			AcceptanceThreshold: rc.AcceptanceThreshold,
			ClockDriftHours:     rc.ClockDriftHours,
			AllowedExtensions:   extensionList(rc.AllowedExtensions),
			ExtPriority:         extPriorityMap(rc.ExtPriority),
		},
		Audio: AudioSettings{
			SampleRate:          tc.SampleRate,
			Channels:            tc.Channels,
			ChunkSeconds:        tc.ChunkConfig.Window.Seconds(),
			ChunkOverlapSeconds: tc.ChunkConfig.Overlap.Seconds(),
			NormalizeTimeout:    tc.NormalizeTimeout,
			NormalizeMaxRetries: tc.NormalizeRetries,
			VADMinSpeechRatio:   tc.VADConfig.RatioThreshold,
			VADMinSpeechSeconds: tc.VADConfig.SecondsThreshold,
		},
		ASR: ASRSettings{
			Provider:          "openai",
			Model:             "gpt-4o-mini-transcribe",
			LanguageHint:      "auto",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			CredentialEnvVar:  "OPENAI_API_KEY",
			MaxParallelChunks: tc.MaxParallelChunks,
		},
		Orch: OrchestratorSettings{
			MaxWorkersAudio: 4,
			EnablePreview:   true,
		},
	}
}

// ToResolverConfig converts the resolver slice of Settings into a
// resolver.Config, preserving DefaultConfig's ExtPriority-derived scoring
// weights structure.
func (s Settings) ToResolverConfig() resolver.Config {
	return resolver.Config{
		Weights: scoring.Weights{
			Hint:  s.Resolver.WeightHint,
			Ext:   s.Resolver.WeightExt,
			Seq:   s.Resolver.WeightSeq,
			Mtime: s.Resolver.WeightMtime,
		},
		Tau:                 s.Resolver.Tau,
		TieMargin:           s.Resolver.TieMargin,
		AcceptanceThreshold: s.Resolver.AcceptanceThreshold,
		ClockDriftHours:     s.Resolver.ClockDriftHours,
		AllowedExtensions:   extensionSet(s.Resolver.AllowedExtensions),
		ExtPriority:         extPriorityKinds(s.Resolver.ExtPriority),
	}
}

// extensionList turns the resolver's default allowed-extensions set into a
// sorted slice, the settings layer's YAML/env-friendly representation.
func extensionList(allowed map[string]bool) []string {
	out := make([]string, 0, len(allowed))
	for ext := range allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// extensionSet is extensionList's inverse, used when building a
// resolver.Config from persisted Settings.
func extensionSet(exts []string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, ext := range exts {
		out[ext] = true
	}
	return out
}

// extPriorityMap turns the scoring package's media.Kind-keyed priority table
// into the settings layer's string-keyed representation.
func extPriorityMap(priority map[media.Kind]float64) map[string]float64 {
	out := make(map[string]float64, len(priority))
	for kind, v := range priority {
		out[string(kind)] = v
	}
	return out
}

// extPriorityKinds is extPriorityMap's inverse.
func extPriorityKinds(priority map[string]float64) map[media.Kind]float64 {
	out := make(map[media.Kind]float64, len(priority))
	for kind, v := range priority {
		out[media.Kind(kind)] = v
	}
	return out
}

// ToTranscribeConfig converts the audio/ASR slices of Settings into a
// transcribe.Config. The caller still supplies CacheRoot (run-scoped) and
// FFmpegPath (resolved at startup).
func (s Settings) ToTranscribeConfig(ffmpegPath, cacheRoot string) transcribe.Config {
	return transcribe.Config{
		FFmpegPath:       ffmpegPath,
		SampleRate:       s.Audio.SampleRate,
		Channels:         s.Audio.Channels,
		NormalizeTimeout: s.Audio.NormalizeTimeout,
		NormalizeRetries: s.Audio.NormalizeMaxRetries,
		ChunkConfig: audio.ChunkConfig{
			Window:  secondsToDuration(s.Audio.ChunkSeconds),
			Overlap: secondsToDuration(s.Audio.ChunkOverlapSeconds),
		},
		VADConfig: audio.VADConfig{
			NoiseDB:          audio.DefaultVADConfig.NoiseDB,
			MinSilence:       audio.DefaultVADConfig.MinSilence,
			RatioThreshold:   s.Audio.VADMinSpeechRatio,
			SecondsThreshold: s.Audio.VADMinSpeechSeconds,
		},
		Provider:          s.ASR.Provider,
		Model:             s.ASR.Model,
		LanguageHint:      s.ASR.LanguageHint,
		MaxParallelChunks: s.ASR.MaxParallelChunks,
		CacheRoot:         cacheRoot,
		BillingPlan:       s.ASR.BillingPlan,
	}
}

// ToOrchestratorConfig builds an orchestrator.Config for one run, layering
// archiveRoot/chatFile/runDir (always run-specific, never persisted) over
// Settings' stored knobs.
func (s Settings) ToOrchestratorConfig(archiveRoot, chatFile, ffmpegPath string) orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	cfg.ArchiveRoot = archiveRoot
	cfg.ChatFile = chatFile
	cfg.RunID = s.Orch.RunID
	cfg.RunDir = s.Orch.RunDir
	cfg.Overwrite = s.Orch.Overwrite
	cfg.Resume = s.Orch.Resume
	cfg.MaxWorkersAudio = s.Orch.MaxWorkersAudio
	cfg.EnablePreview = s.Orch.EnablePreview
	cfg.ResolverConfig = s.ToResolverConfig()
	cfg.TranscribeConfig = s.ToTranscribeConfig(ffmpegPath, s.Audio.CacheDir)
	return cfg
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
