package orchestrator

import (
	"io"
	"os"

	"github.com/alnah/chatpipeline/internal/resolver"
	"github.com/alnah/chatpipeline/internal/transcribe"
)

// Step names, matching the manifest's step keys and the run directory's
// filename prefixes.
const (
	StepParse  = "M1_parse"
	StepMedia  = "M2_media"
	StepAudio  = "M3_audio"
	StepRender = "M5_render"
)

const (
	fileM1         = "messages.M1.jsonl"
	fileM2         = "messages.M2.jsonl"
	fileM3         = "messages.M3.jsonl"
	fileChat       = "chat_with_audio.txt"
	filePreview    = "preview_transcripts.txt"
	fileExceptions = "exceptions.csv"
	fileManifest   = "run_manifest.json"
	fileMetrics    = "metrics.json"
)

// Config is the orchestrator's full run configuration: where the archive
// and chat export live, where the run writes its outputs, and every
// downstream stage's own configuration.
type Config struct {
	ArchiveRoot string
	ChatFile    string
	RunDir      string
	RunID       string

	Overwrite bool
	Resume    bool

	MaxWorkersAudio int
	EnablePreview   bool

	ResolverConfig    resolver.Config
	TranscribeConfig  transcribe.Config

	// Logger receives step-level progress lines. Defaults to os.Stderr.
	Logger io.Writer
}

// DefaultConfig returns the reference orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkersAudio:  4,
		EnablePreview:    true,
		ResolverConfig:   resolver.DefaultConfig(),
		TranscribeConfig: transcribe.DefaultConfig(),
		Logger:           os.Stderr,
	}
}
