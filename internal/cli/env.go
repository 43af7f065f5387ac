package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/chatpipeline/internal/asr"
	"github.com/alnah/chatpipeline/internal/audio"
	"github.com/alnah/chatpipeline/internal/ffmpeg"
	"github.com/alnah/chatpipeline/internal/pipelineconfig"
	"github.com/alnah/chatpipeline/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands, the central injection
// point for testing CLI commands in isolation without touching ffmpeg, the
// filesystem's XDG config path, or a real ASR provider.
type Env struct {
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	FFmpegResolver     FFmpegResolver
	SettingsLoader     SettingsLoader
	TranscriberFactory TranscriberFactory
}

// FFmpegResolver resolves the path to the ffmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// SettingsLoader loads the layered pipeline configuration.
type SettingsLoader interface {
	Load(configPath string) (pipelineconfig.Settings, error)
}

// TranscriberFactory builds a fully wired transcriber for one run, given the
// resolved ffmpeg path and ASR backend settings.
type TranscriberFactory interface {
	NewTranscriber(ffmpegPath string, cfg transcribe.Config, client *asr.Client) (*transcribe.Transcriber, error)
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		FFmpegResolver:     defaultFFmpegResolver{},
		SettingsLoader:     defaultSettingsLoader{},
		TranscriberFactory: defaultTranscriberFactory{},
	}
}

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.Resolve(ctx)
}

type defaultSettingsLoader struct{}

func (defaultSettingsLoader) Load(configPath string) (pipelineconfig.Settings, error) {
	return pipelineconfig.Load(configPath)
}

type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(ffmpegPath string, cfg transcribe.Config, client *asr.Client) (*transcribe.Transcriber, error) {
	executor := ffmpeg.NewExecutor()
	chunker, err := audio.NewChunker(ffmpegPath)
	if err != nil {
		return nil, err
	}
	vad := audio.NewVADDetector(ffmpegPath)
	return transcribe.New(executor, chunker, vad, client, cfg), nil
}
