package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/chatpipeline/internal/interrupt"
	"github.com/alnah/chatpipeline/internal/manifest"
	"github.com/alnah/chatpipeline/internal/orchestrator"
)

// RunCmd creates the "run" command: ingest one archive from scratch.
func RunCmd(env *Env) *cobra.Command {
	var (
		runDir          string
		chatFile        string
		overwrite       bool
		resume          bool
		maxWorkersAudio int
		configPath      string
	)

	cmd := &cobra.Command{
		Use:   "run <archive-root>",
		Short: "Ingest a chat archive into canonical messages, resolved media, and transcripts",
		Long: `Run the full pipeline over a chat export archive: parse the chat export,
resolve media references against the archive's files, transcribe voice
messages, and render a readable transcript with inlined transcriptions.`,
		Example: `  chatpipeline run ./archive --run-dir ./runs/2026-07-31
  chatpipeline run ./archive --run-dir ./runs/2026-07-31 --max-workers-audio 8
  chatpipeline run ./archive --run-dir ./runs/2026-07-31 --overwrite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), env, args[0], runOptions{
				runDir:          runDir,
				chatFile:        chatFile,
				overwrite:       overwrite,
				resume:          resume,
				maxWorkersAudio: maxWorkersAudio,
				configPath:      configPath,
			})
		},
	}

	cmd.Flags().StringVar(&runDir, "run-dir", "", "Directory to write run outputs to (required)")
	cmd.Flags().StringVar(&chatFile, "chat-file", "", "Path to the chat export file (default: <archive-root>/_chat.txt)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-run every step even if the manifest marks it ok")
	cmd.Flags().BoolVar(&resume, "resume", false, "Skip steps already completed and retain transcribed voice messages")
	cmd.Flags().IntVar(&maxWorkersAudio, "max-workers-audio", 0, "Bounded worker count for voice transcription (0 = use config default)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a pipelineconfig YAML file (default: XDG config location)")
	_ = cmd.MarkFlagRequired("run-dir")

	return cmd
}

// ResumeCmd creates the "resume" command: continue a previously started run
// directory, reading its archive root and chat file back from the manifest.
func ResumeCmd(env *Env) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume <run-dir>",
		Short: "Resume a previously started run",
		Long: `Resume reads the archive root and chat file recorded in an existing run
directory's manifest and re-runs the pipeline with --resume semantics:
completed steps are skipped, and already-transcribed voice messages are
retained rather than re-sent to the ASR backend.`,
		Example: `  chatpipeline resume ./runs/2026-07-31`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd.Context(), env, args[0], configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a pipelineconfig YAML file (default: XDG config location)")
	return cmd
}

type runOptions struct {
	runDir          string
	chatFile        string
	overwrite       bool
	resume          bool
	maxWorkersAudio int
	configPath      string
}

func runPipeline(ctx context.Context, env *Env, archiveRoot string, opts runOptions) error {
	if _, err := os.Stat(archiveRoot); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArchiveRootMissing, archiveRoot)
		}
		return fmt.Errorf("cannot access archive root: %w", err)
	}

	chatFile := opts.chatFile
	if chatFile == "" {
		chatFile = filepath.Join(archiveRoot, "_chat.txt")
	}
	if _, err := os.Stat(chatFile); err != nil {
		return fmt.Errorf("%w: %s", ErrChatFileMissing, chatFile)
	}

	settings, err := env.SettingsLoader.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}

	settings.Orch.RunDir = opts.runDir
	settings.Orch.Overwrite = opts.overwrite
	settings.Orch.Resume = opts.resume
	if opts.maxWorkersAudio > 0 {
		settings.Orch.MaxWorkersAudio = opts.maxWorkersAudio
	}

	cfg := settings.ToOrchestratorConfig(archiveRoot, chatFile, ffmpegPath)
	cfg.Logger = env.Stderr

	client, err := settings.NewASRClient(env.Getenv)
	if err != nil {
		return err
	}
	transcriber, err := env.TranscriberFactory.NewTranscriber(ffmpegPath, cfg.TranscribeConfig, client)
	if err != nil {
		return err
	}

	interruptHandler, runCtx := interrupt.NewHandler(ctx)
	defer interruptHandler.Stop()

	o := orchestrator.New(cfg, transcriber)
	runErr := o.Run(runCtx)
	if runErr != nil && interruptHandler.WasInterrupted() {
		behavior := interruptHandler.WaitForDecision(
			"Ctrl+C again to abort immediately, wait 2s to finish writing the manifest...")
		if behavior == interrupt.Abort {
			return context.Canceled
		}
	}
	return runErr
}

func runResume(ctx context.Context, env *Env, runDir, configPath string) error {
	manifestPath := filepath.Join(runDir, "run_manifest.json")
	var rm manifest.RunManifest
	if err := manifest.ReadJSON(manifestPath, &rm); err != nil {
		return fmt.Errorf("%w: %s", ErrRunDirMissing, runDir)
	}

	return runPipeline(ctx, env, rm.Root, runOptions{
		runDir:     runDir,
		chatFile:   rm.ChatFile,
		resume:     true,
		configPath: configPath,
	})
}
