package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/chatpipeline/internal/asr"
	"github.com/alnah/chatpipeline/internal/cli"
	"github.com/alnah/chatpipeline/internal/ffmpeg"
	"github.com/alnah/chatpipeline/internal/lang"
	"github.com/alnah/chatpipeline/internal/orchestrator"
	"github.com/alnah/chatpipeline/internal/pipelineconfig"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes per the external interface contract.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "chatpipeline",
		Short:   "Ingest chat archives into canonical messages and rendered transcripts",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.ResumeCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the documented exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3): missing ffmpeg, missing ASR credential.
	if errors.Is(err, ffmpeg.ErrNotFound) ||
		errors.Is(err, ffmpeg.ErrUnsupportedPlatform) ||
		errors.Is(err, ffmpeg.ErrChecksumMismatch) ||
		errors.Is(err, ffmpeg.ErrDownloadFailed) ||
		errors.Is(err, asr.ErrMissingCredential) ||
		errors.Is(err, asr.ErrUnknownProvider) ||
		errors.Is(err, pipelineconfig.ErrInvalidKey) ||
		errors.Is(err, pipelineconfig.ErrNotWritable) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4): bad archive, bad config.
	if errors.Is(err, cli.ErrArchiveRootMissing) ||
		errors.Is(err, cli.ErrChatFileMissing) ||
		errors.Is(err, cli.ErrRunDirMissing) ||
		errors.Is(err, orchestrator.ErrMissingArchiveRoot) ||
		errors.Is(err, orchestrator.ErrMissingChatFile) ||
		errors.Is(err, lang.ErrInvalid) {
		return ExitValidation
	}

	// Cancellation observed inside the orchestrator maps to ExitInterrupt,
	// like a bare context.Canceled. No error path returns ExitTranscription:
	// per-item ASR failures are captured onto the message and credential
	// failures are setup errors above.
	if errors.Is(err, orchestrator.ErrCancelled) {
		return ExitInterrupt
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach; these patterns are stable across Cobra
// versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"if any flags in the group",
	"accepts ",
	"requires at least",
	"requires at most",
}

func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
