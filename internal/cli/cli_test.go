package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/chatpipeline/internal/asr"
	"github.com/alnah/chatpipeline/internal/cli"
	"github.com/alnah/chatpipeline/internal/pipelineconfig"
	"github.com/alnah/chatpipeline/internal/transcribe"
)

type fakeFFmpegResolver struct {
	path string
	err  error
}

func (f fakeFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return f.path, f.err
}

type fakeSettingsLoader struct {
	settings pipelineconfig.Settings
	err      error
}

func (f fakeSettingsLoader) Load(configPath string) (pipelineconfig.Settings, error) {
	return f.settings, f.err
}

type fakeTranscriberFactory struct{}

func (fakeTranscriberFactory) NewTranscriber(ffmpegPath string, cfg transcribe.Config, client *asr.Client) (*transcribe.Transcriber, error) {
	return nil, nil
}

func newTestEnv() *cli.Env {
	env := cli.DefaultEnv()
	env.Stderr = &bytes.Buffer{}
	env.Getenv = func(string) string { return "test-key" }
	env.Now = func() time.Time { return time.Unix(0, 0) }
	env.FFmpegResolver = fakeFFmpegResolver{path: "/usr/bin/ffmpeg"}
	env.SettingsLoader = fakeSettingsLoader{settings: pipelineconfig.Defaults()}
	env.TranscriberFactory = fakeTranscriberFactory{}
	return env
}

func TestRunCmdRejectsMissingArchiveRoot(t *testing.T) {
	env := newTestEnv()
	cmd := cli.RunCmd(env)
	dir := t.TempDir()
	cmd.SetArgs([]string{filepath.Join(dir, "does-not-exist"), "--run-dir", filepath.Join(dir, "run")})
	cmd.SetContext(context.Background())
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing archive root")
	}
}

func TestRunCmdRejectsMissingChatFile(t *testing.T) {
	env := newTestEnv()
	archiveRoot := t.TempDir()
	cmd := cli.RunCmd(env)
	cmd.SetArgs([]string{archiveRoot, "--run-dir", filepath.Join(archiveRoot, "run")})
	cmd.SetContext(context.Background())
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing chat file")
	}
}

func TestRunCmdRequiresRunDirFlag(t *testing.T) {
	env := newTestEnv()
	cmd := cli.RunCmd(env)
	cmd.SetArgs([]string{t.TempDir()})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected usage error for missing --run-dir")
	}
}

func TestResumeCmdRejectsMissingRunDir(t *testing.T) {
	env := newTestEnv()
	cmd := cli.ResumeCmd(env)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})
	cmd.SetContext(context.Background())
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing run directory")
	}
}

func TestConfigCmdListRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	env := newTestEnv()
	setCmd := cli.ConfigCmd(env)
	setCmd.SetArgs([]string{"set", pipelineconfig.KeyASRModel, "whisper-1"})
	if err := setCmd.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}

	var out bytes.Buffer
	listCmd := cli.ConfigCmd(env)
	listCmd.SetOut(&out)
	listCmd.SetArgs([]string{"list"})
	if err := listCmd.Execute(); err != nil {
		t.Fatalf("config list: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("whisper-1")) {
		t.Fatalf("expected list output to contain set value, got %q", out.String())
	}
}

func TestConfigCmdGetUnknownKeyFails(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	env := newTestEnv()
	cmd := cli.ConfigCmd(env)
	cmd.SetArgs([]string{"get", "not-a-real-key"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
