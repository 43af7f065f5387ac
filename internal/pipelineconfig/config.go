package pipelineconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variable prefix for the automatic-env layer: e.g.
// CHATPIPELINE_ASR_PROVIDER overrides asr.provider.
const envPrefix = "CHATPIPELINE"

// dir returns the configuration directory, honoring XDG_CONFIG_HOME.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatpipeline"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "chatpipeline"), nil
}

// filePath returns the full path to the persisted settings file.
func filePath() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// rawSettings is viper's unmarshal target; its mapstructure tags define the
// on-disk/env layout. Settings is the conversion-friendly public shape.
type rawSettings struct {
	Resolver struct {
		WeightHint          float64            `mapstructure:"weight_hint"`
		WeightExt           float64            `mapstructure:"weight_ext"`
		WeightSeq           float64            `mapstructure:"weight_seq"`
		WeightMtime         float64            `mapstructure:"weight_mtime"`
		Tau                 float64            `mapstructure:"tau"`
		TieMargin           float64            `mapstructure:"tie_margin"`
		AcceptanceThreshold float64            `mapstructure:"acceptance_threshold"`
		ClockDriftHours     float64            `mapstructure:"clock_drift_hours"`
		AllowedExtensions   []string           `mapstructure:"allowed_extensions"`
		ExtPriority         map[string]float64 `mapstructure:"ext_priority"`
	} `mapstructure:"resolver"`
	Audio struct {
		NormalizerToolPath  string        `mapstructure:"normalizer_tool_path"`
		SampleRate          int           `mapstructure:"sample_rate"`
		Channels            int           `mapstructure:"channels"`
		ChunkSeconds        float64       `mapstructure:"chunk_seconds"`
		ChunkOverlapSeconds float64       `mapstructure:"chunk_overlap_seconds"`
		NormalizeTimeout    time.Duration `mapstructure:"normalize_timeout"`
		NormalizeMaxRetries int           `mapstructure:"normalize_max_retries"`
		VADMinSpeechRatio   float64       `mapstructure:"vad_min_speech_ratio"`
		VADMinSpeechSeconds float64       `mapstructure:"vad_min_speech_seconds"`
		CacheDir            string        `mapstructure:"cache_dir"`
	} `mapstructure:"audio"`
	ASR struct {
		Provider          string        `mapstructure:"provider"`
		Model             string        `mapstructure:"model"`
		Language          string        `mapstructure:"language"`
		Timeout           time.Duration `mapstructure:"timeout"`
		MaxRetries        int           `mapstructure:"max_retries"`
		BillingPlan       string        `mapstructure:"billing_plan"`
		CredentialEnvVar  string        `mapstructure:"credential_env_var"`
		MaxParallelChunks int           `mapstructure:"max_parallel_chunks"`
	} `mapstructure:"asr"`
	Orchestrator struct {
		RunID           string `mapstructure:"run_id"`
		RunDir          string `mapstructure:"run_dir"`
		MaxWorkersAudio int    `mapstructure:"max_workers_audio"`
		Overwrite       bool   `mapstructure:"overwrite"`
		Resume          bool   `mapstructure:"resume"`
		EnablePreview   bool   `mapstructure:"enable_preview"`
	} `mapstructure:"orchestrator"`
}

func newViper(defaults Settings) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("resolver.weight_hint", defaults.Resolver.WeightHint)
	v.SetDefault("resolver.weight_ext", defaults.Resolver.WeightExt)
	v.SetDefault("resolver.weight_seq", defaults.Resolver.WeightSeq)
	v.SetDefault("resolver.weight_mtime", defaults.Resolver.WeightMtime)
	v.SetDefault("resolver.tau", defaults.Resolver.Tau)
	v.SetDefault("resolver.tie_margin", defaults.Resolver.TieMargin)
	v.SetDefault("resolver.acceptance_threshold", defaults.Resolver.AcceptanceThreshold)
	v.SetDefault("resolver.clock_drift_hours", defaults.Resolver.ClockDriftHours)
	v.SetDefault("resolver.allowed_extensions", defaults.Resolver.AllowedExtensions)
	v.SetDefault("resolver.ext_priority", defaults.Resolver.ExtPriority)

	v.SetDefault("audio.normalizer_tool_path", defaults.Audio.NormalizerToolPath)
	v.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	v.SetDefault("audio.channels", defaults.Audio.Channels)
	v.SetDefault("audio.chunk_seconds", defaults.Audio.ChunkSeconds)
	v.SetDefault("audio.chunk_overlap_seconds", defaults.Audio.ChunkOverlapSeconds)
	v.SetDefault("audio.normalize_timeout", defaults.Audio.NormalizeTimeout)
	v.SetDefault("audio.normalize_max_retries", defaults.Audio.NormalizeMaxRetries)
	v.SetDefault("audio.vad_min_speech_ratio", defaults.Audio.VADMinSpeechRatio)
	v.SetDefault("audio.vad_min_speech_seconds", defaults.Audio.VADMinSpeechSeconds)
	v.SetDefault("audio.cache_dir", defaults.Audio.CacheDir)

	v.SetDefault("asr.provider", defaults.ASR.Provider)
	v.SetDefault("asr.model", defaults.ASR.Model)
	v.SetDefault("asr.language", defaults.ASR.LanguageHint)
	v.SetDefault("asr.timeout", defaults.ASR.Timeout)
	v.SetDefault("asr.max_retries", defaults.ASR.MaxRetries)
	v.SetDefault("asr.billing_plan", defaults.ASR.BillingPlan)
	v.SetDefault("asr.credential_env_var", defaults.ASR.CredentialEnvVar)
	v.SetDefault("asr.max_parallel_chunks", defaults.ASR.MaxParallelChunks)

	v.SetDefault("orchestrator.run_id", defaults.Orch.RunID)
	v.SetDefault("orchestrator.run_dir", defaults.Orch.RunDir)
	v.SetDefault("orchestrator.max_workers_audio", defaults.Orch.MaxWorkersAudio)
	v.SetDefault("orchestrator.overwrite", defaults.Orch.Overwrite)
	v.SetDefault("orchestrator.resume", defaults.Orch.Resume)
	v.SetDefault("orchestrator.enable_preview", defaults.Orch.EnablePreview)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load composes Settings from built-in defaults, an optional YAML file at
// configPath (or the XDG default location if configPath is empty), and
// environment variables (CHATPIPELINE_* overrides), in that precedence
// order (file over defaults, env over file).
func Load(configPath string) (Settings, error) {
	v := newViper(Defaults())

	path := configPath
	if path == "" {
		p, err := filePath()
		if err != nil {
			return Settings{}, err
		}
		path = p
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Settings{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var raw rawSettings
	if err := v.Unmarshal(&raw); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}

	return Settings{
		Resolver: ResolverSettings{
			WeightHint:          raw.Resolver.WeightHint,
			WeightExt:           raw.Resolver.WeightExt,
			WeightSeq:           raw.Resolver.WeightSeq,
			WeightMtime:         raw.Resolver.WeightMtime,
			Tau:                 raw.Resolver.Tau,
			TieMargin:           raw.Resolver.TieMargin,
			AcceptanceThreshold: raw.Resolver.AcceptanceThreshold,
			ClockDriftHours:     raw.Resolver.ClockDriftHours,
			AllowedExtensions:   raw.Resolver.AllowedExtensions,
			ExtPriority:         raw.Resolver.ExtPriority,
		},
		Audio: AudioSettings{
			NormalizerToolPath:  raw.Audio.NormalizerToolPath,
			SampleRate:          raw.Audio.SampleRate,
			Channels:            raw.Audio.Channels,
			ChunkSeconds:        raw.Audio.ChunkSeconds,
			ChunkOverlapSeconds: raw.Audio.ChunkOverlapSeconds,
			NormalizeTimeout:    raw.Audio.NormalizeTimeout,
			NormalizeMaxRetries: raw.Audio.NormalizeMaxRetries,
			VADMinSpeechRatio:   raw.Audio.VADMinSpeechRatio,
			VADMinSpeechSeconds: raw.Audio.VADMinSpeechSeconds,
			CacheDir:            raw.Audio.CacheDir,
		},
		ASR: ASRSettings{
			Provider:          raw.ASR.Provider,
			Model:             raw.ASR.Model,
			LanguageHint:      raw.ASR.Language,
			Timeout:           raw.ASR.Timeout,
			MaxRetries:        raw.ASR.MaxRetries,
			BillingPlan:       raw.ASR.BillingPlan,
			CredentialEnvVar:  raw.ASR.CredentialEnvVar,
			MaxParallelChunks: raw.ASR.MaxParallelChunks,
		},
		Orch: OrchestratorSettings{
			RunID:           raw.Orchestrator.RunID,
			RunDir:          raw.Orchestrator.RunDir,
			MaxWorkersAudio: raw.Orchestrator.MaxWorkersAudio,
			Overwrite:       raw.Orchestrator.Overwrite,
			Resume:          raw.Orchestrator.Resume,
			EnablePreview:   raw.Orchestrator.EnablePreview,
		},
	}, nil
}

// Get reads one persisted key's current value (file + env layered over
// defaults), formatted as a string.
func Get(key string) (string, error) {
	if !slices.Contains(ValidKeys, key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	v := newViper(Defaults())
	path, err := filePath()
	if err != nil {
		return "", err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return "", fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fmt.Sprintf("%v", v.Get(key)), nil
}

// Set persists one key's value to the XDG config file, creating the
// directory and file as needed.
func Set(key, value string) error {
	if !slices.Contains(ValidKeys, key) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	d, err := dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}

	path, err := filePath()
	if err != nil {
		return err
	}

	v := newViper(Defaults())
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// List returns every recognized key with its current effective value.
func List() (map[string]string, error) {
	out := make(map[string]string, len(ValidKeys))
	for _, key := range ValidKeys {
		val, err := Get(key)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}
