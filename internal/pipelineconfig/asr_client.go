package pipelineconfig

import (
	"fmt"

	"github.com/alnah/chatpipeline/internal/asr"
)

// NewASRClient selects and constructs an asr.Backend from s.ASR.Provider,
// reading the credential from getenv(s.ASR.CredentialEnvVar), and wraps it
// in an asr.Client configured with s.ASR.Timeout/MaxRetries. Mirrors the
// teacher's defaultTranscriberFactory: provider selection happens once, at
// startup, so a missing credential surfaces before any audio is touched.
func (s Settings) NewASRClient(getenv func(string) string) (*asr.Client, error) {
	var backend asr.Backend
	switch s.ASR.Provider {
	case "openai", "":
		apiKey := getenv(s.ASR.CredentialEnvVar)
		b, err := asr.NewOpenAIBackend(apiKey)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: %s", asr.ErrUnknownProvider, s.ASR.Provider)
	}

	return asr.NewClient(backend,
		asr.WithTimeout(s.ASR.Timeout),
		asr.WithMaxRetries(s.ASR.MaxRetries),
	), nil
}
