package pipelineconfig

import (
	"fmt"

	"github.com/alnah/chatpipeline/internal/lang"
)

// Validate rejects a Settings whose resolver knobs are nonsensical or whose
// ASR language hint is not a recognized ISO 639-1 code (or "auto").
func (s Settings) Validate() error {
	if err := s.ToResolverConfig().Validate(); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}

	hint := s.ASR.LanguageHint
	if hint == "auto" {
		hint = ""
	}
	if _, err := lang.Parse(hint); err != nil {
		return fmt.Errorf("asr.language: %w", err)
	}

	return nil
}
