package resolver

import (
	"fmt"

	"github.com/alnah/chatpipeline/internal/media"
	"github.com/alnah/chatpipeline/internal/scoring"
)

// Config is the resolver's configuration surface, matching the pipeline
// configuration's `resolver` section.
type Config struct {
	Weights             scoring.Weights
	Tau                 float64 // decisive margin
	TieMargin           float64 // margin used to group ambiguous candidates
	AcceptanceThreshold float64 // minimum top score to avoid unresolved_media
	ClockDriftHours     float64 // candidate window around message time, default 4

	// AllowedExtensions gates the exact-filename fast path: only a hinted
	// filename whose extension is in this set is eligible for it.
	AllowedExtensions map[string]bool
	// ExtPriority orders candidate kinds by acceptance priority, feeding
	// the ladder's ext feature.
	ExtPriority map[media.Kind]float64
}

// DefaultConfig returns the reference resolver defaults.
func DefaultConfig() Config {
	return Config{
		Weights:             scoring.DefaultWeights,
		Tau:                 0.75,
		TieMargin:           0.75,
		AcceptanceThreshold: 1.0,
		ClockDriftHours:     4.0,
		AllowedExtensions:   media.AllowedExtensions,
		ExtPriority:         scoring.ExtPriority,
	}
}

// Validate rejects a config with nonsensical knobs.
func (c Config) Validate() error {
	if c.Tau < 0 {
		return fmt.Errorf("%w: tau must be >= 0", ErrInvalidConfig)
	}
	if c.TieMargin < 0 {
		return fmt.Errorf("%w: tie_margin must be >= 0", ErrInvalidConfig)
	}
	if c.ClockDriftHours < 0 {
		return fmt.Errorf("%w: clock_drift_hours must be >= 0", ErrInvalidConfig)
	}
	return nil
}
