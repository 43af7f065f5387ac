package resolver

import "errors"

// ErrInvalidConfig indicates a resolver configuration value is out of range
// (e.g. tau/tie_margin/clock_drift_hours negative).
var ErrInvalidConfig = errors.New("invalid resolver configuration")
