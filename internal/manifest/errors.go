package manifest

import "errors"

// ErrInvalidStepStatus indicates a step carries a status outside the closed
// StepStatus set.
var ErrInvalidStepStatus = errors.New("invalid step status")

// ErrSchemaIncompatible indicates a manifest or metrics file was written by
// an incompatible (newer-major) schema version.
var ErrSchemaIncompatible = errors.New("incompatible schema version")
