package types

import "errors"

// Structural validation errors raised by AgentSession.Validate. These are
// wrapped into a validation-kind errs.Error by sessionstore's Upsert
// (errs.ValidationWrap); they are plain sentinels here to keep pkg/types
// free of the error-taxonomy dependency.
var (
	ErrDepthCapabilityMismatch = errors.New("depth must be 0 iff capability is coordinator or monitor")
	ErrUnknownCapability       = errors.New("unknown capability")
)
