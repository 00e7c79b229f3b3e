package runtime

import "errors"

// Sentinel errors a caller can match with errors.Is.
var (
	// ErrNotReady is returned when Evaluate, WithData, or SetDataPath is
	// called before Load has installed a policy module.
	ErrNotReady = errors.New("runtime: not ready")
	// ErrInvalidPolicyOrData is returned when Load or WithData is given a
	// module or value that fails to instantiate/encode.
	ErrInvalidPolicyOrData = errors.New("runtime: invalid policy or data")
	// ErrInternal wraps an unexpected failure from the VM layer.
	ErrInternal = errors.New("runtime: internal error")
	// ErrEntrypointNotFound is returned by Evaluate when the requested
	// entrypoint name is absent from the module's published table.
	ErrEntrypointNotFound = errors.New("runtime: entrypoint not found")
)
