package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a malformed provider definition,
	// replication tree, or query declaration. These are caller contract
	// violations and are never retryable.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeNotFound indicates a definition or instance lookup failed.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates a duplicate registration.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeInvalidInput indicates an invalid argument.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInternal indicates an unexpected internal fault.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
