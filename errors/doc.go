// Package errors provides structured error handling for statekit.
// It implements error values with machine-readable codes so callers can
// distinguish configuration mistakes (malformed definitions, missing query
// handlers) from lookup failures and internal faults.
package errors
