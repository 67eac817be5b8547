// Package validation provides input validation for statekit configuration.
//
// Struct-tag validation (go-playground/validator) covers engine and
// definition configs; the fluent Validator collects cross-field errors that
// tags cannot express, such as replication trees without replicators.
package validation
