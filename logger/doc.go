// Package logger provides structured logging for statekit built on zerolog.
//
// The engine tags its sub-loggers with a component name (registry, executor,
// subscriptions) so provider instantiation, query execution, and
// subscription fan-out can be filtered independently.
package logger
