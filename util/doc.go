// Package util provides small generic helpers shared across statekit packages.
//
// It includes the default shallow-equality predicate used to detect result
// changes, provider key composition helpers, and generic map/slice utilities.
package util
