// Package config loads statekit engine configuration.
//
// Configuration comes from a YAML file, a .env file, and environment
// variables, merged in that order with the environment winning. The result
// is validated before use.
package config
