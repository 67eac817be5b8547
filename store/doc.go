// Package store defines the state-container collaborator contract used by
// the provider engine, plus a reducer-backed in-memory implementation.
//
// The engine only depends on the Store interface; replication-capable
// stores additionally implement ReadyNotifier so the engine can defer
// instance readiness until initial state materializes, and Hydratable so
// stashed state can be injected in bulk.
package store
