// Package provider implements the statekit orchestration core: named,
// keyed state containers with dependency-aware query resolution,
// deduplicated query execution, and cross-provider change notification.
//
// A Definition describes a provider once; the Engine materializes at most
// one Instance per (definition, resolved key) pair, wires its store and
// action creators, and sequences readiness. Consumers declare flat or
// per-provider queries; the engine resolves relevance by reducer-key
// overlap, executes each provider-level query at most once, and merges
// results in provider order. Definitions can subscribe to each other's
// store changes through a bidirectional subscription graph.
package provider
