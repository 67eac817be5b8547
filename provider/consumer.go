package provider

import "github.com/skillsenselab/statekit/util"

// QueryOptions tune one provider-level query execution. They participate
// in the query's identity: the same query with different options is a
// different execution.
type QueryOptions struct {
	// Select names the state slices the caller wants back. Defaults to
	// the servicing node's reducer keys.
	Select []string `json:"select,omitempty"`
	// Params carries handler-specific parameters.
	Params map[string]any `json:"params,omitempty"`
}

// clone returns a copy safe to default without mutating the caller's
// options.
func (o *QueryOptions) clone() QueryOptions {
	if o == nil {
		return QueryOptions{}
	}
	return QueryOptions{
		Select: append([]string(nil), o.Select...),
		Params: util.CloneMap(o.Params),
	}
}

// Consumer is the ephemeral context of one query pass. It declares what
// the caller wants, and accumulates the resolved sub-queries, relevant
// instances and per-provider results for that pass.
//
// A Consumer is not safe for concurrent use; build a fresh one per pass
// and reuse only its Scope.
type Consumer struct {
	// Scope is the registration table for non-global instances.
	Scope *Scope
	// Props carry caller context for key functions and query functions.
	Props map[string]any
	// Query is a flat query fanned out by reducer-key overlap.
	Query map[string]any
	// QueryFunc computes the flat query lazily from the consumer.
	QueryFunc QueryFunc
	// Queries maps provider keys to explicit sub-query payloads. A value
	// may also be a QueryFunc, evaluated once during resolution.
	Queries map[string]any
	// QueryOptions is a pass-level override applied to every provider in
	// this pass. It wins over the per-provider Options entries.
	QueryOptions *QueryOptions
	// Options maps provider keys to per-provider query options.
	Options map[string]*QueryOptions
	// OnUpdate fires before the completion callback when any provider
	// result changed under the engine's equality.
	OnUpdate func()

	// memoized resolution state
	resolved      map[string]any
	resolvedOrder []string
	flatQuery     map[string]any
	flatEvaluated bool
	relevant      map[string]*Instance

	results     map[string]any
	result      any
	needsUpdate bool
}

// Result returns the merged result of the last completed query pass.
func (c *Consumer) Result() any { return c.result }

// Results returns the per-provider results of the last completed pass.
func (c *Consumer) Results() map[string]any {
	return util.CloneMap(c.results)
}

// Relevant returns the instances resolution marked relevant, keyed by
// provider key.
func (c *Consumer) Relevant() map[string]*Instance {
	return util.CloneMap(c.relevant)
}

// ResolvedQueries returns the resolved provider-to-sub-query mapping and
// its stable order. Empty until resolution ran.
func (c *Consumer) ResolvedQueries() (map[string]any, []string) {
	return util.CloneMap(c.resolved), append([]string(nil), c.resolvedOrder...)
}

// markRelevant records an instance as relevant to this consumer.
func (c *Consumer) markRelevant(inst *Instance) {
	if c.relevant == nil {
		c.relevant = make(map[string]*Instance)
	}
	c.relevant[inst.Definition().Key()] = inst
}

// setResult writes one provider's result.
func (c *Consumer) setResult(providerKey string, value any) {
	if c.results == nil {
		c.results = make(map[string]any)
	}
	c.results[providerKey] = value
}
