package provider

import (
	"sync"

	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/store"
	"github.com/skillsenselab/statekit/util"
	"github.com/skillsenselab/statekit/validation"
)

// Hook is a pre-materialization side effect run before a provider's store
// is built or a query is issued against it.
type Hook func()

// ClearHook is a post side effect. The flag reports whether state changed
// since the operation began.
type ClearHook func(changed bool)

// ActionCreator builds an action from call arguments. The engine wraps
// each creator so its return value dispatches through the instance store.
type ActionCreator func(args ...any) store.Action

// SubscriptionHandler is invoked once per (publisher, subscriber) instance
// pair when the publisher's store changes.
type SubscriptionHandler func(publisher, subscriber *Instance)

// KeyFunc computes a provider key from the consumer context.
type KeyFunc func(c *Consumer) string

// QueryFunc computes a query payload from the consumer context. Evaluated
// once per resolution and memoized.
type QueryFunc func(c *Consumer) map[string]any

// QueryHandler services a provider-level query. Implementations must call
// onResult exactly once, eventually; the engine never times out a pending
// query.
type QueryHandler interface {
	HandleQuery(query any, options QueryOptions, onResult func(value any))
}

// QueryHandlerFunc allows plain functions to satisfy QueryHandler.
type QueryHandlerFunc func(query any, options QueryOptions, onResult func(value any))

// HandleQuery dispatches to the underlying function.
func (fn QueryHandlerFunc) HandleQuery(query any, options QueryOptions, onResult func(value any)) {
	fn(query, options, onResult)
}

// Replicator is a node payload in a replication tree. A replicator that
// implements QueryHandler can service queries.
type Replicator any

// ReplicationNode is one node of a definition's replication tree.
type ReplicationNode struct {
	// Replicators are candidate query handlers, checked in order.
	Replicators []Replicator
	// ReducerKeys overrides which state slices this node replicates.
	// Defaults to the definition's reducer keys.
	ReducerKeys []string
	// Nodes are child nodes, searched depth-first after Replicators.
	Nodes []ReplicationNode
}

// DefinitionConfig describes a provider. It is ingested once by
// NewDefinition, which validates and normalizes it.
type DefinitionConfig struct {
	// Key is the definition's identity and the default instance key.
	Key string `json:"key" validate:"required"`
	// Reducers drive the store's state slices and the definition's
	// structural relevance to flat queries.
	Reducers map[string]store.Reducer `json:"-" validate:"required,min=1"`
	// Actions maps action names to creators.
	Actions map[string]ActionCreator `json:"-"`
	// Global registers instances process-wide instead of per scope.
	Global bool `json:"global"`
	// Wait hooks run before stores are built and before queries issue.
	Wait []Hook `json:"-"`
	// Clear hooks run after materialization and after query results land.
	Clear []ClearHook `json:"-"`
	// Replication is the tree searched for a query handler.
	Replication []ReplicationNode `json:"-"`
	// Subscribers maps peer definition keys that want this definition's
	// store changes to their handlers.
	Subscribers map[string]SubscriptionHandler `json:"-"`
	// SubscribeTo maps peer definition keys whose store changes this
	// definition wants to its handlers.
	SubscribeTo map[string]SubscriptionHandler `json:"-"`
}

// Definition is an ingested, immutable provider description plus its live
// instance list.
type Definition struct {
	key         string
	reducers    map[string]store.Reducer
	reducerKeys []string
	actions     map[string]ActionCreator
	global      bool
	wait        []Hook
	clear       []ClearHook
	replication []ReplicationNode
	subscribers map[string]SubscriptionHandler
	subscribeTo map[string]SubscriptionHandler

	mu          sync.Mutex
	instances   []*Instance
	intercepted bool
}

// NewDefinition validates and normalizes a DefinitionConfig.
func NewDefinition(cfg DefinitionConfig) (*Definition, error) {
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	v := validation.New()
	validateReplication(v, "replication", cfg.Replication)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	return &Definition{
		key:         cfg.Key,
		reducers:    util.CloneMap(cfg.Reducers),
		reducerKeys: util.SortedKeys(cfg.Reducers),
		actions:     util.CloneMap(cfg.Actions),
		global:      cfg.Global,
		wait:        append([]Hook(nil), cfg.Wait...),
		clear:       append([]ClearHook(nil), cfg.Clear...),
		replication: append([]ReplicationNode(nil), cfg.Replication...),
		subscribers: util.CloneMap(cfg.Subscribers),
		subscribeTo: util.CloneMap(cfg.SubscribeTo),
	}, nil
}

// MustDefinition is NewDefinition that panics on invalid configuration.
func MustDefinition(cfg DefinitionConfig) *Definition {
	def, err := NewDefinition(cfg)
	if err != nil {
		panic(err)
	}
	return def
}

// validateReplication rejects nodes that can never yield a handler.
func validateReplication(v *validation.Validator, field string, nodes []ReplicationNode) {
	for _, node := range nodes {
		v.Custom(len(node.Replicators) > 0 || len(node.Nodes) > 0,
			field, "node must declare replicators or child nodes")
		validateReplication(v, field, node.Nodes)
	}
}

// Key returns the definition's identity key.
func (d *Definition) Key() string { return d.key }

// Global reports whether instances register process-wide.
func (d *Definition) Global() bool { return d.global }

// ReducerKeys returns the sorted reducer names.
func (d *Definition) ReducerKeys() []string {
	return append([]string(nil), d.reducerKeys...)
}

// HasReducer reports whether the definition declares the named reducer.
func (d *Definition) HasReducer(name string) bool {
	_, ok := d.reducers[name]
	return ok
}

// Replicated reports whether the definition declares a replication tree.
func (d *Definition) Replicated() bool { return len(d.replication) > 0 }

// Instances returns a snapshot of the definition's live instances in
// creation order.
func (d *Definition) Instances() []*Instance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Instance(nil), d.instances...)
}

// addInstance appends to the live instance list.
func (d *Definition) addInstance(inst *Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances = append(d.instances, inst)
}

// markIntercepted flips the dispatch-interceptor idempotency flag,
// returning false if it was already set.
func (d *Definition) markIntercepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.intercepted {
		return false
	}
	d.intercepted = true
	return true
}

// isIntercepted reports whether the dispatch interceptor was installed.
func (d *Definition) isIntercepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intercepted
}

// queryHandler locates a handler by depth-first search over the
// replication tree. The winning node's reducer keys (or the definition's,
// when the node declares none) accompany it.
func (d *Definition) queryHandler() (QueryHandler, []string, error) {
	handler, keys := searchReplication(d.replication)
	if handler == nil {
		return nil, nil, errors.Configuration(
			"provider %q declares no query handler in its replication tree", d.key)
	}
	if len(keys) == 0 {
		keys = d.reducerKeys
	}
	return handler, keys, nil
}

func searchReplication(nodes []ReplicationNode) (QueryHandler, []string) {
	for _, node := range nodes {
		for _, rep := range node.Replicators {
			if h, ok := rep.(QueryHandler); ok {
				return h, node.ReducerKeys
			}
		}
		if h, keys := searchReplication(node.Nodes); h != nil {
			return h, keys
		}
	}
	return nil, nil
}

// runWait executes the definition's wait hooks in order.
func (d *Definition) runWait() {
	for _, h := range d.wait {
		h()
	}
}

// runClear executes the definition's clear hooks in order.
func (d *Definition) runClear(changed bool) {
	for _, h := range d.clear {
		h(changed)
	}
}
