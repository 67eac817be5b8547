package provider

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/skillsenselab/statekit/config"
	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/logger"
	"github.com/skillsenselab/statekit/observability"
	"github.com/skillsenselab/statekit/store"
	"github.com/skillsenselab/statekit/util"
)

// StoreFactory builds the collaborator store for a new instance. The key
// is the resolved provider key.
type StoreFactory func(key string, def *Definition) store.Store

// Equality decides whether a query result changed between passes.
type Equality func(a, b any) bool

// Engine orchestrates provider definitions, instances, queries and
// subscriptions. All methods are safe for concurrent use; callbacks run
// on the calling goroutine with no engine locks held.
type Engine struct {
	log     *logger.Logger
	equals  Equality
	factory StoreFactory
	metrics *observability.Metrics

	defMu sync.RWMutex
	defs  map[string]*Definition
	order []string

	global *Registry

	stashMu sync.Mutex
	stash   map[string]map[string]any

	resolved *gocache.Cache
	pendMu   sync.Mutex
	pending  map[string]*pendingQuery

	edgeMu   sync.Mutex
	edges    map[edgeKey]*subscriptionEdge
	attached map[edgeInstKey]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithEquality overrides the result-change comparison. Defaults to
// shallow equality.
func WithEquality(eq Equality) Option {
	return func(e *Engine) { e.equals = eq }
}

// WithStoreFactory overrides how instance stores are built. Defaults to
// in-memory reducer stores.
func WithStoreFactory(f StoreFactory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithMetrics enables metric recording for instances, queries and
// subscription fan-out.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCacheTTL bounds how long resolved query results stay cached.
// A zero ttl caches forever.
func WithCacheTTL(ttl, cleanup time.Duration) Option {
	return func(e *Engine) { e.resolved = gocache.New(cacheTTL(ttl), cleanup) }
}

func cacheTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return gocache.NoExpiration
	}
	return ttl
}

// New builds an engine with defaults: the global logger, shallow result
// equality, memory stores and an unbounded result cache.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:      logger.GetGlobalLogger().WithComponent("engine"),
		equals:   util.ShallowEqual,
		defs:     make(map[string]*Definition),
		global:   NewRegistry(),
		stash:    make(map[string]map[string]any),
		resolved: gocache.New(gocache.NoExpiration, 10*time.Minute),
		pending:  make(map[string]*pendingQuery),
		edges:    make(map[edgeKey]*subscriptionEdge),
		attached: make(map[edgeInstKey]struct{}),
	}
	e.factory = func(key string, def *Definition) store.Store {
		return store.NewMemoryStore(key, def.reducers)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an engine wired from an EngineConfig: logger from
// the logging section, result-cache TTL from the cache section. Options
// apply on top.
func NewFromConfig(cfg config.EngineConfig, opts ...Option) *Engine {
	cfg.ApplyDefaults()
	base := []Option{
		WithLogger(logger.New(cfg.Logging).WithComponent("engine")),
		WithCacheTTL(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
	}
	return New(append(base, opts...)...)
}

// Register installs a definition. The dispatch interceptor for callable
// actions is installed once here; re-registering the same key fails.
func (e *Engine) Register(def *Definition) error {
	e.defMu.Lock()
	if _, ok := e.defs[def.Key()]; ok {
		e.defMu.Unlock()
		return errors.AlreadyExists("definition", def.Key())
	}
	e.defs[def.Key()] = def
	e.order = append(e.order, def.Key())
	e.defMu.Unlock()

	if def.markIntercepted() {
		e.log.Debug("dispatch interceptor installed", logger.Fields(
			logger.FieldProvider, def.Key(),
		))
	}
	e.log.Debug("definition registered", logger.Fields(
		logger.FieldProvider, def.Key(),
		"global", def.Global(),
	))
	return nil
}

// Definition returns a registered definition by key.
func (e *Engine) Definition(key string) (*Definition, bool) {
	e.defMu.RLock()
	defer e.defMu.RUnlock()
	def, ok := e.defs[key]
	return def, ok
}

// Definitions returns registered definition keys in registration order.
func (e *Engine) Definitions() []string {
	e.defMu.RLock()
	defer e.defMu.RUnlock()
	return append([]string(nil), e.order...)
}

// Global returns the process-wide instance registry.
func (e *Engine) Global() *Registry { return e.global }

// InstantiateOption configures one instantiation request.
type InstantiateOption func(*instantiateOptions)

type instantiateOptions struct {
	key     string
	keyFunc KeyFunc
	onReady func()
}

// WithKey pins the instance to an explicit provider key.
func WithKey(key string) InstantiateOption {
	return func(o *instantiateOptions) { o.key = key }
}

// WithKeyFunc derives the provider key from the consumer context.
func WithKeyFunc(fn KeyFunc) InstantiateOption {
	return func(o *instantiateOptions) { o.keyFunc = fn }
}

// WithOnReady registers a callback invoked once the instance is ready;
// immediately when an existing ready instance is reused.
func WithOnReady(cb func()) InstantiateOption {
	return func(o *instantiateOptions) { o.onReady = cb }
}

// Instantiate returns the live instance for (definition, resolved key),
// creating it if absent. The definition must be registered. Creation runs
// wait hooks, builds and wraps the store, binds action creators, applies
// stashed hydration state, wires subscriptions, and sequences readiness;
// reuse returns the existing instance untouched.
func (e *Engine) Instantiate(c *Consumer, def *Definition, opts ...InstantiateOption) (*Instance, error) {
	if registered, ok := e.Definition(def.Key()); !ok || registered != def {
		return nil, errors.NotFound("definition", def.Key())
	}
	if c == nil {
		c = &Consumer{}
	}
	if !def.Global() && c.Scope == nil {
		c.Scope = NewScope()
	}

	var o instantiateOptions
	for _, opt := range opts {
		opt(&o)
	}
	key := def.Key()
	switch {
	case o.key != "":
		key = o.key
	case o.keyFunc != nil:
		key = o.keyFunc(c)
	}

	registry := e.registryFor(c, def)
	if inst, ok := registry.Get(key); ok {
		c.markRelevant(inst)
		if o.onReady != nil {
			inst.OnReady(o.onReady)
		}
		return inst, nil
	}

	def.runWait()
	base := e.factory(key, def)
	// The interceptor wraps the store only once the definition's flag
	// was flipped at registration.
	var wrapped store.Store = base
	if def.isIntercepted() {
		wrapped = &interceptedStore{Store: base, def: def, engine: e, scope: c.Scope}
	}
	inst := newInstance(def, key, base, wrapped)
	inst.actions = make(map[string]func(args ...any), len(def.actions))
	for name, creator := range def.actions {
		creator := creator
		inst.actions[name] = func(args ...any) {
			wrapped.Dispatch(creator(args...))
		}
	}

	if !registry.Put(inst) {
		// lost a race to a concurrent instantiation
		if existing, ok := registry.Get(key); ok {
			c.markRelevant(existing)
			if o.onReady != nil {
				existing.OnReady(o.onReady)
			}
			return existing, nil
		}
		return nil, errors.Internal(nil).WithDetail("provider", key)
	}
	def.addInstance(inst)
	c.markRelevant(inst)

	if st := e.takeStash(key); st != nil {
		if h, ok := base.(store.Hydratable); ok {
			h.SetState(st)
		} else {
			e.log.Warn("stashed state dropped, store is not hydratable",
				logger.Fields(logger.FieldProvider, key))
		}
	}

	e.wireDefinition(def)
	e.attachPublisher(inst)

	// The ready-flag flip must run before any observer callback.
	inst.pushFrontReady(inst.setReady)
	if o.onReady != nil {
		inst.OnReady(o.onReady)
	}

	initial := base.GetState()
	finalize := func() {
		inst.fireReady()
		changed := !util.ShallowEqual(base.GetState(), initial)
		def.runClear(changed)
	}
	if rn, ok := base.(store.ReadyNotifier); ok && def.Replicated() && !rn.Replicated() {
		rn.OnReady(finalize)
	} else {
		finalize()
	}

	if e.metrics != nil {
		e.metrics.RecordInstance(context.Background(), def.Key(), inst.Static())
	}
	e.log.Debug("instance created", logger.Fields(
		logger.FieldProvider, def.Key(),
		logger.FieldKey, key,
		logger.FieldInstance, inst.ID(),
	))
	return inst, nil
}

// registryFor picks the registration table for a definition.
func (e *Engine) registryFor(c *Consumer, def *Definition) *Registry {
	if def.Global() {
		return e.global
	}
	return c.Scope.Registry()
}

// findInstance looks a provider key up in the global table, then in the
// scope's table.
func (e *Engine) findInstance(scope *Scope, key string) (*Instance, bool) {
	if inst, ok := e.global.Get(key); ok {
		return inst, true
	}
	if scope != nil {
		return scope.Registry().Get(key)
	}
	return nil, false
}

// SetStates applies bulk state to matching global instances; state for
// keys with no live instance is stashed and applied on their next
// instantiation.
func (e *Engine) SetStates(states map[string]map[string]any) {
	e.setStates(nil, states)
}

func (e *Engine) setStates(scope *Scope, states map[string]map[string]any) {
	for key, st := range states {
		inst, ok := e.findInstance(scope, key)
		if !ok {
			e.stashState(key, st)
			continue
		}
		if h, ok := inst.base.(store.Hydratable); ok {
			h.SetState(st)
		} else {
			e.log.Warn("state ignored, store is not hydratable",
				logger.Fields(logger.FieldProvider, key))
		}
	}
}

// stashState merges pending hydration state for a not-yet-live provider.
func (e *Engine) stashState(key string, st map[string]any) {
	e.stashMu.Lock()
	defer e.stashMu.Unlock()
	existing, ok := e.stash[key]
	if !ok {
		e.stash[key] = util.CloneMap(st)
		return
	}
	for k, v := range st {
		existing[k] = v
	}
}

// takeStash removes and returns stashed state for a provider key.
func (e *Engine) takeStash(key string) map[string]any {
	e.stashMu.Lock()
	defer e.stashMu.Unlock()
	st := e.stash[key]
	delete(e.stash, key)
	return st
}
