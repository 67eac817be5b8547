package provider

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/logger"
	"github.com/skillsenselab/statekit/observability"
)

// pendingQuery tracks one in-flight provider-level query. Waiters are
// drained in FIFO order when the result lands.
type pendingQuery struct {
	provider string
	started  time.Time
	waiters  []func(value any)
}

// resultKey derives a query's cache identity from its payload and
// resolved options. Serialization is stable: JSON object keys sort.
// Unserializable payloads (e.g. function values) are rejected.
func resultKey(query any, opts QueryOptions) (string, error) {
	raw, err := json.Marshal(struct {
		Query   any          `json:"query"`
		Options QueryOptions `json:"options"`
	}{query, opts})
	if err != nil {
		return "", errors.Configuration("query payload is not serializable: %v", err).WithCause(err)
	}
	return string(raw), nil
}

// resolveOptions applies the option precedence chain: per-call override,
// then the consumer's pass-level QueryOptions, then its per-provider
// entry, then empty. Select defaults to the definition's sorted reducer
// keys before the result key is computed, so an explicit equivalent
// Select shares the cache entry.
func (e *Engine) resolveOptions(c *Consumer, def *Definition, override *QueryOptions) QueryOptions {
	src := override
	if src == nil && c != nil {
		src = c.QueryOptions
	}
	if src == nil && c != nil {
		src = c.Options[def.Key()]
	}
	opts := src.clone()
	if len(opts.Select) == 0 {
		opts.Select = def.ReducerKeys()
	}
	return opts
}

// HandleQueries resolves the consumer's queries and executes each
// provider-level query at most once, joining duplicates onto the pending
// execution and serving repeats from the resolved cache. When every
// result has landed, the flat-query merge (if any) runs, OnUpdate fires
// if any result changed, and callback is invoked. Reports whether any
// queries were issued; an empty resolution invokes callback immediately
// and reports false.
//
// A configuration error (unserializable payload, missing query handler)
// aborts the pass; callback does not fire.
func (e *Engine) HandleQueries(ctx context.Context, c *Consumer, callback func()) (bool, error) {
	sub, order, err := e.resolveQueries(c)
	if err != nil {
		return false, err
	}
	if len(order) == 0 {
		if callback != nil {
			callback()
		}
		return false, nil
	}

	c.needsUpdate = false

	// Seeded at 1 so synchronous completions during enumeration cannot
	// finish the pass early; the seed is released after the loop.
	joins := 1
	complete := func() {
		if c.flatQuery != nil {
			values := make([]any, 0, len(order))
			for _, key := range order {
				values = append(values, c.results[key])
			}
			c.result = mergeResults(values)
		}
		if c.needsUpdate && c.OnUpdate != nil {
			c.OnUpdate()
		}
		if callback != nil {
			callback()
		}
	}
	join := func() {
		joins--
		if joins == 0 {
			complete()
		}
	}

	for _, providerKey := range order {
		def, _ := e.Definition(providerKey)
		joins++
		if err := e.executeQuery(ctx, c, def, sub[providerKey], nil, join); err != nil {
			return false, err
		}
	}

	join()
	return true, nil
}

// Query executes a single provider-level query with per-call options,
// sharing the engine's cache and pending table. onResult receives the
// landed value. The provider is instantiated if absent.
func (e *Engine) Query(ctx context.Context, c *Consumer, providerKey string, query any, opts *QueryOptions, onResult func(value any)) error {
	def, ok := e.Definition(providerKey)
	if !ok {
		return errors.NotFound("definition", providerKey)
	}
	if c == nil {
		c = &Consumer{}
	}
	if _, err := e.Instantiate(c, def); err != nil {
		return err
	}
	return e.executeQuery(ctx, c, def, query, opts, func() {
		if onResult != nil {
			onResult(c.results[providerKey])
		}
	})
}

// executeQuery runs one provider-level query through the resolved cache,
// the pending join, or a cold handler invocation. done fires after the
// value is applied to the consumer; possibly synchronously.
func (e *Engine) executeQuery(ctx context.Context, c *Consumer, def *Definition, query any, override *QueryOptions, done func()) error {
	providerKey := def.Key()
	opts := e.resolveOptions(c, def, override)
	key, err := resultKey(query, opts)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanQuery)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrProvider, providerKey)

	apply := func(value any) bool {
		changed := !e.equals(value, c.results[providerKey])
		if changed {
			c.needsUpdate = true
		}
		c.setResult(providerKey, value)
		return changed
	}

	waiter := func(value any) {
		changed := apply(value)
		def.runClear(changed)
		done()
	}

	// Cache and pending table are consulted under one lock so a query
	// completing on another goroutine is seen in exactly one of them.
	e.pendMu.Lock()
	if v, ok := e.resolved.Get(key); ok {
		e.pendMu.Unlock()
		// Cache hits copy the value without running clear hooks or
		// flagging a needed update.
		observability.SetSpanAttribute(ctx, observability.AttrCacheHit, true)
		if e.metrics != nil {
			e.metrics.RecordCacheHit(ctx, providerKey)
		}
		c.setResult(providerKey, v)
		done()
		return nil
	}
	if p, ok := e.pending[key]; ok {
		p.waiters = append(p.waiters, waiter)
		e.pendMu.Unlock()
		observability.SetSpanAttribute(ctx, observability.AttrCacheHit, false)
		return nil
	}
	p := &pendingQuery{provider: providerKey, started: time.Now(), waiters: []func(any){waiter}}
	e.pending[key] = p
	e.pendMu.Unlock()
	observability.SetSpanAttribute(ctx, observability.AttrCacheHit, false)

	if e.metrics != nil {
		e.metrics.RecordCacheMiss(ctx, providerKey)
	}

	def.runWait()
	handler, _, err := def.queryHandler()
	if err != nil {
		e.pendMu.Lock()
		delete(e.pending, key)
		e.pendMu.Unlock()
		return err
	}

	e.log.Debug("query issued", logger.Fields(
		logger.FieldProvider, providerKey,
		logger.FieldResultKey, key,
	))
	handler.HandleQuery(query, opts, func(value any) {
		e.finishQuery(ctx, key, providerKey, p.started, value)
	})
	return nil
}

// finishQuery caches a landed result and drains the pending waiters in
// FIFO order. Handlers calling onResult more than once only land once.
func (e *Engine) finishQuery(ctx context.Context, key, providerKey string, started time.Time, value any) {
	e.pendMu.Lock()
	p, ok := e.pending[key]
	if !ok {
		e.pendMu.Unlock()
		return
	}
	// The cache write must precede the pending removal, under the same
	// lock, or a concurrent execution could miss both and re-issue.
	e.resolved.Set(key, value, gocache.DefaultExpiration)
	delete(e.pending, key)
	e.pendMu.Unlock()

	duration := time.Since(started)
	if e.metrics != nil {
		e.metrics.RecordQuery(ctx, providerKey, "ok", duration)
	}
	e.log.Debug("query resolved", logger.Fields(
		logger.FieldProvider, providerKey,
		logger.FieldResultKey, key,
		logger.FieldDuration, duration.Milliseconds(),
	))

	for _, w := range p.waiters {
		w(value)
	}
}
