package provider

import (
	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/util"
)

// flatQueryPayload evaluates the consumer's flat query at most once.
func (c *Consumer) flatQueryPayload() map[string]any {
	if c.flatEvaluated {
		return c.flatQuery
	}
	c.flatEvaluated = true
	switch {
	case c.Query != nil:
		c.flatQuery = c.Query
	case c.QueryFunc != nil:
		c.flatQuery = c.QueryFunc(c)
	}
	return c.flatQuery
}

// resolveQueries turns a consumer's declarations into a per-provider
// sub-query mapping with a stable order, and eagerly instantiates every
// relevant provider. The result is memoized on the consumer.
//
// Explicit entries are taken as-is (function values evaluated once). A
// flat query additionally fans out to every registered definition whose
// reducer keys overlap its fields; overlapping fields merge into that
// provider's entry. Order follows definition registration order.
func (e *Engine) resolveQueries(c *Consumer) (map[string]any, []string, error) {
	if c.resolved != nil {
		return c.resolved, c.resolvedOrder, nil
	}

	for key := range c.Queries {
		if _, ok := e.Definition(key); !ok {
			return nil, nil, errors.NotFound("definition", key)
		}
	}

	flat := c.flatQueryPayload()
	sub := make(map[string]any)
	var order []string

	for _, defKey := range e.Definitions() {
		def, _ := e.Definition(defKey)

		if entry, ok := c.Queries[defKey]; ok {
			if fn, isFn := entry.(QueryFunc); isFn {
				entry = fn(c)
			}
			sub[defKey] = entry
			order = append(order, defKey)
		}

		if len(flat) == 0 {
			continue
		}
		fields := make(map[string]any)
		for f, v := range flat {
			if def.HasReducer(f) {
				fields[f] = v
			}
		}
		if len(fields) == 0 {
			continue
		}
		merged := make(map[string]any, len(fields))
		if existing, ok := sub[defKey].(map[string]any); ok {
			merged = util.CloneMap(existing)
		}
		for f, v := range fields {
			merged[f] = v
		}
		if _, seen := sub[defKey]; !seen {
			order = append(order, defKey)
		}
		sub[defKey] = merged
	}

	for _, defKey := range order {
		def, _ := e.Definition(defKey)
		if _, err := e.Instantiate(c, def); err != nil {
			return nil, nil, err
		}
	}

	if len(order) == 0 {
		// no stale leftovers from a previous pass
		c.result = nil
		c.results = nil
	}

	c.resolved = sub
	c.resolvedOrder = order
	return sub, order, nil
}
