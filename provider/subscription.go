package provider

import (
	"context"

	"github.com/skillsenselab/statekit/logger"
)

// edgeKey identifies a directed subscription edge in the graph.
type edgeKey struct {
	publisher  string
	subscriber string
}

// subscriptionEdge is one wired (publisher definition, subscriber
// definition) pair. The handler fires per instance pair.
type subscriptionEdge struct {
	key     edgeKey
	handler SubscriptionHandler
}

// wireDefinition registers the definition's declared subscription edges.
// Both sides of a pair may declare the edge; presence in the edge table
// makes registration idempotent, so the handler is wired exactly once
// per ordered pair. Called on first instantiation of either side.
func (e *Engine) wireDefinition(def *Definition) {
	for peer, handler := range def.subscribeTo {
		e.registerEdge(peer, def.Key(), handler)
	}
	for peer, handler := range def.subscribers {
		e.registerEdge(def.Key(), peer, handler)
	}
}

// registerEdge wires one directed edge, attaches change listeners to the
// publisher's existing instances, and eagerly replays the handler across
// the current (publisher, subscriber) instance cross-product.
func (e *Engine) registerEdge(publisher, subscriber string, handler SubscriptionHandler) {
	key := edgeKey{publisher: publisher, subscriber: subscriber}

	e.edgeMu.Lock()
	if _, ok := e.edges[key]; ok {
		e.edgeMu.Unlock()
		return
	}
	edge := &subscriptionEdge{key: key, handler: handler}
	e.edges[key] = edge
	e.edgeMu.Unlock()

	e.log.Debug("subscription edge wired", logger.Fields(
		"publisher", publisher,
		"subscriber", subscriber,
	))

	pubDef, ok := e.Definition(publisher)
	if !ok {
		// publisher not registered yet; its instances attach at creation
		return
	}
	for _, pub := range pubDef.Instances() {
		e.attachListener(edge, pub)
		e.replayEdge(edge, pub)
	}
}

// attachPublisher hooks a newly created instance into every edge where
// its definition publishes. Runs once per instance at creation.
func (e *Engine) attachPublisher(inst *Instance) {
	for _, edge := range e.edgesFrom(inst.Definition().Key()) {
		e.attachListener(edge, inst)
	}
}

// edgesFrom snapshots the edges published by a definition key.
func (e *Engine) edgesFrom(publisher string) []*subscriptionEdge {
	e.edgeMu.Lock()
	defer e.edgeMu.Unlock()
	var out []*subscriptionEdge
	for key, edge := range e.edges {
		if key.publisher == publisher {
			out = append(out, edge)
		}
	}
	return out
}

// edgeInstKey identifies one (edge, publisher instance) attachment.
type edgeInstKey struct {
	edge edgeKey
	inst string
}

// attachListener subscribes to one publisher instance's store, at most
// once per (edge, instance). Each change fans out to the subscriber
// definition's live instances, enumerated at fire time so later
// subscribers are included.
func (e *Engine) attachListener(edge *subscriptionEdge, pub *Instance) {
	key := edgeInstKey{edge: edge.key, inst: pub.ID()}
	e.edgeMu.Lock()
	if _, ok := e.attached[key]; ok {
		e.edgeMu.Unlock()
		return
	}
	e.attached[key] = struct{}{}
	e.edgeMu.Unlock()

	pub.base.Subscribe(func() {
		e.fanOut(edge, pub)
	})
}

// fanOut invokes the edge handler for every live subscriber instance.
func (e *Engine) fanOut(edge *subscriptionEdge, pub *Instance) {
	subDef, ok := e.Definition(edge.key.subscriber)
	if !ok {
		return
	}
	subs := subDef.Instances()
	for _, sub := range subs {
		edge.handler(pub, sub)
	}
	if e.metrics != nil && len(subs) > 0 {
		e.metrics.RecordFanout(context.Background(),
			edge.key.publisher, edge.key.subscriber, int64(len(subs)))
	}
}

// replayEdge eagerly delivers the publisher's current state to existing
// subscribers when an edge is first wired, so subscribers never miss
// changes that happened before wiring.
func (e *Engine) replayEdge(edge *subscriptionEdge, pub *Instance) {
	e.fanOut(edge, pub)
}
