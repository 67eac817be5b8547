package provider

import (
	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/store"
)

// Command addresses one action at one live provider instance.
type Command struct {
	Provider string
	Action   store.Action
}

// API is the cross-provider command surface handed to thunks. It is bound
// to the scope of the instance whose dispatch triggered the thunk.
type API struct {
	engine *Engine
	scope  *Scope
}

// API returns the command surface bound to a scope. A nil scope reaches
// global instances only.
func (e *Engine) API(scope *Scope) *API {
	return &API{engine: e, scope: scope}
}

// resolveTarget extracts the definition and provider key addressed by a
// props map. "provider" names the definition; "key" optionally overrides
// the instance key.
func (a *API) resolveTarget(props map[string]any) (*Definition, string, error) {
	name, _ := props["provider"].(string)
	if name == "" {
		return nil, "", errors.MissingField("provider")
	}
	def, ok := a.engine.Definition(name)
	if !ok {
		return nil, "", errors.NotFound("definition", name)
	}
	key := def.Key()
	if k, ok := props["key"].(string); ok && k != "" {
		key = k
	}
	return def, key, nil
}

// GetInstance instantiates (or reuses) the provider addressed by props
// and invokes cb once the instance is ready.
func (a *API) GetInstance(props map[string]any, cb func(*Instance)) error {
	def, key, err := a.resolveTarget(props)
	if err != nil {
		return err
	}
	c := &Consumer{Scope: a.scope, Props: props}
	inst, err := a.engine.Instantiate(c, def, WithKey(key))
	if err != nil {
		return err
	}
	if cb != nil {
		inst.OnReady(func() { cb(inst) })
	}
	return nil
}

// Find locates the provider addressed by props. When absent and
// instantiate is false, cb receives nil; otherwise the instance is
// created first. cb fires once the instance (if any) is ready.
func (a *API) Find(props map[string]any, instantiate bool, cb func(*Instance)) error {
	_, key, err := a.resolveTarget(props)
	if err != nil {
		return err
	}
	inst, ok := a.engine.findInstance(a.scope, key)
	if !ok {
		if instantiate {
			return a.GetInstance(props, cb)
		}
		if cb != nil {
			cb(nil)
		}
		return nil
	}
	if cb != nil {
		inst.OnReady(func() { cb(inst) })
	}
	return nil
}

// SetStates applies bulk state to instances reachable from this scope;
// state for absent providers is stashed for their next instantiation.
func (a *API) SetStates(states map[string]map[string]any) {
	a.engine.setStates(a.scope, states)
}

// DispatchAll sends each command to its addressed live instance. A
// command naming an absent instance fails the batch; earlier commands
// stay applied.
func (a *API) DispatchAll(commands []Command) error {
	for _, cmd := range commands {
		inst, ok := a.engine.findInstance(a.scope, cmd.Provider)
		if !ok {
			return errors.NotFound("instance", cmd.Provider)
		}
		inst.Dispatch(cmd.Action)
	}
	return nil
}
