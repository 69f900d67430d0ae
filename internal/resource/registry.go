// Package resource implements the resource registry: a small list of
// long-lived resources, each also an event handler, kept alive across
// focus changes in the window manager.
package resource

import "github.com/dbshell/dbshell/internal/bus"

// Registry holds the application's resources, dispatching OnResource
// add/update commands to itself and broadcasting every other event to
// every resource it holds.
type Registry struct {
	resources []bus.Resource
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// HandleResourceEvent applies an OnResource command to the registry
// itself: Add appends, Update replaces slot 0. The application loop
// calls this before dispatching the event to window components, and
// must not also Broadcast an OnResource event afterward.
func (r *Registry) HandleResourceEvent(e bus.Event) {
	if e.Kind != bus.OnResource {
		return
	}
	cmd := e.ResourceCmd
	if cmd.Add != nil {
		r.resources = append(r.resources, cmd.Add)
	}
	if cmd.Update != nil {
		if len(r.resources) == 0 {
			r.resources = append(r.resources, cmd.Update)
		} else {
			r.resources[0] = cmd.Update
		}
	}
}

// Broadcast forwards e to every held resource. The application loop
// calls this after dispatching non-OnResource events to window
// components, keeping the connector-holding resource in sync even as
// focused components change.
func (r *Registry) Broadcast(e bus.Event) {
	for _, res := range r.resources {
		res.Handle(e)
	}
}

// Resources returns the registry's current resource list, in
// registration order. Primarily for tests and for components that need
// to look up the connector-holding resource directly.
func (r *Registry) Resources() []bus.Resource {
	return append([]bus.Resource{}, r.resources...)
}
