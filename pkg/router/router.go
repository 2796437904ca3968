// Package router maps tool names to the backend that serves them.
//
// The route table is rebuilt from scratch from a registry snapshot on every
// registry change. Backends are visited in registration order and each
// catalog in advertised order, so when two backends advertise the same name
// the one registered later wins. A rebuilt table is published with a single
// pointer swap; readers see either the old table or the new one.
package router

import (
	"sync/atomic"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
)

// Collision records a tool name advertised by more than one backend.
// Winner is the backend calls are routed to.
type Collision struct {
	Tool     string
	Winner   string
	Shadowed []string
}

type table struct {
	routes     map[string]string
	order      []string
	schemas    map[string]protocol.ToolSchema
	collisions []Collision
}

var emptyTable = &table{
	routes:  map[string]string{},
	schemas: map[string]protocol.ToolSchema{},
}

// Router resolves tool names to backend ids.
type Router struct {
	current  atomic.Pointer[table]
	logger   logging.Logger
	recorder observability.Recorder
}

// Option configures a Router
type Option func(*Router)

// WithLogger sets the router's logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(rec observability.Recorder) Option {
	return func(r *Router) {
		r.recorder = rec
	}
}

// New creates a router with an empty table
func New(opts ...Option) *Router {
	r := &Router{
		logger:   logging.NewNop(),
		recorder: observability.NopRecorder(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithFields(logging.String(logging.KeyComponent, "router"))
	r.current.Store(emptyTable)
	return r
}

// Attach subscribes the router to reg so that every change rebuilds the
// table. The current registry contents are applied immediately.
func (r *Router) Attach(reg *registry.Registry) {
	reg.OnChange(r.Rebuild)
}

// Rebuild replaces the route table with one derived from snapshot.
// Rebuilding twice from the same snapshot yields the same table.
func (r *Router) Rebuild(snapshot []*registry.Backend) {
	t := &table{
		routes:  make(map[string]string),
		schemas: make(map[string]protocol.ToolSchema),
	}
	owners := make(map[string][]string)

	for _, b := range snapshot {
		for _, tool := range b.Tools() {
			if _, seen := t.routes[tool.Name]; !seen {
				t.order = append(t.order, tool.Name)
			}
			t.routes[tool.Name] = b.ID()
			t.schemas[tool.Name] = tool.Schema()

			ids := owners[tool.Name]
			if len(ids) == 0 || ids[len(ids)-1] != b.ID() {
				owners[tool.Name] = append(ids, b.ID())
			}
		}
	}

	for _, name := range t.order {
		ids := owners[name]
		if len(ids) < 2 {
			continue
		}
		c := Collision{Tool: name, Winner: ids[len(ids)-1], Shadowed: ids[:len(ids)-1]}
		t.collisions = append(t.collisions, c)
		r.logger.Warn("tool name advertised by several backends",
			logging.String(logging.KeyTool, name),
			logging.String("winner", c.Winner),
			logging.Any("shadowed", c.Shadowed))
	}

	r.current.Store(t)
	r.recorder.SetRoutableTools(len(t.order))
	r.logger.Debug("route table rebuilt",
		logging.Int("backends", len(snapshot)),
		logging.Int("tools", len(t.order)))
}

// Resolve returns the id of the backend serving name
func (r *Router) Resolve(name string) (string, error) {
	id, ok := r.current.Load().routes[name]
	if !ok {
		return "", mcperrors.UnknownTool(name)
	}
	return id, nil
}

// ExportedSchemaSet returns one schema per distinct tool name, in order of
// first appearance, each taken from the backend the name routes to.
func (r *Router) ExportedSchemaSet() []protocol.ToolSchema {
	t := r.current.Load()
	out := make([]protocol.ToolSchema, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.schemas[name])
	}
	return out
}

// Routes returns a copy of the tool name to backend id map
func (r *Router) Routes() map[string]string {
	t := r.current.Load()
	out := make(map[string]string, len(t.routes))
	for k, v := range t.routes {
		out[k] = v
	}
	return out
}

// Collisions returns the names advertised by more than one backend
func (r *Router) Collisions() []Collision {
	return append([]Collision(nil), r.current.Load().collisions...)
}

// Len returns the number of routable tool names
func (r *Router) Len() int {
	return len(r.current.Load().order)
}
