// Package registry keeps the set of connected MCP backends and their tool
// catalogs.
//
// Registration is atomic: a backend is either fully present with its catalog
// or absent. Every change to the set is announced to listeners, in order and
// one at a time, with a snapshot of the backends in registration order. The
// tool router subscribes this way.
package registry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/lifecycle"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// Listener receives the backend set after every change
type Listener func(snapshot []*Backend)

// Registry owns the registered backends.
type Registry struct {
	// mutate serialises changes and listener notification
	mutate sync.Mutex

	mu        sync.RWMutex
	backends  map[string]*Backend
	order     []*Backend
	pending   map[string]struct{}
	closed    bool
	seq       uint64
	listeners []Listener

	lifecycle *lifecycle.Manager
	logger    logging.Logger
	recorder  observability.Recorder
	tracer    trace.Tracer
	strict    bool
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry's logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(rec observability.Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithTracer sets the tracer used for registration spans
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithLifecycle makes the registry track channels in an existing manager
// instead of a private one.
func WithLifecycle(m *lifecycle.Manager) Option {
	return func(r *Registry) {
		r.lifecycle = m
	}
}

// WithStrictToolNames rejects a backend whose catalog contains a tool name
// another backend already provides. Without it the later backend wins.
func WithStrictToolNames() Option {
	return func(r *Registry) {
		r.strict = true
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		backends: make(map[string]*Backend),
		pending:  make(map[string]struct{}),
		logger:   logging.NewNop(),
		recorder: observability.NopRecorder(),
		tracer:   noop.NewTracerProvider().Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.lifecycle == nil {
		r.lifecycle = lifecycle.New(lifecycle.WithLogger(r.logger))
	}
	r.logger = r.logger.WithFields(logging.String(logging.KeyComponent, "registry"))
	return r
}

// OnChange subscribes fn to registry changes and immediately delivers the
// current snapshot.
func (r *Registry) OnChange(fn Listener) {
	r.mutate.Lock()
	defer r.mutate.Unlock()

	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	fn(snapshot)
}

// RegisterOption adjusts one registration
type RegisterOption func(*Backend)

// WithTransport records how the backend was reached
func WithTransport(t channel.TransportType) RegisterOption {
	return func(b *Backend) {
		b.transport = t
	}
}

// Register fetches ch's tool catalog and adds the backend under id. The
// registry takes ownership of ch: it is closed if registration fails, and
// on Deregister or Shutdown otherwise.
func (r *Registry) Register(ctx context.Context, id string, ch channel.Channel, opts ...RegisterOption) (*Backend, error) {
	ctx, span := r.tracer.Start(ctx, observability.SpanRegister, trace.WithAttributes(observability.AttrBackend.String(id)))
	b, err := r.register(ctx, id, ch, opts)
	observability.EndSpan(span, err)

	if err != nil {
		r.recorder.RecordRegistration(id, observability.StatusError)
		r.logger.WithError(err).Warn("backend registration failed", logging.String(logging.KeyBackendID, id))
		return nil, err
	}
	r.recorder.RecordRegistration(id, observability.StatusOK)
	return b, nil
}

func (r *Registry) register(ctx context.Context, id string, ch channel.Channel, opts []RegisterOption) (*Backend, error) {
	if id == "" {
		_ = ch.Close()
		return nil, mcperrors.MissingParameter("backend id")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = ch.Close()
		return nil, mcperrors.RegistryClosed(id)
	}
	_, exists := r.backends[id]
	_, inflight := r.pending[id]
	if exists || inflight {
		r.mu.Unlock()
		_ = ch.Close()
		return nil, mcperrors.DuplicateBackend(id)
	}
	r.pending[id] = struct{}{}
	r.mu.Unlock()

	committed := false
	defer func() {
		if committed {
			return
		}
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		_ = ch.Close()
	}()

	b := &Backend{id: id, ch: ch, sem: semaphore.NewWeighted(1)}
	for _, opt := range opts {
		opt(b)
	}

	raw, err := b.listTools(ctx)
	if err != nil {
		return nil, mcperrors.FromContextError(err, "list_tools", 0)
	}
	tools, err := validateCatalog(id, raw)
	if err != nil {
		return nil, err
	}
	b.tools = tools

	r.mutate.Lock()
	defer r.mutate.Unlock()

	r.mu.Lock()
	if r.closed {
		// shut down while the catalog was being fetched
		r.mu.Unlock()
		return nil, mcperrors.RegistryClosed(id)
	}
	if r.strict {
		if err := r.conflictLocked(b, tools); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	r.seq++
	b.seq = r.seq
	b.handle = r.lifecycle.AcquireCloser("backend "+id, ch)
	r.backends[id] = b
	r.order = append(r.order, b)
	delete(r.pending, id)
	committed = true
	snapshot, listeners := r.snapshotLocked(), r.listeners
	r.mu.Unlock()

	r.logger.Info("backend registered",
		logging.String(logging.KeyBackendID, id),
		logging.String("transport", string(b.transport)),
		logging.Int("tools", len(tools)))
	r.notify(snapshot, listeners)
	return b, nil
}

// conflictLocked reports tool names in tools already provided by a backend
// other than b. Must hold r.mu.
func (r *Registry) conflictLocked(b *Backend, tools []protocol.ToolDescriptor) error {
	owners := make(map[string]string)
	for _, other := range r.order {
		if other.id == b.id {
			continue
		}
		for _, t := range other.Tools() {
			if _, ok := owners[t.Name]; !ok {
				owners[t.Name] = other.id
			}
		}
	}

	var owner string
	var clashing []string
	for _, name := range toolNames(tools) {
		o, ok := owners[name]
		if !ok {
			continue
		}
		if owner == "" {
			owner = o
		}
		if o == owner {
			clashing = append(clashing, name)
		}
	}
	if owner != "" {
		return mcperrors.ToolNameConflict(b.id, owner, clashing)
	}
	return nil
}

// Deregister removes a backend and closes its channel. Removing an id that is
// not registered is a no-op.
func (r *Registry) Deregister(id string) error {
	r.mutate.Lock()
	defer r.mutate.Unlock()

	r.mu.Lock()
	b, ok := r.backends[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.backends, id)
	r.removeLocked(b)
	snapshot, listeners := r.snapshotLocked(), r.listeners
	r.mu.Unlock()

	err := b.handle.Release()
	r.logger.Info("backend deregistered", logging.String(logging.KeyBackendID, id))
	r.notify(snapshot, listeners)
	return err
}

func (r *Registry) removeLocked(b *Backend) {
	for i, cur := range r.order {
		if cur == b {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			return
		}
	}
}

// Lookup returns the backend registered under id
func (r *Registry) Lookup(id string) (*Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[id]
	if !ok {
		return nil, mcperrors.UnknownBackend(id)
	}
	return b, nil
}

// CatalogOf returns a copy of a backend's tool catalog
func (r *Registry) CatalogOf(id string) ([]protocol.ToolDescriptor, error) {
	b, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return b.Tools(), nil
}

// Backends returns the registered backends in registration order
func (r *Registry) Backends() []*Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Len returns the number of registered backends
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Refresh re-fetches one backend's catalog and announces the change.
func (r *Registry) Refresh(ctx context.Context, id string) error {
	b, err := r.Lookup(id)
	if err != nil {
		return err
	}

	raw, err := b.listTools(ctx)
	if err != nil {
		return mcperrors.FromContextError(err, "list_tools", 0)
	}
	tools, err := validateCatalog(id, raw)
	if err != nil {
		return err
	}

	r.mutate.Lock()
	defer r.mutate.Unlock()

	r.mu.Lock()
	if r.backends[id] != b {
		r.mu.Unlock()
		return mcperrors.UnknownBackend(id)
	}
	if r.strict {
		if err := r.conflictLocked(b, tools); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	b.setTools(tools)
	snapshot, listeners := r.snapshotLocked(), r.listeners
	r.mu.Unlock()

	r.logger.Debug("backend catalog refreshed",
		logging.String(logging.KeyBackendID, id),
		logging.Int("tools", len(tools)))
	r.notify(snapshot, listeners)
	return nil
}

// RefreshStale refreshes every backend whose channel reported a catalog
// change. It returns how many were refreshed and the joined errors of those
// that failed; a failed refresh keeps the previous catalog.
func (r *Registry) RefreshStale(ctx context.Context) (int, error) {
	var errs []error
	refreshed := 0
	for _, b := range r.Backends() {
		if !b.stale() {
			continue
		}
		if err := r.Refresh(ctx, b.id); err != nil {
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// ListResources lists a backend's resources
func (r *Registry) ListResources(ctx context.Context, id string) ([]protocol.Resource, error) {
	b, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return b.ListResources(ctx)
}

// ReadResource reads one resource from a backend
func (r *Registry) ReadResource(ctx context.Context, id, uri string) ([]protocol.ResourceContents, error) {
	b, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return b.ReadResource(ctx, uri)
}

// Shutdown deregisters every backend, closing channels most recently
// registered first. Every channel is closed even when some fail; the
// failures are joined into the returned error. Registrations still in
// flight, and any attempted later, fail with RegistryClosed.
func (r *Registry) Shutdown() error {
	r.mutate.Lock()
	defer r.mutate.Unlock()

	r.mu.Lock()
	r.closed = true
	order := r.order
	r.order = nil
	r.backends = make(map[string]*Backend)
	listeners := r.listeners
	r.mu.Unlock()

	if len(order) == 0 {
		return nil
	}

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := order[i].handle.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Info("registry shut down", logging.Int("backends", len(order)))
	r.notify(nil, listeners)
	return errors.Join(errs...)
}

func (r *Registry) snapshotLocked() []*Backend {
	return append([]*Backend(nil), r.order...)
}

func (r *Registry) notify(snapshot []*Backend, listeners []Listener) {
	r.recorder.SetBackends(len(snapshot))
	for _, fn := range listeners {
		fn(snapshot)
	}
}
