// Package lifecycle tracks resources that must be released when a
// conversation or process ends: backend channels, spawned server processes,
// tracer providers.
//
// Resources are released in reverse acquisition order. A failing release is
// reported but never stops the remaining releases, and every resource is
// released at most once no matter how often Release or ReleaseAll is called.
package lifecycle

import (
	"errors"
	"io"
	"sync"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
)

// ReleaseFunc releases one resource.
type ReleaseFunc func() error

// Manager owns an ordered set of acquired resources.
type Manager struct {
	mu      sync.Mutex
	handles []*Handle
	logger  logging.Logger
	onError func(name string, err error)
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used to report release failures
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReleaseHook registers a callback invoked for every failed release,
// for example to count failures in metrics.
func WithReleaseHook(fn func(name string, err error)) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}

// New creates an empty Manager
func New(opts ...Option) *Manager {
	m := &Manager{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle is one acquired resource.
type Handle struct {
	name    string
	release ReleaseFunc
	manager *Manager

	once sync.Once
	err  error
}

// Name returns the name the resource was acquired under
func (h *Handle) Name() string {
	return h.name
}

// Release releases the resource. Only the first call runs the release
// function; later calls return nil.
func (h *Handle) Release() error {
	first := false
	h.once.Do(func() {
		first = true
		if h.release == nil {
			return
		}
		if err := h.release(); err != nil {
			h.err = mcperrors.ReleaseFailed(h.name, err)
		}
	})
	if !first {
		return nil
	}

	h.manager.forget(h)
	if h.err != nil {
		h.manager.report(h.name, h.err)
	}
	return h.err
}

// Acquire registers a resource and its release function.
func (m *Manager) Acquire(name string, release ReleaseFunc) *Handle {
	h := &Handle{name: name, release: release, manager: m}

	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()

	m.logger.Debug("resource acquired", logging.String("resource", name))
	return h
}

// AcquireCloser registers an io.Closer.
func (m *Manager) AcquireCloser(name string, c io.Closer) *Handle {
	return m.Acquire(name, c.Close)
}

// Len returns the number of resources not yet released
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// ReleaseAll releases every outstanding resource, most recently acquired
// first. It returns nil when everything released cleanly, or the joined
// ReleaseFailed errors of the resources that did not.
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = nil
	m.mu.Unlock()

	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) forget(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.handles {
		if cur == h {
			m.handles = append(m.handles[:i], m.handles[i+1:]...)
			return
		}
	}
}

func (m *Manager) report(name string, err error) {
	m.logger.WithError(err).Warn("resource release failed", logging.String("resource", name))
	if m.onError != nil {
		m.onError(name, err)
	}
}
