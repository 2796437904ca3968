package channel

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
)

const (
	// DefaultClientName is the implementation name sent in the MCP handshake
	DefaultClientName = "mcp-orchestrator"
	// DefaultClientVersion is the implementation version sent in the MCP handshake
	DefaultClientVersion = "v0.1.0"
)

// Option configures Connect and ConnectServer
type Option func(*options)

type options struct {
	clientName    string
	clientVersion string
	httpClient    *http.Client
	stderr        io.Writer
	logger        logging.Logger
	newBackOff    func() backoff.BackOff
}

func defaultOptions() *options {
	return &options{
		clientName:    DefaultClientName,
		clientVersion: DefaultClientVersion,
		stderr:        os.Stderr,
		logger:        logging.NewNop(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// WithClientInfo sets the implementation name and version announced to backends
func WithClientInfo(name, version string) Option {
	return func(o *options) {
		o.clientName = name
		o.clientVersion = version
	}
}

// WithHTTPClient sets the HTTP client used by network transports
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithStderr redirects the stderr of spawned stdio backends
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// WithLogger sets the logger used for connection attempts
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackOff overrides the retry schedule for network connects
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackOff = newBackOff
	}
}

// Connect opens a channel to the backend described by d. Network transports
// are retried up to d.ConnectRetries extra times with exponential backoff.
func Connect(ctx context.Context, d Descriptor, opts ...Option) (Channel, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	retries := d.ConnectRetries
	if d.Type == TransportTypeStdio {
		retries = 0
	}

	logger := o.logger.WithFields(
		logging.String(logging.KeyComponent, "channel"),
		logging.String("transport", string(d.Type)),
		logging.String("endpoint", d.Endpoint()),
	)

	var (
		ch       Channel
		attempts int
	)
	operation := func() error {
		attempts++
		c, err := connectOnce(ctx, d, o)
		if err == nil {
			ch = c
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		logger.WithError(err).Warn("connect attempt failed", logging.Int("attempt", attempts))
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return nil, mcperrors.FromContextError(ctx.Err(), "connect", d.ConnectTimeout)
		}
		return nil, mcperrors.ConnectionFailed(string(d.Type), d.Endpoint(), attempts, err)
	}

	logger.Debug("connected", logging.Int("attempts", attempts))
	return ch, nil
}

func connectOnce(ctx context.Context, d Descriptor, o *options) (Channel, error) {
	if d.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.ConnectTimeout)
		defer cancel()
	}

	stale := &atomic.Bool{}
	client := newClient(o, stale)

	var transport mcp.Transport
	switch d.Type {
	case TransportTypeStdio:
		cmd := exec.Command(d.Command, d.Args...)
		cmd.Env = append(os.Environ(), d.envList()...)
		cmd.Dir = d.Dir
		cmd.Stderr = o.stderr
		transport = &mcp.CommandTransport{Command: cmd}
	case TransportTypeStreamableHTTP:
		transport = &mcp.StreamableClientTransport{
			Endpoint:   d.URL,
			HTTPClient: httpClientWithHeaders(o.httpClient, d.Headers),
		}
	case TransportTypeSSE:
		transport = &detachedTransport{Transport: &mcp.SSEClientTransport{
			Endpoint:   d.URL,
			HTTPClient: httpClientWithHeaders(o.httpClient, d.Headers),
		}}
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	return &sessionChannel{session: session, transport: d.Type, stale: stale}, nil
}

// detachedTransport gives the connection a context that outlives Connect.
// The SSE client ties its event stream to the context it connects with, and
// that context ends with the connect timeout. ctx still bounds the attempt.
type detachedTransport struct {
	mcp.Transport
}

func (t *detachedTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	conn, err := t.Transport.Connect(connCtx)
	if err != nil {
		cancel()
		return nil, err
	}
	if !stop() {
		// ctx ended while connecting and already cancelled connCtx
		_ = conn.Close()
		return nil, ctx.Err()
	}
	return &detachedConn{Connection: conn, cancel: cancel}, nil
}

// detachedConn releases the stream context on Close.
type detachedConn struct {
	mcp.Connection
	cancel context.CancelFunc
}

func (c *detachedConn) Close() error {
	err := c.Connection.Close()
	c.cancel()
	return err
}

// ConnectServer connects to an in-process server over in-memory transports.
// Closing the returned channel closes both sides.
func ConnectServer(ctx context.Context, server *mcp.Server, opts ...Option) (Channel, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, mcperrors.ConnectionFailed(string(TransportTypeInMemory), "", 1, err)
	}

	stale := &atomic.Bool{}
	session, err := newClient(o, stale).Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = serverSession.Close()
		return nil, mcperrors.ConnectionFailed(string(TransportTypeInMemory), "", 1, err)
	}

	return &sessionChannel{
		session:   session,
		transport: TransportTypeInMemory,
		stale:     stale,
		cleanup:   serverSession.Close,
	}, nil
}

func newClient(o *options, stale *atomic.Bool) *mcp.Client {
	return mcp.NewClient(
		&mcp.Implementation{Name: o.clientName, Version: o.clientVersion},
		&mcp.ClientOptions{
			ToolListChangedHandler: func(context.Context, *mcp.ToolListChangedRequest) {
				stale.Store(true)
			},
		},
	)
}
