package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// unrouted labels metrics for calls that never reached a backend
const unrouted = "unrouted"

// dispatch runs one batch of tool calls and returns one tool entry per call,
// in the order of calls. Calls may run concurrently; calls to the same
// backend are serialised by the backend itself.
func (r *run) dispatch(ctx context.Context, calls []protocol.ToolCall) []protocol.Message {
	results := make([]protocol.Message, len(calls))

	limit := r.o.opts.MaxConcurrency
	if limit <= 0 {
		limit = -1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// invoke performs one tool call. Every failure becomes an error result.
func (r *run) invoke(ctx context.Context, call protocol.ToolCall) protocol.Message {
	opts := r.o.opts
	logger := r.logger.WithFields(
		logging.String(logging.KeyTool, call.Name),
		logging.String(logging.KeyCallID, call.ID))

	ctx, span := opts.Tracer.Start(ctx, observability.SpanToolCall, trace.WithAttributes(
		observability.AttrTool.String(call.Name),
		observability.AttrCallID.String(call.ID)))

	start := time.Now()
	backendID, res, err := r.call(ctx, call)
	elapsed := time.Since(start)

	metricBackend := backendID
	if metricBackend == "" {
		metricBackend = unrouted
	}
	span.SetAttributes(observability.AttrBackend.String(metricBackend))

	if err != nil {
		status := observability.StatusError
		if mcperrors.IsCategory(err, mcperrors.CategoryTimeout) {
			status = observability.StatusTimeout
		}
		opts.Recorder.RecordToolDispatch(metricBackend, call.Name, status, elapsed)
		observability.EndSpan(span, err)
		logger.WithError(err).Warn("tool call failed", logging.String(logging.KeyBackendID, backendID))
		return protocol.ToolResultMessage(call, mcperrors.ToolErrorPayload(err), true)
	}

	status := observability.StatusOK
	if res.IsError {
		status = observability.StatusError
	}
	span.SetAttributes(observability.AttrIsError.Bool(res.IsError))
	opts.Recorder.RecordToolDispatch(backendID, call.Name, status, elapsed)
	observability.EndSpan(span, nil)
	logger.Debug("tool call finished",
		logging.String(logging.KeyBackendID, backendID),
		logging.Bool("is_error", res.IsError),
		logging.Duration("duration", elapsed))

	return protocol.ToolResultMessage(call, res.Text(), res.IsError)
}

// call resolves and invokes one tool. It returns the backend id when the
// name resolved.
func (r *run) call(ctx context.Context, call protocol.ToolCall) (string, *protocol.ToolResult, error) {
	backendID, err := r.o.router.Resolve(call.Name)
	if err != nil {
		return "", nil, err
	}
	if !validArguments(call.Arguments) {
		return backendID, nil, mcperrors.InvalidParameter("arguments", string(call.Arguments), "well-formed JSON")
	}

	backend, err := r.o.registry.Lookup(backendID)
	if err != nil {
		return backendID, nil, err
	}

	timeout := r.o.opts.ToolTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := backend.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		if ctx.Err() != nil {
			err = mcperrors.FromContextError(ctx.Err(), "call_tool "+call.Name, timeout)
		}
		return backendID, nil, err
	}
	if res == nil {
		res = &protocol.ToolResult{}
	}
	return backendID, res, nil
}
