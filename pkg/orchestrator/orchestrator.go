// Package orchestrator drives a conversation between a language model and
// the tools of several MCP backends.
//
// A run is an explicit state machine:
//
//	AWAITING_MODEL -> DISPATCHING_TOOLS -> AWAITING_MODEL -> ... -> DONE
//
// with FAILED reachable from any state. In AWAITING_MODEL the model sees the
// transcript and the routable tool schemas. A reply without tool calls ends
// the run; otherwise the calls are recorded and dispatched, their results
// are appended in the order the model asked for them, and the model is asked
// again.
//
// Tool failures never fail a run: unknown tools, malformed arguments,
// transport errors and timeouts are turned into error results the model can
// react to. Model failures, cancellation and an exhausted iteration budget
// fail the run and leave the transcript as it was before the failing step.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/router"
)

// Orchestrator runs conversations against a registry of backends.
// It is safe to run several conversations concurrently.
type Orchestrator struct {
	registry *registry.Registry
	router   *router.Router
	model    model.Model
	opts     Options
}

// New creates an orchestrator. rt must be attached to reg.
func New(reg *registry.Registry, rt *router.Router, m model.Model, opts ...Option) *Orchestrator {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Orchestrator{
		registry: reg,
		router:   rt,
		model:    model.RateLimited(m, o.ModelLimiter),
		opts:     o,
	}
}

// Registry returns the orchestrator's registry
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Router returns the orchestrator's router
func (o *Orchestrator) Router() *router.Router {
	return o.router
}

// Run drives one conversation starting from seed until the model gives a
// final answer or the run fails. A failed run returns both a Result and its
// error.
func (o *Orchestrator) Run(ctx context.Context, seed ...protocol.Message) (*Result, error) {
	ctx, runID := logging.EnsureRunID(ctx)
	ctx, span := o.opts.Tracer.Start(ctx, observability.SpanRun,
		trace.WithAttributes(observability.AttrRunID.String(runID)))

	r := &run{
		o:          o,
		id:         runID,
		transcript: protocol.NewTranscript(seed...),
		logger:     o.opts.Logger.WithContext(ctx).WithFields(logging.String(logging.KeyComponent, "orchestrator")),
		state:      StateAwaitingModel,
	}

	start := time.Now()
	r.logger.Info("run started", logging.Int("seed_messages", len(seed)))
	r.loop(ctx)

	res := &Result{
		RunID:      runID,
		Status:     StatusCompleted,
		Transcript: r.transcript,
		Err:        r.err,
		Iterations: r.iterations,
		Duration:   time.Since(start),
	}
	if r.state == StateFailed {
		res.Status = StatusFailed
	}

	span.SetAttributes(
		observability.AttrStatus.String(string(res.Status)),
		observability.AttrIteration.Int(res.Iterations))
	observability.EndSpan(span, res.Err)
	o.opts.Recorder.RecordRun(string(res.Status), res.Iterations, res.Duration)

	if res.Err != nil {
		r.logger.WithError(res.Err).Warn("run failed",
			logging.Int("iterations", res.Iterations),
			logging.Duration("duration", res.Duration))
		return res, res.Err
	}
	r.logger.Info("run completed",
		logging.Int("iterations", res.Iterations),
		logging.Int("messages", res.Transcript.Len()),
		logging.Duration("duration", res.Duration))
	return res, nil
}

// run is the state of one conversation. Only the loop goroutine mutates it.
type run struct {
	o          *Orchestrator
	id         string
	transcript *protocol.Transcript
	logger     logging.Logger

	state      State
	pending    []protocol.ToolCall
	iterations int
	err        error
}

func (r *run) loop(ctx context.Context) {
	for !r.state.Terminal() {
		switch r.state {
		case StateAwaitingModel:
			resp, err := r.awaitModel(ctx)
			switch {
			case err != nil:
				r.fail(err)
			case resp.HasToolCalls():
				r.transcript.Append(protocol.ToolCallMessage(resp.Content, resp.ToolCalls))
				r.pending = resp.ToolCalls
				r.transition(StateDispatchingTools)
			default:
				r.transcript.Append(protocol.AssistantMessage(resp.Content))
				r.transition(StateDone)
			}

		case StateDispatchingTools:
			r.transcript.Append(r.dispatch(ctx, r.pending)...)
			r.pending = nil
			r.transition(StateAwaitingModel)
		}
	}
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.logger.Debug("state transition",
		logging.String("from", from.String()),
		logging.String("to", to.String()))
	if hook := r.o.opts.TransitionHook; hook != nil {
		hook(r.id, from, to)
	}
}

func (r *run) fail(err error) {
	r.err = err
	r.transition(StateFailed)
}

// awaitModel performs one model call. The transcript is not modified.
func (r *run) awaitModel(ctx context.Context) (*model.Response, error) {
	opts := r.o.opts

	if opts.RefreshStaleCatalogs {
		if n, err := r.o.registry.RefreshStale(ctx); err != nil {
			r.logger.WithError(err).Warn("catalog refresh failed")
		} else if n > 0 {
			r.logger.Info("refreshed changed catalogs", logging.Int("backends", n))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, mcperrors.FromContextError(err, "run", 0)
	}
	if opts.MaxIterations > 0 && r.iterations >= opts.MaxIterations {
		return nil, mcperrors.IterationLimitExceeded(opts.MaxIterations)
	}
	r.iterations++

	req := &model.Request{
		Messages: r.transcript.Messages(),
		Tools:    r.o.router.ExportedSchemaSet(),
	}

	mctx, span := opts.Tracer.Start(ctx, observability.SpanModelCall,
		trace.WithAttributes(observability.AttrIteration.Int(r.iterations)))
	cancel := func() {}
	if opts.ModelTimeout > 0 {
		mctx, cancel = context.WithTimeout(mctx, opts.ModelTimeout)
	}

	start := time.Now()
	resp, err := r.o.model.Complete(mctx, req)
	timedOut := mctx.Err() != nil && ctx.Err() == nil
	cancel()

	if err == nil {
		err = validateResponse(resp)
	} else {
		err = modelError(ctx, err, timedOut, opts.ModelTimeout)
	}

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		if mcperrors.IsCategory(err, mcperrors.CategoryTimeout) {
			status = observability.StatusTimeout
		}
	} else {
		span.SetAttributes(observability.AttrToolCalls.Int(len(resp.ToolCalls)))
	}
	opts.Recorder.RecordModelCall(status, time.Since(start))
	observability.EndSpan(span, err)

	if err != nil {
		return nil, err
	}
	return &model.Response{Content: resp.Content, ToolCalls: withCallIDs(resp.ToolCalls)}, nil
}

func modelError(ctx context.Context, err error, timedOut bool, timeout time.Duration) error {
	switch {
	case ctx.Err() != nil:
		return mcperrors.FromContextError(ctx.Err(), "model_call", 0)
	case timedOut:
		return mcperrors.OperationTimeout("model_call", timeout)
	case mcperrors.IsCategory(err, mcperrors.CategoryTimeout), mcperrors.IsCategory(err, mcperrors.CategoryCancelled):
		return err
	default:
		return mcperrors.ModelCallFailed(err)
	}
}

func validateResponse(resp *model.Response) error {
	if resp == nil {
		return mcperrors.MalformedModelResponse("model returned no response")
	}
	seen := make(map[string]struct{}, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		if call.Name == "" {
			return mcperrors.MalformedModelResponse(fmt.Sprintf("tool call %d has no tool name", i))
		}
		if call.ID == "" {
			continue
		}
		if _, dup := seen[call.ID]; dup {
			return mcperrors.MalformedModelResponse("duplicate tool call id " + call.ID)
		}
		seen[call.ID] = struct{}{}
	}
	return nil
}

// withCallIDs returns a copy of calls in which every call has an id
func withCallIDs(calls []protocol.ToolCall) []protocol.ToolCall {
	out := append([]protocol.ToolCall(nil), calls...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = "call_" + uuid.NewString()
		}
	}
	return out
}

func validArguments(args json.RawMessage) bool {
	return len(args) == 0 || json.Valid(args)
}
