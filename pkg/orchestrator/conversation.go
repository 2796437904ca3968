package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/router"
)

// Registration names one backend for RunConversation. Channel, when set, is
// an already open connection and Descriptor is ignored.
type Registration struct {
	ID         string
	Descriptor channel.Descriptor
	Channel    channel.Channel
}

// RunConversation connects every backend, registers them in the given order,
// runs one conversation from seed and shuts every backend down before
// returning, whatever the outcome.
//
// A backend that cannot be connected or registered fails the run before the
// model is called; the returned Result then holds the unchanged seed.
func RunConversation(ctx context.Context, seed []protocol.Message, regs []Registration, m model.Model, opts ...Option) (*Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, runID := logging.EnsureRunID(ctx)
	logger := o.Logger.WithContext(ctx)

	regOpts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithRecorder(o.Recorder),
		registry.WithTracer(o.Tracer),
	}
	if o.StrictToolNames {
		regOpts = append(regOpts, registry.WithStrictToolNames())
	}
	reg := registry.New(regOpts...)
	rt := router.New(router.WithLogger(logger), router.WithRecorder(o.Recorder))
	rt.Attach(reg)

	defer func() {
		if err := reg.Shutdown(); err != nil {
			logger.WithError(err).Warn("backend shutdown reported failures")
		}
	}()

	start := time.Now()
	if err := registerAll(ctx, reg, regs, o); err != nil {
		o.Recorder.RecordRun(string(StatusFailed), 0, time.Since(start))
		logger.WithError(err).Error("backend setup failed")
		return &Result{
			RunID:      runID,
			Status:     StatusFailed,
			Transcript: protocol.NewTranscript(seed...),
			Err:        err,
			Duration:   time.Since(start),
		}, err
	}

	orch := New(reg, rt, m, func(dst *Options) { *dst = o })
	return orch.Run(ctx, seed...)
}

// registerAll connects backends concurrently and registers them in order.
// On failure every channel not yet owned by the registry is closed.
func registerAll(ctx context.Context, reg *registry.Registry, regs []Registration, o Options) error {
	ids := make(map[string]struct{}, len(regs))
	for _, r := range regs {
		if _, dup := ids[r.ID]; dup {
			closeChannels(regs, nil)
			return mcperrors.DuplicateBackend(r.ID)
		}
		ids[r.ID] = struct{}{}
	}

	// the first failed connect cancels the others' retries
	channels := make([]channel.Channel, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range regs {
		if r.Channel != nil {
			channels[i] = r.Channel
			continue
		}
		g.Go(func() error {
			ch, err := channel.Connect(gctx, r.Descriptor, append([]channel.Option{channel.WithLogger(o.Logger)}, o.ChannelOptions...)...)
			if err != nil {
				return mcperrors.WrapErrorf(err, mcperrors.CodeConnectionFailed, mcperrors.CategoryTransport, mcperrors.SeverityCritical,
					"failed to connect backend %q", r.ID)
			}
			channels[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeChannels(regs, channels)
		return err
	}

	for i, r := range regs {
		opts := []registry.RegisterOption{}
		if r.Channel == nil {
			opts = append(opts, registry.WithTransport(r.Descriptor.Type))
		}
		if _, err := reg.Register(ctx, r.ID, channels[i], opts...); err != nil {
			// Register already closed channels[i]
			for j := i + 1; j < len(regs); j++ {
				_ = channels[j].Close()
			}
			return err
		}
	}
	return nil
}

func closeChannels(regs []Registration, opened []channel.Channel) {
	for i, r := range regs {
		switch {
		case opened != nil && opened[i] != nil:
			_ = opened[i].Close()
		case r.Channel != nil:
			_ = r.Channel.Close()
		}
	}
}
