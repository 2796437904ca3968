package main

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/config"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/lifecycle"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/router"
)

// app holds what every command needs: configuration, logger, telemetry and
// the resources to release on exit.
type app struct {
	cfg       config.Config
	logger    logging.Logger
	recorder  observability.Recorder
	tracing   *observability.TracingProvider
	resources *lifecycle.Manager
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		recorder:  observability.NopRecorder(),
		resources: lifecycle.New(lifecycle.WithLogger(logger)),
	}

	if cfg.Metrics.Enabled {
		rec, err := observability.NewPrometheusRecorder(cfg.MetricsOptions())
		if err != nil {
			return nil, err
		}
		if err := rec.Start(ctx); err != nil {
			return nil, err
		}
		a.resources.Acquire("metrics server", func() error {
			return rec.Shutdown(context.Background())
		})
		a.recorder = rec
		logger.Info("metrics endpoint started",
			logging.String("address", cfg.Metrics.Address),
			logging.String("path", cfg.Metrics.Path))
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.NewTracingProvider(cfg.TracingOptions(version))
		if err != nil {
			_ = a.close()
			return nil, err
		}
		a.resources.Acquire("tracer provider", func() error {
			return tp.Shutdown(context.Background())
		})
		a.tracing = tp
	}

	return a, nil
}

func (a *app) close() error {
	return a.resources.ReleaseAll()
}

// connect opens every configured backend and registers it in file order.
func (a *app) connect(ctx context.Context) (*registry.Registry, *router.Router, error) {
	opts := []registry.Option{
		registry.WithLogger(a.logger),
		registry.WithRecorder(a.recorder),
		registry.WithLifecycle(a.resources),
	}
	if a.cfg.Orchestrator.StrictToolNames {
		opts = append(opts, registry.WithStrictToolNames())
	}
	reg := registry.New(opts...)
	rt := router.New(router.WithLogger(a.logger), router.WithRecorder(a.recorder))
	rt.Attach(reg)

	for _, b := range a.cfg.Backends {
		ch, err := channel.Connect(ctx, b.Descriptor, channel.WithLogger(a.logger), channel.WithClientInfo("mcp-orchestrator", version))
		if err != nil {
			_ = reg.Shutdown()
			return nil, nil, fmt.Errorf("connect %s: %w", b.ID, err)
		}
		if _, err := reg.Register(ctx, b.ID, ch, registry.WithTransport(b.Type)); err != nil {
			_ = reg.Shutdown()
			return nil, nil, err
		}
	}
	return reg, rt, nil
}
