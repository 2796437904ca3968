package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel/channeltest"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/orchestrator"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/router"
)

// BenchmarkOrchestrator benchmarks full runs against fake backends
func BenchmarkOrchestrator(b *testing.B) {
	b.Run("SingleCall", func(b *testing.B) {
		benchmarkRun(b, 1, 1)
	})

	b.Run("Batch/10", func(b *testing.B) {
		benchmarkRun(b, 4, 10)
	})

	b.Run("Batch/100", func(b *testing.B) {
		benchmarkRun(b, 8, 100)
	})
}

// BenchmarkRouter benchmarks routing table operations
func BenchmarkRouter(b *testing.B) {
	b.Run("Resolve", func(b *testing.B) {
		benchmarkResolve(b)
	})

	b.Run("Rebuild/10x20", func(b *testing.B) {
		benchmarkRebuild(b, 10, 20)
	})
}

// benchmarkRun measures one run in which the model asks for calls tool calls
// spread over backends servers, then answers.
func benchmarkRun(b *testing.B, backends, calls int) {
	ctx := context.Background()
	reg, rt := setupRegistry(b, backends, 1)

	batch := make([]protocol.ToolCall, calls)
	for i := range batch {
		batch[i] = protocol.ToolCall{
			ID:        fmt.Sprintf("c%d", i),
			Name:      toolName(i%backends, 0),
			Arguments: []byte(`{"input":"test data"}`),
		}
	}
	m := model.Func(func(_ context.Context, req *model.Request) (*model.Response, error) {
		if last := req.Messages[len(req.Messages)-1]; last.Role == protocol.RoleTool {
			return &model.Response{Content: "done"}, nil
		}
		return &model.Response{ToolCalls: batch}, nil
	})
	orch := orchestrator.New(reg, rt, m)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res, err := orch.Run(ctx, protocol.UserMessage("go"))
		if err != nil {
			b.Fatal(err)
		}
		if !res.Completed() {
			b.Fatalf("run %s", res.Status)
		}
	}
}

func benchmarkResolve(b *testing.B) {
	_, rt := setupRegistry(b, 10, 20)
	names := make([]string, 0, 200)
	for name := range rt.Routes() {
		names = append(names, name)
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := rt.Resolve(names[i%len(names)]); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func benchmarkRebuild(b *testing.B, backends, tools int) {
	reg, _ := setupRegistry(b, backends, tools)
	rt := router.New()
	snapshot := reg.Backends()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		rt.Rebuild(snapshot)
	}
}

// setupRegistry registers backends fake servers with tools tools each
func setupRegistry(b *testing.B, backends, tools int) (*registry.Registry, *router.Router) {
	b.Helper()
	reg := registry.New()
	rt := router.New()
	rt.Attach(reg)

	for i := 0; i < backends; i++ {
		descs := make([]protocol.ToolDescriptor, tools)
		for j := range descs {
			descs[j] = channeltest.Tool(toolName(i, j), "benchmark tool")
		}
		if _, err := reg.Register(context.Background(), fmt.Sprintf("backend-%d", i), channeltest.NewFake(descs...)); err != nil {
			b.Fatal(err)
		}
	}
	b.Cleanup(func() { _ = reg.Shutdown() })
	return reg, rt
}

func toolName(backend, tool int) string {
	return fmt.Sprintf("tool_%d_%d", backend, tool)
}
