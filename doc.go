// Package mcporchestrator runs tool-using conversations across several Model
// Context Protocol servers at once.
//
// A conversation is driven by a language model. Each time the model asks for
// tools, the orchestrator routes every call to the server that owns the tool,
// runs the calls of one turn in parallel, appends the results to the
// transcript in the order the model requested them, and asks the model again.
// The run ends when the model answers without requesting any tool.
//
// # Components
//
//   - pkg/channel: connections to servers over stdio, streamable HTTP, SSE or in memory
//   - pkg/registry: the set of connected servers and their validated tool catalogs
//   - pkg/router: the tool name to server table, rebuilt on every registry change
//   - pkg/orchestrator: the conversation state machine and RunConversation
//   - pkg/lifecycle: scoped acquisition and release of connections
//   - pkg/model: the model interface plus scripted and rate limited models
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//   - pkg/config: YAML configuration for the mcp-orchestrator command
//
// # Running a conversation
//
//	res, err := mcporchestrator.RunConversation(ctx,
//	    []mcporchestrator.Message{mcporchestrator.UserMessage("what is 2 + 3?")},
//	    []mcporchestrator.Registration{{
//	        ID:         "calc",
//	        Descriptor: mcporchestrator.Descriptor{Type: mcporchestrator.TransportStdio, Command: "./calculator-server"},
//	    }},
//	    myModel,
//	    mcporchestrator.WithMaxIterations(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.FinalAnswer())
//
// Every connection opened by RunConversation is closed before it returns,
// whether the run completed or failed. A failed run still carries the
// transcript as it stood when the failure happened.
//
// # Long-lived use
//
// Callers that keep servers connected across many runs build the pieces
// themselves:
//
//	reg := mcporchestrator.NewRegistry()
//	defer reg.Shutdown()
//	rt := mcporchestrator.NewRouter()
//	rt.Attach(reg)
//
//	ch, err := mcporchestrator.Connect(ctx, desc)
//	if err != nil { ... }
//	if _, err := reg.Register(ctx, "calc", ch); err != nil { ... }
//
//	o := mcporchestrator.New(reg, rt, myModel)
//	res, err := o.Run(ctx, mcporchestrator.UserMessage("hello"))
package mcporchestrator
