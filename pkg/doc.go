// Package pkg holds the building blocks of the MCP orchestrator.
//
// Most callers only need the root package or pkg/orchestrator. The other
// packages are usable on their own:
//
//   - channel: opens a session to one MCP server and exposes list, call and read operations
//   - registry: owns connected servers, validates their catalogs and serialises calls per server
//   - router: maps each exported tool name to the server that serves it
//   - orchestrator: drives the model and tool loop until a final answer or a failure
//   - lifecycle: guarantees every acquired connection is released exactly once
//   - model: the model boundary plus scripted and rate limited implementations
//   - protocol: transcript messages, tool descriptors and tool results
//   - errors: coded errors shared by every package
//   - logging: structured logging with run correlation
//   - observability: Prometheus metrics and OpenTelemetry tracing
//   - config: YAML configuration for the command line tool
//   - pagination: cursor helpers for paged list operations
//
// Servers for tests are provided by channel/channeltest, which offers a
// scriptable fake channel and an in-process calculator server.
package pkg
