// Package protocol defines the data model shared by the orchestrator's
// components: tool descriptors advertised by backends, tool calls requested by
// a model, tool results returned by backends, and the append-only transcript
// a conversation run accumulates.
//
// Tool arguments and input schemas are carried as json.RawMessage. The
// orchestrator never interprets them beyond checking that arguments are
// well-formed JSON; backends own argument validation.
package protocol
