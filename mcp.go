package mcporchestrator

import (
	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/orchestrator"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/registry"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/router"
)

// Version represents the current version of the orchestrator
const Version = "0.1.0"

// Core types
type (
	Registration = orchestrator.Registration
	Result       = orchestrator.Result
	Option       = orchestrator.Option
	Descriptor   = channel.Descriptor
	Channel      = channel.Channel
	Message      = protocol.Message
	ToolCall     = protocol.ToolCall
	Model        = model.Model
	Request      = model.Request
	Response     = model.Response
)

// These exports provide direct access to the core components
var (
	// RunConversation connects every backend, runs one conversation and releases everything
	RunConversation = orchestrator.RunConversation

	// New creates an orchestrator over an existing registry and router
	New = orchestrator.New

	// NewRegistry creates an empty server registry
	NewRegistry = registry.New

	// NewRouter creates an empty tool router
	NewRouter = router.New

	// Connect opens a channel described by a Descriptor
	Connect = channel.Connect

	// ConnectServer opens an in-memory channel to an in-process server
	ConnectServer = channel.ConnectServer
)

// Transport types
const (
	TransportStdio          = channel.TransportTypeStdio
	TransportStreamableHTTP = channel.TransportTypeStreamableHTTP
	TransportSSE            = channel.TransportTypeSSE
	TransportInMemory       = channel.TransportTypeInMemory
)

// Orchestrator options
var (
	WithMaxIterations      = orchestrator.WithMaxIterations
	WithModelTimeout       = orchestrator.WithModelTimeout
	WithToolTimeout        = orchestrator.WithToolTimeout
	WithMaxConcurrency     = orchestrator.WithMaxConcurrency
	WithSequentialDispatch = orchestrator.WithSequentialDispatch
	WithModelRateLimit     = orchestrator.WithModelRateLimit
	WithoutCatalogRefresh  = orchestrator.WithoutCatalogRefresh
	WithStrictToolNames    = orchestrator.WithStrictToolNames
	WithChannelOptions     = orchestrator.WithChannelOptions
	WithLogger             = orchestrator.WithLogger
	WithRecorder           = orchestrator.WithRecorder
	WithTracer             = orchestrator.WithTracer
	WithTransitionHook     = orchestrator.WithTransitionHook
)

// Message constructors
var (
	SystemMessage = protocol.SystemMessage
	UserMessage   = protocol.UserMessage
)
