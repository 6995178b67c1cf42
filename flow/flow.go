// Package flow implements the execution pipeline that drives a model-backed
// agent turn: request assembly through processors, the bounded model loop,
// the function-calling pipeline with fan-out/fan-in, and plugin/callback
// chain evaluation around model and tool calls.
package flow

import (
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// Flow drives the complete execution of one agent turn. Events are emitted
// through the RunContext; Run returns when the turn reached a final response,
// was transferred away, or failed.
type Flow interface {
	Run(runCtx *core.RunContext) error
}

// TransferTarget identifies an agent reachable through transfer_to_agent.
type TransferTarget struct {
	Name        string
	Description string
}

// FlowAgent is the narrow agent surface flows operate on. It exposes model
// access, registered tools, per-agent callbacks and the transfer policy
// without leaking the full agent implementation.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions produces the system prompt for the current run.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the agent's tool registry.
	GetTools() *tool.Registry

	// GetCallbacks returns the per-agent callback lists.
	GetCallbacks() *Callbacks

	// GetTransferTargets lists agents reachable via transfer from here.
	GetTransferTargets() []TransferTarget

	// IsStreamingEnabled reports whether partial responses are relayed.
	IsStreamingEnabled() bool

	// IsTransferEnabled reports whether the agent may delegate control.
	IsTransferEnabled() bool

	// GetOutputKey returns the session state key for saving final responses,
	// empty when responses are not persisted to state.
	GetOutputKey() string

	// MaxHistoryMessages bounds the conversation window sent to the model.
	MaxHistoryMessages() int

	// GetToolTimeout bounds a single tool invocation; zero means no limit.
	GetToolTimeout() time.Duration

	// GetModelTimeout bounds a single model call; zero means no limit.
	GetModelTimeout() time.Duration

	// TransferToAgent hands the run over to a named agent in the tree.
	TransferToAgent(runCtx *core.RunContext, agentName string) error
}

// RequestProcessor mutates the model request before it is sent.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}
