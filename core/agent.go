package core

// AgentKind categorizes how an agent decides its next action.
type AgentKind string

const (
	// AgentKindLLM marks agents whose next action is chosen by a language model.
	AgentKindLLM AgentKind = "llm"
	// AgentKindWorkflow marks deterministic composite agents (sequential,
	// parallel, loop). Workflow agents never participate in model-driven
	// transfer.
	AgentKindWorkflow AgentKind = "workflow"
)

// Agent defines the core interface that all agents in AgentLoop must implement.
//
// Agents are the primary processing units in the framework. They receive
// inputs through a RunContext, process them asynchronously, and emit events
// to communicate results and state changes back to the Runner.
//
// The Agent interface supports both simple single-agent scenarios and complex
// hierarchical multi-agent workflows through the sub-agent management methods.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown
//   - Emit events through the provided RunContext
//   - Handle the async resume mechanism properly
//   - Manage their lifecycle through Start/Stop methods
type Agent interface {
	Name() string
	Description() string
	Kind() AgentKind
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// Transferable is implemented by agents that can opt out of model-driven
// transfer. LLM agents are transferable unless they implement this and return
// false; workflow agents never are.
type Transferable interface{ Transferable() bool }

// IsTransferable reports whether control may be handed to a via a transfer
// action or resumed there by the turn resolver.
func IsTransferable(a Agent) bool {
	if a == nil || a.Kind() != AgentKindLLM {
		return false
	}

	if t, ok := a.(Transferable); ok {
		return t.Transferable()
	}

	return true
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "orchestrator", "worker").
type AgentInfo struct{ Name, Type string }
