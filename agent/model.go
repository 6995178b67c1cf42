package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/flow"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/plugin"
	"github.com/hupe1980/agentloop/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Instruction        Instruction
	EnableStreaming    bool
	ToolTimeout        time.Duration
	ModelTimeout       time.Duration
	OutputKey          string
	MaxHistoryMessages int
	AllowTransfer      bool
	Tools              []tool.Tool
	Callbacks          *flow.Callbacks
}

// ModelAgent integrates a language model with registered tools, per-agent
// callbacks and transfer policy. Each Run executes one turn through the flow
// pipeline: request assembly, the bounded model loop and the function-calling
// pipeline.
//
// ModelAgent embeds BaseAgent to inherit standard agent lifecycle and
// hierarchy management.
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              *tool.Registry
	callbacks          *flow.Callbacks
	enableStreaming    bool
	toolTimeout        time.Duration
	modelTimeout       time.Duration
	outputKey          string
	maxHistoryMessages int
	allowTransfer      bool
	plugins            *plugin.Manager
}

// NewModelAgent creates a new model-backed agent.
//
// Defaults: streaming enabled, 15s tool timeout, no model timeout,
// 20-message history window, transfer to sub-agents allowed.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		EnableStreaming:    true,
		ToolTimeout:        15 * time.Second,
		MaxHistoryMessages: 20,
		AllowTransfer:      true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name, core.AgentKindLLM),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              tool.NewRegistry(),
		callbacks:          opts.Callbacks,
		enableStreaming:    opts.EnableStreaming,
		toolTimeout:        opts.ToolTimeout,
		modelTimeout:       opts.ModelTimeout,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
		allowTransfer:      opts.AllowTransfer,
	}

	for _, t := range opts.Tools {
		a.tools.MustRegister(t)
	}

	return a
}

// RegisterTool adds a tool to the agent's capability set. Registered tools
// become available for the language model to call during turns.
func (a *ModelAgent) RegisterTool(t tool.Tool) error {
	return a.tools.Register(t)
}

// RegisterTools adds multiple tools, returning the first registration error.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := a.tools.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, ok := a.tools.Get(name)
	return ok
}

// ListTools returns the names of all registered tools.
func (a *ModelAgent) ListTools() []string { return a.tools.Names() }

// SetPluginManager installs the process-wide plugin chain. The runner calls
// this for every model agent in the tree before the first run.
func (a *ModelAgent) SetPluginManager(m *plugin.Manager) { a.plugins = m }

// FlowAgent Interface Implementation
//
// The following methods expose the narrow surface the flow pipeline operates
// on, keeping the full agent implementation out of the flow package.

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// GetTools returns the agent's tool registry.
func (a *ModelAgent) GetTools() *tool.Registry { return a.tools }

// GetCallbacks returns the per-agent callback lists.
func (a *ModelAgent) GetCallbacks() *flow.Callbacks { return a.callbacks }

// GetTransferTargets lists the agent's transferable peers: its sub-agents
// plus, when this agent is itself a child, its parent. Workflow agents and
// agents that opted out of transfer are excluded.
func (a *ModelAgent) GetTransferTargets() []flow.TransferTarget {
	var targets []flow.TransferTarget

	for _, sub := range a.SubAgents() {
		if !core.IsTransferable(sub) {
			continue
		}
		targets = append(targets, flow.TransferTarget{
			Name:        sub.Name(),
			Description: sub.Description(),
		})
	}

	if parent := a.Parent(); parent != nil && core.IsTransferable(parent) {
		targets = append(targets, flow.TransferTarget{
			Name:        parent.Name(),
			Description: parent.Description(),
		})
	}

	return targets
}

// IsStreamingEnabled reports whether partial responses are relayed.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// IsTransferEnabled reports whether the agent may delegate control.
func (a *ModelAgent) IsTransferEnabled() bool { return a.allowTransfer }

// Transferable implements core.Transferable.
func (a *ModelAgent) Transferable() bool { return a.allowTransfer }

// GetOutputKey returns the session state key for saving final responses.
func (a *ModelAgent) GetOutputKey() string { return a.outputKey }

// MaxHistoryMessages bounds the conversation window sent to the model.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// GetToolTimeout bounds a single tool invocation; zero means no limit.
func (a *ModelAgent) GetToolTimeout() time.Duration { return a.toolTimeout }

// GetModelTimeout bounds a single model call; zero means no limit.
func (a *ModelAgent) GetModelTimeout() time.Duration { return a.modelTimeout }

// ResolveInstructions produces the final system prompt by resolving static
// or dynamic instruction sources.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// TransferToAgent hands the current run over to a named agent anywhere in
// the tree. The target runs with the same context so it shares the session,
// the emit channel and the model-call budget.
func (a *ModelAgent) TransferToAgent(runCtx *core.RunContext, agentName string) error {
	target := a.rootAgent().FindAgent(agentName)
	if target == nil {
		return fmt.Errorf("agent %q not found in hierarchy", agentName)
	}

	runCtx.LogInfo(
		"agent.transfer",
		"from", a.Name(),
		"to", agentName,
		"run", runCtx.RunID,
	)

	return target.Run(runCtx)
}

// rootAgent walks parent links to the top of the hierarchy so transfers can
// reach siblings and cousins, not just descendants.
func (a *ModelAgent) rootAgent() core.Agent {
	var current core.Agent = a
	for current.Parent() != nil {
		current = current.Parent()
	}
	return current
}

// Run implements core.Agent. It selects the flow variant matching the
// agent's transfer policy and drives the turn to completion.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug(
		"agent.run.start",
		"agent", a.Name(),
		"run", runCtx.RunID,
	)

	fl := flow.NewSelector().SelectFlow(a, a.plugins)

	runCtx.LogDebug(
		"agent.flow.selected",
		"agent", a.Name(),
		"flow", fmt.Sprintf("%T", fl),
	)

	if err := fl.Run(runCtx); err != nil {
		runCtx.LogError(
			"agent.run.error",
			"agent", a.Name(),
			"error", err.Error(),
		)

		return err
	}

	runCtx.LogDebug("agent.run.complete", "agent", a.Name())

	return nil
}
