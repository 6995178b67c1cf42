package flow

import (
	"github.com/hupe1980/agentloop/plugin"
	"github.com/hupe1980/agentloop/tool"
)

// MultiAgentFlow orchestrates an agent that may perform tool calls and
// transfer control to other agents in the tree. It extends the single-agent
// processor set with dynamic transfer_to_agent injection and wires the
// transfer builtin into the executor so injected calls resolve.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates a new multi-agent flow with default processors.
func NewMultiAgentFlow(agent FlowAgent, plugins *plugin.Manager) *MultiAgentFlow {
	baseFlow := NewBaseFlow(agent, plugins)

	injector := NewTransferToolInjector()

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewToolDefinitionsProcessor())
	baseFlow.AddRequestProcessor(injector)

	transfer := injector.Tool()
	baseFlow.SetFunctionExecutor(NewParallelFunctionExecutor(FunctionExecutorConfig{
		Plugins: plugins,
		ExtraTools: map[string]tool.Registration{
			transfer.Name(): {Tool: transfer, Kind: tool.KindOf(transfer)},
		},
	}))

	return &MultiAgentFlow{BaseFlow: baseFlow}
}
