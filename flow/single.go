package flow

import "github.com/hupe1980/agentloop/plugin"

// SingleAgentFlow executes a standalone agent without transfers or sub-agent
// delegation. It wires the default processors for instruction resolution,
// content assembly and tool exposure.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a new basic single-agent flow.
func NewSingleAgentFlow(agent FlowAgent, plugins *plugin.Manager) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent, plugins)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewToolDefinitionsProcessor())

	return &SingleAgentFlow{BaseFlow: baseFlow}
}
