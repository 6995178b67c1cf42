package flow

import "github.com/hupe1980/agentloop/plugin"

// Selector picks the flow variant matching an agent's capabilities.
type Selector struct{}

// NewSelector creates a new flow selector.
func NewSelector() *Selector { return &Selector{} }

// SelectFlow chooses the appropriate flow for the given agent:
//   - SingleAgentFlow for isolated agents without transfers
//   - MultiAgentFlow for agents that may delegate control
func (s *Selector) SelectFlow(agent FlowAgent, plugins *plugin.Manager) Flow {
	if !agent.IsTransferEnabled() || len(agent.GetTransferTargets()) == 0 {
		return NewSingleAgentFlow(agent, plugins)
	}

	return NewMultiAgentFlow(agent, plugins)
}
