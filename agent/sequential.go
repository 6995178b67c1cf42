package agent

import (
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// SequentialAgent coordinates the execution of multiple child agents in order.
//
// Each child runs with the same RunContext, so session state accumulated by
// earlier children (output keys, state deltas) is visible to later ones.
// Execution stops at the first error.
//
// SequentialAgent is ideal for:
//   - Multi-step data processing pipelines
//   - Workflows requiring a specific execution order
//   - Complex tasks broken into specialized subtasks
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential execution coordinator. The children
// become sub-agents of the coordinator and run in the order given.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	s := &SequentialAgent{
		BaseAgent: NewBaseAgent(name, core.AgentKindWorkflow),
	}
	_ = s.SetSubAgents(children...)

	return s
}

// Run implements core.Agent. It executes each child agent in order with the
// shared context; errors stop further processing immediately.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	for _, child := range s.SubAgents() {
		if err := runCtx.Err(); err != nil {
			return err
		}

		runCtx.LogDebug("agent.sequential.step", "coordinator", s.Name(), "child", child.Name())

		if err := child.Run(runCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
