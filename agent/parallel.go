package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentloop/core"
)

// ParallelAgent coordinates the concurrent execution of multiple child agents.
//
// Each child receives a branch-isolated context so state deltas staged by one
// branch never leak into a sibling's buffers, while all branches share the
// session snapshot and the emit channel. Branch labels follow the pattern
// "Coordinator.Child" and nest for deeper hierarchies.
//
// ParallelAgent is ideal for:
//   - Independent task processing
//   - Data gathering from multiple sources
//   - I/O bound work that benefits from concurrency
type ParallelAgent struct {
	BaseAgent
	timeout time.Duration // Maximum execution time for all children; zero means no limit
}

// NewParallelAgent creates a parallel execution coordinator. The children
// become sub-agents of the coordinator and all run concurrently.
func NewParallelAgent(name string, timeout time.Duration, children ...core.Agent) *ParallelAgent {
	p := &ParallelAgent{
		BaseAgent: NewBaseAgent(name, core.AgentKindWorkflow),
		timeout:   timeout,
	}
	_ = p.SetSubAgents(children...)

	return p
}

// branchContextFor derives an isolated context for one child with fresh delta
// buffers and a hierarchical branch label.
func (p *ParallelAgent) branchContextFor(runCtx *core.RunContext, ctx context.Context, child core.Agent) *core.RunContext {
	branchCtx := runCtx.WithBranch(buildBranchPath(runCtx.Branch, fmt.Sprintf("%s.%s", p.Name(), child.Name())))
	branchCtx.Context = ctx
	branchCtx.StateDelta = map[string]any{}
	branchCtx.Artifacts = map[string]int{}

	return branchCtx
}

// Run implements core.Agent. All children run concurrently; the first error
// cancels the remaining branches and is returned after they finish.
func (p *ParallelAgent) Run(runCtx *core.RunContext) error {
	ctx := runCtx.Context
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, child := range p.SubAgents() {
		branchCtx := p.branchContextFor(runCtx, gctx, child)

		runCtx.LogDebug("agent.parallel.branch", "coordinator", p.Name(), "child", child.Name(), "branch", branchCtx.Branch)

		g.Go(func() error {
			if err := child.Run(branchCtx); err != nil {
				return fmt.Errorf("parallel execution failed for agent %s: %w", child.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}
