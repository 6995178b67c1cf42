package agent

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

func TestNewSequentialAgent(t *testing.T) {
	c1 := newTestChildAgent("Child1", nil)
	c2 := newTestChildAgent("Child2", nil)

	s := NewSequentialAgent("Pipeline", c1, c2)

	assert.Equal(t, "Pipeline", s.Name())
	assert.Equal(t, core.AgentKindWorkflow, s.Kind())
	require.Len(t, s.SubAgents(), 2)
	assert.Equal(t, "Pipeline", c1.Parent().Name())
}

func TestSequentialAgent_Run_Order(t *testing.T) {
	var mu sync.Mutex
	var order []string

	mkChild := func(name string) *testChildAgent {
		return newTestChildAgent(name, func(*core.RunContext) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	s := NewSequentialAgent("Pipeline", mkChild("Child1"), mkChild("Child2"), mkChild("Child3"))
	runCtx := newTestRunContext(t, "Pipeline")

	require.NoError(t, s.Run(runCtx))
	assert.Equal(t, []string{"Child1", "Child2", "Child3"}, order)
}

func TestSequentialAgent_Run_StopsOnError(t *testing.T) {
	sentinel := errors.New("boom")

	c1 := newTestChildAgent("Child1", func(*core.RunContext) error { return sentinel })
	c2 := newTestChildAgent("Child2", nil)

	s := NewSequentialAgent("Pipeline", c1, c2)

	err := s.Run(newTestRunContext(t, "Pipeline"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "Child1")
	assert.Equal(t, 0, c2.runCount(), "later children must not run after a failure")
}

func TestSequentialAgent_Run_NoChildren(t *testing.T) {
	s := NewSequentialAgent("Pipeline")
	assert.NoError(t, s.Run(newTestRunContext(t, "Pipeline")))
}

func TestSequentialAgent_ContextPropagation(t *testing.T) {
	c1 := newTestChildAgent("Child1", nil)
	c2 := newTestChildAgent("Child2", nil)

	s := NewSequentialAgent("Pipeline", c1, c2)
	runCtx := newTestRunContext(t, "Pipeline")

	require.NoError(t, s.Run(runCtx))

	// Children share the exact same context so state accumulates between steps.
	assert.Same(t, runCtx, c1.receivedCtx())
	assert.Same(t, runCtx, c2.receivedCtx())
}
