package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/model"
)

func TestTransferToolInjector_Injection(t *testing.T) {
	agent := newStubAgent("root", nil)
	agent.transfer = true
	agent.targets = []TransferTarget{
		{Name: "billing", Description: "Handles invoices"},
		{Name: "support", Description: "Handles tickets"},
	}
	runCtx, _ := newFlowRunContext(t, 10)

	inj := NewTransferToolInjector()
	req := &model.Request{}
	require.NoError(t, inj.ProcessRequest(runCtx, req, agent))

	require.Len(t, req.Tools, 1)
	def := req.Tools[0].Function
	assert.Equal(t, "transfer_to_agent", def.Name)
	assert.Contains(t, def.Description, "billing")
	assert.Contains(t, def.Description, "Handles tickets")

	props := def.Parameters["properties"].(map[string]any)
	agentProp := props["agent"].(map[string]any)
	assert.Equal(t, []string{"billing", "support"}, agentProp["enum"])

	// A second pass must not duplicate the definition.
	require.NoError(t, inj.ProcessRequest(runCtx, req, agent))
	count := 0
	for _, td := range req.Tools {
		if td.Function.Name == "transfer_to_agent" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTransferToolInjector_SkipsWhenDisabled(t *testing.T) {
	runCtx, _ := newFlowRunContext(t, 10)
	inj := NewTransferToolInjector()

	disabled := newStubAgent("root", nil)
	disabled.targets = []TransferTarget{{Name: "child"}}
	req := &model.Request{}
	require.NoError(t, inj.ProcessRequest(runCtx, req, disabled))
	assert.Empty(t, req.Tools)

	noTargets := newStubAgent("root", nil)
	noTargets.transfer = true
	req = &model.Request{}
	require.NoError(t, inj.ProcessRequest(runCtx, req, noTargets))
	assert.Empty(t, req.Tools)
}
