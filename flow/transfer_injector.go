package flow

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// TransferToolInjector exposes the transfer_to_agent function to the model
// when the agent may delegate and has reachable targets. The definition lists
// the candidate agents so the model can pick one by name.
type TransferToolInjector struct {
	transferTool tool.Tool
}

// NewTransferToolInjector creates a new transfer tool injector.
func NewTransferToolInjector() *TransferToolInjector {
	return &TransferToolInjector{transferTool: tool.NewTransferToAgentTool()}
}

// Name returns the processor's identifier.
func (p *TransferToolInjector) Name() string { return "transfer_tool_injector" }

// ProcessRequest injects the transfer_to_agent definition once per request.
func (p *TransferToolInjector) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	if !agent.IsTransferEnabled() {
		return nil
	}

	targets := agent.GetTransferTargets()
	if len(targets) == 0 {
		return nil
	}

	for _, td := range req.Tools {
		if td.Function.Name == p.transferTool.Name() {
			return nil
		}
	}

	names := make([]string, 0, len(targets))
	lines := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{
				"type":        "string",
				"enum":        names,
				"description": "Target agent name",
			},
		},
		"required": []string{"agent"},
	}

	req.Tools = append(req.Tools, model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name: p.transferTool.Name(),
			Description: p.transferTool.Description() + "\nAvailable agents:\n" +
				strings.Join(lines, "\n"),
			Parameters: params,
		},
	})

	return nil
}

// Tool returns the backing builtin used to resolve injected calls.
func (p *TransferToolInjector) Tool() tool.Tool { return p.transferTool }
