package flow

import (
	"fmt"

	"github.com/hupe1980/agentloop/core"
	internalutil "github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/model"
)

// InstructionsProcessor resolves the agent's system prompt and renders state
// template placeholders against the session snapshot.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest adds system instructions to the model request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(instructions))

	if runCtx.Session != nil && runCtx.Session.State != nil {
		var tplErr error
		req.Instructions, tplErr = internalutil.RenderTemplate(instructions, runCtx.Session.State)
		if tplErr != nil {
			return fmt.Errorf("failed to render template: %w", tplErr)
		}
	} else {
		req.Instructions = instructions
	}

	return nil
}

// ContentsProcessor assembles the conversation window sent to the model.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest adds the system prompt and windowed history to the request.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	contents := []core.Content{{
		Role:  "system",
		Parts: []core.Part{core.TextPart{Text: req.Instructions}},
	}}

	if runCtx.Session != nil {
		events := runCtx.Session.GetConversationHistory()
		if max := agent.MaxHistoryMessages(); max > 0 && len(events) > max {
			events = events[len(events)-max:]
		}

		for _, ev := range events {
			if ev.Content != nil && len(ev.Content.Parts) > 0 {
				contents = append(contents, *ev.Content)
			}
		}
	}

	req.Contents = contents
	return nil
}

// ToolDefinitionsProcessor exposes the agent's registered tools to the model.
type ToolDefinitionsProcessor struct{}

// NewToolDefinitionsProcessor creates a new tool definitions processor.
func NewToolDefinitionsProcessor() *ToolDefinitionsProcessor { return &ToolDefinitionsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolDefinitionsProcessor) Name() string { return "tool_definitions" }

// ProcessRequest appends a function definition per registered tool.
func (p *ToolDefinitionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	registry := agent.GetTools()
	if registry == nil || registry.Len() == 0 {
		return nil
	}

	for _, reg := range registry.All() {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        reg.Tool.Name(),
				Description: reg.Tool.Description(),
				Parameters:  reg.Tool.Parameters(),
			},
		})
	}

	return nil
}
