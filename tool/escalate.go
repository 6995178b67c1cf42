package tool

import "github.com/hupe1980/agentloop/core"

// escalateTool signals that the current agent cannot make further progress and
// control should bubble up (e.g. out of a loop workflow or to a human).
type escalateTool struct{}

// NewEscalateTool constructs the escalate tool instance.
func NewEscalateTool() Tool { return &escalateTool{} }

func (t *escalateTool) Name() string { return "escalate" }

func (t *escalateTool) Description() string {
	return "Escalate out of the current workflow when no further progress can be made. Optionally include a reason."
}

func (t *escalateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{"type": "string", "description": "Why escalation is needed"},
		},
	}
}

func (t *escalateTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	tc.Escalate()

	result := map[string]any{"escalated": true}
	if reason, ok := args["reason"].(string); ok && reason != "" {
		result["reason"] = reason
	}

	return result, nil
}
