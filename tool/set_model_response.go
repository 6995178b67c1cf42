package tool

import (
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// setModelResponseTool lets an agent designate its final answer directly from
// a tool call. The function executor treats the result as the turn's final
// model response and skips the remaining model round-trip.
type setModelResponseTool struct{}

// NewSetModelResponseTool constructs the set_model_response tool instance.
func NewSetModelResponseTool() Tool { return &setModelResponseTool{} }

func (t *setModelResponseTool) Name() string { return "set_model_response" }

func (t *setModelResponseTool) Description() string {
	return "Set the final response for this turn directly. Use when the answer is fully determined and no further reasoning is needed."
}

func (t *setModelResponseTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{"type": "string", "description": "Final response text"},
		},
		"required": []string{"response"},
	}
}

// SetsModelOutput implements OutputSetter.
func (t *setModelResponseTool) SetsModelOutput() bool { return true }

func (t *setModelResponseTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["response"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'response'")
	}

	response, ok := raw.(string)
	if !ok || response == "" {
		return nil, fmt.Errorf("field 'response' must be non-empty string")
	}

	tc.SkipSummarization()

	return map[string]any{"response": response}, nil
}
