package tool

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/util"
)

// StreamingFunctionTool exposes a Go function that produces incremental chunks
// before its final result. The executor routes it through Stream; Call remains
// available and discards intermediate chunks for callers that only want the
// final value.
type StreamingFunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any, emit func(chunk any) error) (any, error)
}

// NewStreamingFunctionTool constructs a StreamingFunctionTool from explicit
// schema and chunk-emitting function.
func NewStreamingFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any, emit func(chunk any) error) (any, error),
) *StreamingFunctionTool {
	return &StreamingFunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name.
func (t *StreamingFunctionTool) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *StreamingFunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *StreamingFunctionTool) Parameters() map[string]any { return t.parameters }

// Stream validates args, then invokes the wrapped function with the provided
// chunk emitter. Implements Streamer.
func (t *StreamingFunctionTool) Stream(toolCtx *core.ToolContext, args map[string]any, emit func(chunk any) error) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.stream.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args, emit)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}

		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	logger.Info("tool.stream.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// Call executes the tool while discarding intermediate chunks.
func (t *StreamingFunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	return t.Stream(toolCtx, args, func(any) error { return nil })
}
