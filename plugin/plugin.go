// Package plugin implements process-wide extension chains that observe and
// optionally intercept model and tool calls across every agent managed by a
// runner. Plugins run before per-agent callbacks at each extension point and
// follow first-non-empty-wins semantics: the first plugin returning a non-nil
// value settles the chain and suppresses both the remaining plugins and the
// agent's own callbacks.
package plugin

import (
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Plugin defines the extension hooks available around model and tool calls.
// Implementations embed Base and override the hooks they care about.
//
// Hook semantics:
//   - Before* hooks may return a replacement value; a non-nil return skips the
//     real call and the remaining chain.
//   - After* hooks may replace the produced value; nil leaves it untouched.
//   - On*Error hooks may recover from a failure by returning a fallback
//     value; nil lets the original error propagate.
//   - Any hook returning an error aborts the chain with that error.
type Plugin interface {
	// Name returns the unique plugin identifier used for registration and
	// diagnostics.
	Name() string

	// BeforeModel runs before a model request is sent.
	BeforeModel(cc *core.CallbackContext, req *model.Request) (*model.Response, error)

	// AfterModel runs after a model response is received.
	AfterModel(cc *core.CallbackContext, resp *model.Response) (*model.Response, error)

	// BeforeTool runs before a tool is executed. A non-nil result map is used
	// as the tool result verbatim and execution is skipped.
	BeforeTool(tc *core.ToolContext, toolName string, args map[string]any) (map[string]any, error)

	// AfterTool runs after a tool produced a result. A non-nil return replaces
	// the result.
	AfterTool(tc *core.ToolContext, toolName string, args map[string]any, result any) (map[string]any, error)

	// OnModelError runs when a model call failed. A non-nil response recovers
	// from the failure.
	OnModelError(cc *core.CallbackContext, req *model.Request, modelErr error) (*model.Response, error)

	// OnToolError runs when a tool call failed. A non-nil result map recovers
	// from the failure.
	OnToolError(tc *core.ToolContext, toolName string, args map[string]any, toolErr error) (map[string]any, error)
}

// Base provides no-op implementations for every hook except Name. Embed it to
// implement only the hooks a plugin needs.
type Base struct{}

// BeforeModel implements Plugin.
func (Base) BeforeModel(*core.CallbackContext, *model.Request) (*model.Response, error) {
	return nil, nil
}

// AfterModel implements Plugin.
func (Base) AfterModel(*core.CallbackContext, *model.Response) (*model.Response, error) {
	return nil, nil
}

// BeforeTool implements Plugin.
func (Base) BeforeTool(*core.ToolContext, string, map[string]any) (map[string]any, error) {
	return nil, nil
}

// AfterTool implements Plugin.
func (Base) AfterTool(*core.ToolContext, string, map[string]any, any) (map[string]any, error) {
	return nil, nil
}

// OnModelError implements Plugin.
func (Base) OnModelError(*core.CallbackContext, *model.Request, error) (*model.Response, error) {
	return nil, nil
}

// OnToolError implements Plugin.
func (Base) OnToolError(*core.ToolContext, string, map[string]any, error) (map[string]any, error) {
	return nil, nil
}
