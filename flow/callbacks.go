package flow

import (
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Per-agent callbacks mirror the plugin hooks but are scoped to a single
// agent. At every extension point the process-wide plugin chain is evaluated
// first; if no plugin settled the chain, the agent's callbacks run in
// declaration order with the same first-non-empty-wins rule.

// BeforeModelCallback may return a replacement response, skipping the model.
type BeforeModelCallback func(cc *core.CallbackContext, req *model.Request) (*model.Response, error)

// AfterModelCallback may replace the model response.
type AfterModelCallback func(cc *core.CallbackContext, resp *model.Response) (*model.Response, error)

// BeforeToolCallback may return a result map used verbatim, skipping the tool.
type BeforeToolCallback func(tc *core.ToolContext, toolName string, args map[string]any) (map[string]any, error)

// AfterToolCallback may replace the tool result.
type AfterToolCallback func(tc *core.ToolContext, toolName string, args map[string]any, result any) (map[string]any, error)

// OnModelErrorCallback may recover from a failed model call.
type OnModelErrorCallback func(cc *core.CallbackContext, req *model.Request, modelErr error) (*model.Response, error)

// OnToolErrorCallback may recover from a failed tool call.
type OnToolErrorCallback func(tc *core.ToolContext, toolName string, args map[string]any, toolErr error) (map[string]any, error)

// Callbacks bundles an agent's callback lists. A nil Callbacks behaves like
// empty lists at every extension point.
type Callbacks struct {
	BeforeModel  []BeforeModelCallback
	AfterModel   []AfterModelCallback
	BeforeTool   []BeforeToolCallback
	AfterTool    []AfterToolCallback
	OnModelError []OnModelErrorCallback
	OnToolError  []OnToolErrorCallback
}

func (c *Callbacks) runBeforeModel(cc *core.CallbackContext, req *model.Request) (*model.Response, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.BeforeModel {
		resp, err := cb(cc, req)
		if err != nil || resp != nil {
			return resp, err
		}
	}
	return nil, nil
}

func (c *Callbacks) runAfterModel(cc *core.CallbackContext, resp *model.Response) (*model.Response, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.AfterModel {
		replacement, err := cb(cc, resp)
		if err != nil || replacement != nil {
			return replacement, err
		}
	}
	return nil, nil
}

func (c *Callbacks) runBeforeTool(tc *core.ToolContext, toolName string, args map[string]any) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.BeforeTool {
		result, err := cb(tc, toolName, args)
		if err != nil || result != nil {
			return result, err
		}
	}
	return nil, nil
}

func (c *Callbacks) runAfterTool(tc *core.ToolContext, toolName string, args map[string]any, result any) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.AfterTool {
		replacement, err := cb(tc, toolName, args, result)
		if err != nil || replacement != nil {
			return replacement, err
		}
	}
	return nil, nil
}

func (c *Callbacks) runOnModelError(cc *core.CallbackContext, req *model.Request, modelErr error) (*model.Response, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.OnModelError {
		resp, err := cb(cc, req, modelErr)
		if err != nil || resp != nil {
			return resp, err
		}
	}
	return nil, nil
}

func (c *Callbacks) runOnToolError(tc *core.ToolContext, toolName string, args map[string]any, toolErr error) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.OnToolError {
		result, err := cb(tc, toolName, args, toolErr)
		if err != nil || result != nil {
			return result, err
		}
	}
	return nil, nil
}
