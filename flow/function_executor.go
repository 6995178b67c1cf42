package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/plugin"
	"github.com/hupe1980/agentloop/tool"
)

// PipelineResult is the outcome of one function-calling pipeline pass.
type PipelineResult struct {
	// Event carries every call result as sibling parts in request order,
	// plus the merged event actions from all tool contexts.
	Event core.Event

	// FinalOutput is non-nil when an output-setter tool ran; the flow
	// short-circuits the remaining model round-trip with this text.
	FinalOutput *string
}

// FunctionExecutor runs a batch of function calls emitted by one model
// response and produces exactly one merged result event. Implementations
// must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally into per-call errors)
//   - Produce exactly one FunctionResponse per incoming FunctionCall
//   - Preserve request order in the merged event regardless of completion order
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agent FlowAgent, fnCalls []core.FunctionCall) (*PipelineResult, error)
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	// Plugins is the process-wide chain evaluated before agent callbacks
	// around every call. Nil disables plugin evaluation.
	Plugins *plugin.Manager

	// ExtraTools resolves call names not present in the agent registry,
	// e.g. the injected transfer_to_agent builtin.
	ExtraTools map[string]tool.Registration

	// MaxParallel caps concurrent tool executions; 0 or less means one
	// goroutine per call.
	MaxParallel int
}

type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs the default executor.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	agent FlowAgent,
	fnCalls []core.FunctionCall,
) (*PipelineResult, error) {
	n := len(fnCalls)
	if n == 0 {
		return nil, fmt.Errorf("no function calls to execute")
	}

	responses := make([]core.FunctionResponse, n)
	toolCtxs := make([]*core.ToolContext, n)
	kinds := make([]tool.Kind, n)

	var (
		mu          sync.Mutex
		finalOutput *string
	)

	g, gctx := errgroup.WithContext(runCtx.Context)
	if e.cfg.MaxParallel > 0 {
		g.SetLimit(e.cfg.MaxParallel)
	}

	batchStart := time.Now()
	for i, fc := range fnCalls {
		g.Go(func() error {
			toolCtx := core.NewToolContext(runCtx, fc.ID)
			toolCtxs[i] = toolCtx

			fr, kind, output, err := e.executeCall(gctx, runCtx, agent, toolCtx, fc)
			if err != nil {
				return err
			}

			responses[i] = fr
			kinds[i] = kind

			if output != nil {
				mu.Lock()
				finalOutput = output
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ev := core.NewEvent(runCtx.RunID, agent.GetName())
	parts := make([]core.Part, 0, n)
	for i := range responses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: responses[i]})
	}
	ev.Content = &core.Content{Role: "tool", Parts: parts}

	// Merge staged actions from every call. Calls are expected to target
	// disjoint state keys; overlapping keys resolve last-writer-wins.
	for _, toolCtx := range toolCtxs {
		if toolCtx != nil {
			toolCtx.InternalApplyActions(&ev)
		}
	}

	for i, fc := range fnCalls {
		if kinds[i] == tool.KindLongRunning {
			ev.LongRunningToolIDs = append(ev.LongRunningToolIDs, fc.ID)
		}
	}

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agent.GetName(),
		"count", n,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return &PipelineResult{Event: ev, FinalOutput: finalOutput}, nil
}

// executeCall runs one function call through the before/after chains and the
// tool itself. A non-nil error is fatal for the whole batch; per-call
// failures that should not abort the turn are encoded in the response.
func (e *parallelFunctionExecutor) executeCall(
	ctx context.Context,
	runCtx *core.RunContext,
	agent FlowAgent,
	toolCtx *core.ToolContext,
	fc core.FunctionCall,
) (core.FunctionResponse, tool.Kind, *string, error) {
	callbacks := agent.GetCallbacks()

	argMap := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &argMap); err != nil {
			return errorResponse(fc, fmt.Sprintf("invalid arguments: %v", err)), tool.KindFunction, nil, nil
		}
	}

	reg, known := e.resolveTool(agent, fc.Name)
	if !known {
		runCtx.LogWarn("agent.function.unknown", "agent", agent.GetName(), "function", fc.Name)
		return errorResponse(fc, fmt.Sprintf("tool %q not found", fc.Name)), tool.KindFunction, nil, nil
	}

	// Before chains: plugins first, then agent callbacks. The first non-nil
	// result is used verbatim and execution is skipped.
	var result any
	settled, err := e.runBeforeTool(toolCtx, callbacks, fc.Name, argMap)
	if err != nil {
		return core.FunctionResponse{}, reg.Kind, nil, err
	}
	if settled != nil {
		result = settled
		runCtx.LogDebug("agent.function.intercepted", "agent", agent.GetName(), "function", fc.Name)
	} else {
		start := time.Now()
		raw, callErr := e.invoke(ctx, runCtx, agent, reg, toolCtx, fc, argMap)
		runCtx.LogInfo(
			"agent.function.executed",
			"agent", agent.GetName(),
			"function", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", callErr != nil,
		)

		if callErr != nil {
			recovered, recErr := e.runOnToolError(toolCtx, callbacks, fc.Name, argMap, callErr)
			if recErr != nil {
				return core.FunctionResponse{}, reg.Kind, nil, recErr
			}
			if recovered == nil {
				return core.FunctionResponse{}, reg.Kind, nil, fmt.Errorf("tool %q failed: %w", fc.Name, callErr)
			}
			raw = recovered
		}
		result = raw
	}

	// After chains may replace the result.
	replacement, err := e.runAfterTool(toolCtx, callbacks, fc.Name, argMap, result)
	if err != nil {
		return core.FunctionResponse{}, reg.Kind, nil, err
	}
	if replacement != nil {
		result = replacement
	}

	// A nil result with no error is normalized to an empty object so the
	// model always receives a payload.
	if result == nil {
		result = map[string]any{}
	}

	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}

	if setter, ok := reg.Tool.(tool.OutputSetter); ok && setter.SetsModelOutput() {
		output := extractOutput(result)
		return fr, reg.Kind, &output, nil
	}

	return fr, reg.Kind, nil, nil
}

// invoke dispatches on the registered kind with panic recovery and the
// per-call timeout. A timed-out tool keeps running in its goroutine; only
// its result is discarded.
func (e *parallelFunctionExecutor) invoke(
	ctx context.Context,
	runCtx *core.RunContext,
	agent FlowAgent,
	reg tool.Registration,
	toolCtx *core.ToolContext,
	fc core.FunctionCall,
	args map[string]any,
) (any, error) {
	callCtx := ctx
	if timeout := agent.GetToolTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type callResult struct {
		val any
		err error
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				runCtx.LogError("agent.function.panic", "agent", agent.GetName(), "function", fc.Name, "recover", r, "stack", string(debug.Stack()))
				done <- callResult{err: fmt.Errorf("tool %q panicked: %v", fc.Name, r)}
			}
		}()

		switch reg.Kind {
		case tool.KindStreaming:
			streamer := reg.Tool.(tool.Streamer)
			val, err := streamer.Stream(toolCtx, args, func(chunk any) error {
				return e.emitChunk(callCtx, runCtx, agent, fc, chunk)
			})
			done <- callResult{val: val, err: err}
		default:
			val, err := reg.Tool.Call(toolCtx, args)
			done <- callResult{val: val, err: err}
		}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-callCtx.Done():
		return nil, fmt.Errorf("tool %q: %w", fc.Name, callCtx.Err())
	}
}

// emitChunk relays a streaming tool chunk as a partial event. Partial events
// are never persisted, so no resume handshake happens here.
func (e *parallelFunctionExecutor) emitChunk(ctx context.Context, runCtx *core.RunContext, agent FlowAgent, fc core.FunctionCall, chunk any) error {
	ev := core.NewEvent(runCtx.RunID, agent.GetName())
	partial := true
	ev.Partial = &partial
	ev.Content = &core.Content{
		Role: "tool",
		Parts: []core.Part{core.DataPart{Data: map[string]any{
			"tool":             fc.Name,
			"function_call_id": fc.ID,
			"chunk":            chunk,
		}}},
	}
	if runCtx.Branch != "" {
		b := runCtx.Branch
		ev.Branch = &b
	}

	select {
	case runCtx.Emit <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *parallelFunctionExecutor) resolveTool(agent FlowAgent, name string) (tool.Registration, bool) {
	if registry := agent.GetTools(); registry != nil {
		if reg, ok := registry.Get(name); ok {
			return reg, true
		}
	}

	reg, ok := e.cfg.ExtraTools[name]
	return reg, ok
}

func (e *parallelFunctionExecutor) runBeforeTool(toolCtx *core.ToolContext, callbacks *Callbacks, name string, args map[string]any) (map[string]any, error) {
	if e.cfg.Plugins != nil {
		result, err := e.cfg.Plugins.RunBeforeTool(toolCtx, name, args)
		if err != nil || result != nil {
			return result, err
		}
	}

	return callbacks.runBeforeTool(toolCtx, name, args)
}

func (e *parallelFunctionExecutor) runAfterTool(toolCtx *core.ToolContext, callbacks *Callbacks, name string, args map[string]any, result any) (map[string]any, error) {
	if e.cfg.Plugins != nil {
		replacement, err := e.cfg.Plugins.RunAfterTool(toolCtx, name, args, result)
		if err != nil || replacement != nil {
			return replacement, err
		}
	}

	return callbacks.runAfterTool(toolCtx, name, args, result)
}

func (e *parallelFunctionExecutor) runOnToolError(toolCtx *core.ToolContext, callbacks *Callbacks, name string, args map[string]any, toolErr error) (map[string]any, error) {
	if e.cfg.Plugins != nil {
		recovered, err := e.cfg.Plugins.RunOnToolError(toolCtx, name, args, toolErr)
		if err != nil || recovered != nil {
			return recovered, err
		}
	}

	return callbacks.runOnToolError(toolCtx, name, args, toolErr)
}

// errorResponse synthesizes a per-call error result so the batch continues.
func errorResponse(fc core.FunctionCall, msg string) core.FunctionResponse {
	return core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: msg}
}

// extractOutput pulls the response text from an output-setter tool result.
func extractOutput(result any) string {
	if m, ok := result.(map[string]any); ok {
		if s, ok := m["response"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", result)
}
