package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/plugin"
)

// BaseFlow drives the bounded model loop for one agent: assemble request,
// call the model through the plugin/callback chains, run the function
// pipeline when the response carries calls, repeat until a final response,
// a transfer, or the model-call limit.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	plugins           *plugin.Manager
	executor          FunctionExecutor
}

// NewBaseFlow creates a flow for the given agent. The plugin manager may be
// nil when no process-wide chain is configured.
func NewBaseFlow(agent FlowAgent, plugins *plugin.Manager) *BaseFlow {
	return &BaseFlow{
		agent:   agent,
		plugins: plugins,
		executor: NewParallelFunctionExecutor(FunctionExecutorConfig{
			Plugins: plugins,
		}),
	}
}

// AddRequestProcessor appends a request processor; registration order defines
// execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// SetFunctionExecutor replaces the default executor.
func (f *BaseFlow) SetFunctionExecutor(executor FunctionExecutor) {
	f.executor = executor
}

// Run implements Flow. Each iteration consumes one model call from the
// limiter; breaching the limit surfaces core.ErrMaxModelCalls.
func (f *BaseFlow) Run(runCtx *core.RunContext) error {
	for {
		if err := runCtx.Err(); err != nil {
			return err
		}

		if err := runCtx.Limiter.Increment(); err != nil {
			return err
		}

		last, err := f.step(runCtx)
		if err != nil {
			return err
		}

		if last == nil {
			// Terminal short-circuit already emitted.
			return nil
		}

		if target := last.Actions.TransferToAgent; target != nil {
			runCtx.LogInfo("agent.transfer", "from", f.agent.GetName(), "to", *target)
			return f.agent.TransferToAgent(runCtx, *target)
		}

		if len(last.GetFunctionResponses()) > 0 && !last.IsFinalResponse() {
			// Tool results need another model turn.
			continue
		}

		if last.IsFinalResponse() {
			return nil
		}
	}
}

// step performs one model call plus, when the response requests tools, one
// function pipeline pass. It returns the last emitted non-partial event; nil
// signals the turn ended inside the step.
func (f *BaseFlow) step(runCtx *core.RunContext) (*core.Event, error) {
	// Refresh the session snapshot so processors see the persisted tool
	// responses from the previous iteration.
	if runCtx.SessionStore != nil {
		if err := runCtx.RefreshSession(); err != nil {
			runCtx.LogWarn("agent.session.refresh.failed", "agent", f.agent.GetName(), "error", err.Error())
		}
	}

	req := &model.Request{Stream: f.agent.IsStreamingEnabled()}
	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	cc := core.NewCallbackContext(runCtx)
	callbacks := f.agent.GetCallbacks()

	resp, err := f.runBeforeModel(cc, req, callbacks)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		resp, err = f.generate(runCtx, req)
		if err != nil {
			resp, err = f.recoverModelError(cc, req, callbacks, err)
			if err != nil {
				return nil, err
			}
		}
	}

	if replacement, err := f.runAfterModel(cc, resp, callbacks); err != nil {
		return nil, err
	} else if replacement != nil {
		resp = replacement
	}

	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
	content := resp.Content
	ev.Content = &content
	cc.InternalApplyActions(&ev)

	fnCalls := ev.GetFunctionCalls()
	if len(fnCalls) == 0 {
		complete := true
		ev.TurnComplete = &complete
		f.stageOutputKey(runCtx, &content)
	}

	if err := runCtx.EmitEvent(ev); err != nil {
		return nil, err
	}
	if err := runCtx.WaitForResume(); err != nil {
		return nil, err
	}

	if len(fnCalls) == 0 {
		return &ev, nil
	}

	result, err := f.executor.Execute(runCtx, f.agent, fnCalls)
	if err != nil {
		return nil, err
	}

	if err := runCtx.EmitEvent(result.Event); err != nil {
		return nil, err
	}
	if err := runCtx.WaitForResume(); err != nil {
		return nil, err
	}

	if result.FinalOutput != nil {
		return nil, f.emitFinalOutput(runCtx, *result.FinalOutput)
	}

	return &result.Event, nil
}

// generate runs the model call, relaying partial chunks when streaming is
// enabled and returning the final response.
func (f *BaseFlow) generate(runCtx *core.RunContext, req *model.Request) (*model.Response, error) {
	ctx := runCtx.Context
	if timeout := f.agent.GetModelTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	respCh, errCh := f.agent.GetLLM().Generate(ctx, *req)

	var final *model.Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if f.agent.IsStreamingEnabled() {
					if err := f.emitPartial(runCtx, resp); err != nil {
						return nil, err
					}
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if final == nil {
		return nil, fmt.Errorf("model returned no final response")
	}

	return final, nil
}

// emitPartial relays a streaming chunk. Partial events bypass the state
// delta merge and the resume handshake since they are never persisted.
func (f *BaseFlow) emitPartial(runCtx *core.RunContext, resp model.Response) error {
	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
	partial := true
	ev.Partial = &partial
	content := resp.Content
	ev.Content = &content
	if runCtx.Branch != "" {
		b := runCtx.Branch
		ev.Branch = &b
	}

	select {
	case runCtx.Emit <- ev:
		return nil
	case <-runCtx.Done():
		return runCtx.Err()
	}
}

// emitFinalOutput synthesizes the turn-ending event after an output-setter
// tool ran, skipping the summarization round-trip.
func (f *BaseFlow) emitFinalOutput(runCtx *core.RunContext, output string) error {
	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
	content := core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: output}}}
	ev.Content = &content
	skip := true
	ev.Actions.SkipSummarization = &skip
	complete := true
	ev.TurnComplete = &complete
	f.stageOutputKey(runCtx, &content)

	if err := runCtx.EmitEvent(ev); err != nil {
		return err
	}

	return runCtx.WaitForResume()
}

// stageOutputKey saves the final response text into session state when the
// agent declares an output key. The delta rides on the next emitted event.
func (f *BaseFlow) stageOutputKey(runCtx *core.RunContext, content *core.Content) {
	key := f.agent.GetOutputKey()
	if key == "" || content == nil {
		return
	}

	var text string
	for _, p := range content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}

	if text != "" {
		runCtx.SetState(key, text)
	}
}

func (f *BaseFlow) runBeforeModel(cc *core.CallbackContext, req *model.Request, callbacks *Callbacks) (*model.Response, error) {
	if f.plugins != nil {
		resp, err := f.plugins.RunBeforeModel(cc, req)
		if err != nil || resp != nil {
			return resp, err
		}
	}

	return callbacks.runBeforeModel(cc, req)
}

func (f *BaseFlow) runAfterModel(cc *core.CallbackContext, resp *model.Response, callbacks *Callbacks) (*model.Response, error) {
	if f.plugins != nil {
		replacement, err := f.plugins.RunAfterModel(cc, resp)
		if err != nil || replacement != nil {
			return replacement, err
		}
	}

	return callbacks.runAfterModel(cc, resp)
}

// recoverModelError routes a failed model call through the on-model-error
// chains; the original error propagates when nothing recovers.
func (f *BaseFlow) recoverModelError(cc *core.CallbackContext, req *model.Request, callbacks *Callbacks, modelErr error) (*model.Response, error) {
	if f.plugins != nil {
		resp, err := f.plugins.RunOnModelError(cc, req, modelErr)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}

	resp, err := callbacks.runOnModelError(cc, req, modelErr)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp, nil
	}

	return nil, fmt.Errorf("model call failed: %w", modelErr)
}
