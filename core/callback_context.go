package core

import (
	"context"
	"maps"

	"github.com/hupe1980/agentloop/logging"
)

// CallbackContext is the surface handed to model-scoped callbacks and plugins.
// Like ToolContext it stages EventActions instead of mutating the session
// directly; staged actions are merged into the event that carries the model
// response.
type CallbackContext struct {
	runCtx       *RunContext
	eventActions EventActions

	*loggerAdapter
}

// NewCallbackContext constructs a callback context bound to a run context.
func NewCallbackContext(runCtx *RunContext) *CallbackContext {
	return &CallbackContext{
		runCtx:        runCtx,
		eventActions:  EventActions{},
		loggerAdapter: newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the ambient cancellation context.
func (cc *CallbackContext) Context() context.Context { return cc.runCtx.Context }

// SessionID returns the session identifier.
func (cc *CallbackContext) SessionID() string { return cc.runCtx.SessionID }

// RunID returns the run identifier.
func (cc *CallbackContext) RunID() string { return cc.runCtx.RunID }

// AgentName returns the executing agent's name.
func (cc *CallbackContext) AgentName() string { return cc.runCtx.Agent.Name }

// Logger returns the logger for this invocation.
func (cc *CallbackContext) Logger() logging.Logger { return cc.loggerAdapter.Logger() }

// GetState retrieves staged or persisted session state.
func (cc *CallbackContext) GetState(k string) (any, bool) { return cc.runCtx.GetState(k) }

// SetState records a state mutation both on the run context and in the local
// EventActions delta for emission.
func (cc *CallbackContext) SetState(k string, v any) {
	cc.runCtx.SetState(k, v)
	if cc.eventActions.StateDelta == nil {
		cc.eventActions.StateDelta = map[string]any{}
	}
	cc.eventActions.StateDelta[k] = v
}

// Actions returns the accumulated event actions.
func (cc *CallbackContext) Actions() *EventActions { return &cc.eventActions }

// GetSessionHistory returns conversation history (filtered) for context.
func (cc *CallbackContext) GetSessionHistory() []Event {
	if cc.runCtx.Session == nil {
		return nil
	}
	return cc.runCtx.Session.GetConversationHistory()
}

// InternalRunContext returns the internal run context.
func (cc *CallbackContext) InternalRunContext() *RunContext { return cc.runCtx }

// InternalApplyActions merges accumulated EventActions into the provided event.
// (Used internally by flows when finalizing the model response event.)
func (cc *CallbackContext) InternalApplyActions(ev *Event) {
	if len(cc.eventActions.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, cc.eventActions.StateDelta)
	}

	if cc.eventActions.SkipSummarization != nil {
		ev.Actions.SkipSummarization = cc.eventActions.SkipSummarization
	}

	if cc.eventActions.TransferToAgent != nil {
		ev.Actions.TransferToAgent = cc.eventActions.TransferToAgent
	}

	if cc.eventActions.Escalate != nil {
		ev.Actions.Escalate = cc.eventActions.Escalate
	}
}
