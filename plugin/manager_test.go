package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

type recordingPlugin struct {
	Base

	name string
	log  *[]string

	beforeModelResp *model.Response
	beforeToolResp  map[string]any
	hookErr         error
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) BeforeModel(_ *core.CallbackContext, _ *model.Request) (*model.Response, error) {
	*p.log = append(*p.log, p.name+".before_model")
	return p.beforeModelResp, p.hookErr
}

func (p *recordingPlugin) BeforeTool(_ *core.ToolContext, _ string, _ map[string]any) (map[string]any, error) {
	*p.log = append(*p.log, p.name+".before_tool")
	return p.beforeToolResp, p.hookErr
}

func (p *recordingPlugin) OnToolError(_ *core.ToolContext, _ string, _ map[string]any, _ error) (map[string]any, error) {
	*p.log = append(*p.log, p.name+".on_tool_error")
	return p.beforeToolResp, p.hookErr
}

func newCallbackContextForTest() *core.CallbackContext {
	emit := make(chan core.Event, 8)
	runCtx := core.NewRunContext(
		context.Background(),
		"sess-1", "run-1",
		core.AgentInfo{Name: "Agent1", Type: "llm"},
		core.Content{Role: "user"},
		10,
		emit, nil,
		core.NewSession("sess-1"),
		nil, nil, nil,
		logging.NoOpLogger{},
	)

	return core.NewCallbackContext(runCtx)
}

func newToolContextForTest() *core.ToolContext {
	emit := make(chan core.Event, 8)
	runCtx := core.NewRunContext(
		context.Background(),
		"sess-1", "run-1",
		core.AgentInfo{Name: "Agent1", Type: "llm"},
		core.Content{Role: "user"},
		10,
		emit, nil,
		core.NewSession("sess-1"),
		nil, nil, nil,
		logging.NoOpLogger{},
	)

	return core.NewToolContext(runCtx, "call-1")
}

func TestManagerRegister(t *testing.T) {
	t.Run("unique names required", func(t *testing.T) {
		m := NewManager()
		log := []string{}

		require.NoError(t, m.Register(&recordingPlugin{name: "a", log: &log}))
		err := m.Register(&recordingPlugin{name: "a", log: &log})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
		assert.Equal(t, 1, m.Len())
	})

	t.Run("rejects nil and empty name", func(t *testing.T) {
		m := NewManager()
		assert.Error(t, m.Register(nil))
		log := []string{}
		assert.Error(t, m.Register(&recordingPlugin{name: "", log: &log}))
	})

	t.Run("rejects registration after seal", func(t *testing.T) {
		m := NewManager()
		log := []string{}
		require.NoError(t, m.Register(&recordingPlugin{name: "a", log: &log}))

		m.Seal()

		err := m.Register(&recordingPlugin{name: "b", log: &log})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sealed")
		assert.Equal(t, 1, m.Len())
	})
}

func TestManagerFirstNonNilWins(t *testing.T) {
	t.Run("before model settles and skips rest", func(t *testing.T) {
		m := NewManager()
		log := []string{}
		settled := &model.Response{FinishReason: "stop"}

		require.NoError(t, m.Register(&recordingPlugin{name: "first", log: &log}))
		require.NoError(t, m.Register(&recordingPlugin{name: "second", log: &log, beforeModelResp: settled}))
		require.NoError(t, m.Register(&recordingPlugin{name: "third", log: &log}))

		resp, err := m.RunBeforeModel(newCallbackContextForTest(), &model.Request{})
		require.NoError(t, err)
		assert.Same(t, settled, resp)
		assert.Equal(t, []string{"first.before_model", "second.before_model"}, log)
	})

	t.Run("before tool settles and skips rest", func(t *testing.T) {
		m := NewManager()
		log := []string{}
		settled := map[string]any{"blocked": true}

		require.NoError(t, m.Register(&recordingPlugin{name: "guard", log: &log, beforeToolResp: settled}))
		require.NoError(t, m.Register(&recordingPlugin{name: "audit", log: &log}))

		result, err := m.RunBeforeTool(newToolContextForTest(), "get_weather", map[string]any{"city": "Berlin"})
		require.NoError(t, err)
		assert.Equal(t, settled, result)
		assert.Equal(t, []string{"guard.before_tool"}, log)
	})

	t.Run("all nil leaves chain unsettled", func(t *testing.T) {
		m := NewManager()
		log := []string{}

		require.NoError(t, m.Register(&recordingPlugin{name: "a", log: &log}))
		require.NoError(t, m.Register(&recordingPlugin{name: "b", log: &log}))

		resp, err := m.RunBeforeModel(newCallbackContextForTest(), &model.Request{})
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, []string{"a.before_model", "b.before_model"}, log)
	})
}

func TestManagerHookError(t *testing.T) {
	m := NewManager()
	log := []string{}
	hookErr := errors.New("boom")

	require.NoError(t, m.Register(&recordingPlugin{name: "broken", log: &log, hookErr: hookErr}))
	require.NoError(t, m.Register(&recordingPlugin{name: "after", log: &log}))

	_, err := m.RunBeforeModel(newCallbackContextForTest(), &model.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)
	assert.Contains(t, err.Error(), `plugin "broken"`)
	assert.Equal(t, []string{"broken.before_model"}, log)
}

func TestManagerOnToolErrorRecovery(t *testing.T) {
	m := NewManager()
	log := []string{}
	recovery := map[string]any{"fallback": "cached"}

	require.NoError(t, m.Register(&recordingPlugin{name: "observer", log: &log}))
	require.NoError(t, m.Register(&recordingPlugin{name: "recoverer", log: &log, beforeToolResp: recovery}))

	result, err := m.RunOnToolError(newToolContextForTest(), "get_weather", nil, errors.New("upstream down"))
	require.NoError(t, err)
	assert.Equal(t, recovery, result)
	assert.Equal(t, []string{"observer.on_tool_error", "recoverer.on_tool_error"}, log)
}

func TestManagerEmptyChain(t *testing.T) {
	m := NewManager()

	resp, err := m.RunAfterModel(newCallbackContextForTest(), &model.Response{})
	require.NoError(t, err)
	assert.Nil(t, resp)

	result, err := m.RunAfterTool(newToolContextForTest(), "noop", nil, "done")
	require.NoError(t, err)
	assert.Nil(t, result)
}
