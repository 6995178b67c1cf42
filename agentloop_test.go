package agentloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
)

// cannedModel answers every request with the same final text response.
type cannedModel struct {
	text string
}

func (m *cannedModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error)

	respCh <- model.Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: m.text}}},
		FinishReason: "stop",
	}
	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *cannedModel) Info() model.Info {
	return model.Info{Provider: "test", Name: "canned"}
}

func newAssistant(text string) *agent.ModelAgent {
	return agent.NewModelAgent("Assistant", &cannedModel{text: text}, func(o *agent.ModelAgentOptions) {
		o.EnableStreaming = false
	})
}

func userText(msg string) core.Content {
	return core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: msg}}}
}

func TestRunSync_FinalResponse(t *testing.T) {
	loop := New(newAssistant("hello there"))

	runID, events, err := loop.RunSync(context.Background(), "sess-1", userText("hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	require.Len(t, events, 1)
	assert.Equal(t, "Assistant", events[0].Author)
	assert.True(t, events[0].IsFinalResponse())
	assert.Equal(t, "hello there", events[0].Content.Parts[0].(core.TextPart).Text)
}

func TestRunSync_MultiTurnUsesSameSession(t *testing.T) {
	store := session.NewInMemoryStore()
	loop := New(newAssistant("answer"), func(o *Options) {
		o.SessionStore = store
	})

	_, _, err := loop.RunSync(context.Background(), "sess-1", userText("first"))
	require.NoError(t, err)
	_, _, err = loop.RunSync(context.Background(), "sess-1", userText("second"))
	require.NoError(t, err)

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 4)
}

func TestRun_Async(t *testing.T) {
	loop := New(newAssistant("async answer"))

	runID, eventsCh, errorsCh, err := loop.Run(context.Background(), "sess-1", userText("hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	require.NoError(t, <-errorsCh)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsFinalResponse())
}

func TestCancel_UnknownRun(t *testing.T) {
	loop := New(newAssistant("hi"))

	err := loop.Cancel("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
