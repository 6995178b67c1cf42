package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(*core.RunContext) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	assert.True(t, inst.IsStatic())

	got, err := inst.Resolve(newTestRunContext(t, "Agent1"))
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_FromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(*core.RunContext) (string, error) { return "dynamic via func", nil })
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(newTestRunContext(t, "Agent1"))
	require.NoError(t, err)
	assert.Equal(t, "dynamic via func", got)
}

func TestInstruction_FromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "provider text"})
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(newTestRunContext(t, "Agent1"))
	require.NoError(t, err)
	assert.Equal(t, "provider text", got)
}

func TestInstruction_StateAwareProvider(t *testing.T) {
	inst := NewInstructionFromFunc(func(runCtx *core.RunContext) (string, error) {
		if v, ok := runCtx.GetState("tone"); ok {
			return "Answer in a " + v.(string) + " tone.", nil
		}
		return "Answer plainly.", nil
	})

	runCtx := newTestRunContext(t, "Agent1")
	runCtx.SetState("tone", "formal")

	got, err := inst.Resolve(runCtx)
	require.NoError(t, err)
	assert.Equal(t, "Answer in a formal tone.", got)
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	expectedErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: expectedErr})

	_, err := inst.Resolve(newTestRunContext(t, "Agent1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
}
