package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_ApplyDelta(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"count": 1, "name": "ada"}))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"count": 2}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)

	v, ok := sess.GetState("count")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	name, ok := sess.GetState("name")
	require.True(t, ok)
	assert.Equal(t, "ada", name)
}

func TestInMemoryStore_AppendEventCreatesLazily(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.AppendEvent("sess-1", core.NewUserMessageEvent("run-1", "hello")))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	require.Len(t, sess.GetEvents(), 1)
	assert.Equal(t, core.UserAuthor, sess.GetEvents()[0].Author)
}

func TestInMemoryStore_GetReturnsClone(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"k": "v"}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	sess.SetState("k", "mutated")

	again, err := store.Get("sess-1")
	require.NoError(t, err)
	v, _ := again.GetState("k")
	assert.Equal(t, "v", v)
}
