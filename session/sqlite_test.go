package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.Create("sess-1")
	require.NoError(t, err)

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Empty(t, sess.GetEvents())
}

func TestSQLiteStore_GetCreatesLazily(t *testing.T) {
	store := newSQLiteStore(t)

	sess, err := store.Get("unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", sess.ID)
}

func TestSQLiteStore_AppendEventRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)

	userEv := core.NewUserMessageEvent("run-1", "hello")

	toolEv := core.NewEvent("run-1", "Assistant")
	toolEv.Content = &core.Content{
		Role: "assistant",
		Parts: []core.Part{
			core.TextPart{Text: "checking"},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "fc-1", Name: "lookup", Arguments: `{"q":"x"}`}},
		},
	}
	toolEv.LongRunningToolIDs = []string{"fc-1"}

	require.NoError(t, store.AppendEvent("sess-1", userEv))
	require.NoError(t, store.AppendEvent("sess-1", toolEv))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)

	events := sess.GetEvents()
	require.Len(t, events, 2)
	assert.Equal(t, core.UserAuthor, events[0].Author)
	assert.Equal(t, "Assistant", events[1].Author)
	assert.Equal(t, []string{"fc-1"}, events[1].LongRunningToolIDs)

	// Typed parts survive the JSON round trip.
	calls := events[1].GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Name)
	assert.Equal(t, "fc-1", calls[0].ID)
}

func TestSQLiteStore_ApplyDelta(t *testing.T) {
	store := newSQLiteStore(t)

	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"count": 1.0, "name": "ada"}))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"count": 2.0}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)

	v, ok := sess.GetState("count")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	name, ok := sess.GetState("name")
	require.True(t, ok)
	assert.Equal(t, "ada", name)
}

func TestSQLiteStore_CreateResetsSession(t *testing.T) {
	store := newSQLiteStore(t)

	require.NoError(t, store.AppendEvent("sess-1", core.NewUserMessageEvent("run-1", "hello")))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"k": "v"}))

	_, err := store.Create("sess-1")
	require.NoError(t, err)

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Empty(t, sess.GetEvents())
	_, ok := sess.GetState("k")
	assert.False(t, ok)
}
