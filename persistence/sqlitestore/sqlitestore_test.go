package sqlitestore

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnlabs/fastn-agent/chat"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	assistant := chat.Message{Role: chat.AssistantRole}
	assistant.AddToolCall(chat.ToolCall{ID: "call_1", Name: "createDoc", Arguments: json.RawMessage(`{"title":"Notes"}`)})

	toolMsg := chat.Message{Role: chat.ToolRole}
	toolMsg.AddToolResult(chat.ToolResult{ToolCallID: "call_1", Name: "createDoc", Content: `{"documentId":"doc-1"}`})

	transcript := chat.Transcript{
		chat.UserMessage("make a doc"),
		assistant,
		toolMsg,
		chat.AssistantMessage("created doc-1"),
	}

	require.NoError(t, store.Save("session-1", transcript))

	loaded, err := store.Load("session-1")
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	assert.Equal(t, chat.UserRole, loaded[0].Role)
	require.Len(t, loaded[1].GetToolCalls(), 1)
	assert.Equal(t, "call_1", loaded[1].GetToolCalls()[0].ID)
	require.Len(t, loaded[2].GetToolResults(), 1)
	assert.Equal(t, `{"documentId":"doc-1"}`, loaded[2].GetToolResults()[0].Content)
	assert.Equal(t, "created doc-1", loaded[3].GetText())
}

func TestSQLiteStoreLoadUnknownSession(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("s", chat.Transcript{chat.UserMessage("one"), chat.AssistantMessage("a")}))
	require.NoError(t, store.Save("s", chat.Transcript{chat.UserMessage("two")}))

	loaded, err := store.Load("s")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "two", loaded[0].GetText())
}

func TestSQLiteStoreCorruptRow(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(
		`INSERT INTO messages (session_id, position, role, contents) VALUES (?, ?, ?, ?)`,
		"bad", 0, "user", "{{{ not json",
	)
	require.NoError(t, err)

	loaded, err := store.Load("bad")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStoreDeleteAndList(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("beta", chat.Transcript{chat.UserMessage("x")}))
	require.NoError(t, store.Save("alpha", chat.Transcript{chat.UserMessage("y")}))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, sessions)

	require.NoError(t, store.Delete("alpha"))
	sessions, err = store.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, sessions)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	store, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Save("s", chat.Transcript{chat.UserMessage("hello")}))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load("s")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "hello", loaded[0].GetText())
}
