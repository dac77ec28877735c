package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(text string, at time.Time) Message {
	return Message{ID: NewMessageID(), Text: text, Timestamp: at}
}

func TestNewChatLog_SeedsLastMessage(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	chat := NewChatLog("c1", "c1 Chat Alice", ChatTypeDiscord, msg("hi", now), []string{"a"})

	require.Len(t, chat.Messages, 1)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "hi", chat.LastMessage.Text)
	assert.Equal(t, now, chat.LastMessageDate)
	assert.Equal(t, now, chat.FirstMessageDate)
}

func TestChatLog_AppendRemoveInsertKeepLastMessage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	chat := NewChatLog("c1", "n", ChatTypeLocal, msg("one", base), nil)
	chat.Append(msg("two", base.Add(time.Minute)))
	chat.Append(msg("three", base.Add(2*time.Minute)))

	assert.Equal(t, "three", chat.LastMessage.Text)
	assert.Equal(t, 1, chat.IndexOfText("two"))
	assert.Equal(t, -1, chat.IndexOfText("missing"))

	removed := chat.RemoveAt(2)
	assert.Equal(t, "three", removed.Text)
	assert.Equal(t, "two", chat.LastMessage.Text)
	assert.Equal(t, base.Add(time.Minute), chat.LastMessageDate)

	chat.InsertAt(1, msg("middle", base.Add(30*time.Second)))
	texts := []string{chat.Messages[0].Text, chat.Messages[1].Text, chat.Messages[2].Text}
	assert.Equal(t, []string{"one", "middle", "two"}, texts)
	assert.Equal(t, "two", chat.LastMessage.Text)

	chat.InsertAt(10, msg("end", base.Add(time.Hour)))
	assert.Equal(t, "end", chat.LastMessage.Text)
}

func TestChatLog_RemoveLastEmptiesLastMessage(t *testing.T) {
	chat := NewChatLog("c1", "n", ChatTypeLocal, msg("only", time.Now()), nil)
	chat.RemoveAt(0)
	assert.Empty(t, chat.Messages)
	assert.Nil(t, chat.LastMessage)
	assert.True(t, chat.LastMessageDate.IsZero())
}

func TestChatLog_RemoveDoesNotAliasEarlierSlices(t *testing.T) {
	chat := NewChatLog("c1", "n", ChatTypeLocal, msg("a", time.Now()), nil)
	chat.Append(msg("b", time.Now()))
	chat.Append(msg("c", time.Now()))
	before := chat.Messages

	chat.RemoveAt(0)
	assert.Equal(t, "a", before[0].Text)
}

func TestChatLog_Recent(t *testing.T) {
	chat := NewChatLog("c1", "n", ChatTypeLocal, msg("1", time.Now()), nil)
	for _, s := range []string{"2", "3", "4"} {
		chat.Append(msg(s, time.Now()))
	}

	assert.Len(t, chat.Recent(2), 2)
	assert.Equal(t, "3", chat.Recent(2)[0].Text)
	assert.Len(t, chat.Recent(10), 4)
	assert.Len(t, chat.Recent(0), 4)
}

func TestFindConstruct_ByIDThenName(t *testing.T) {
	constructs := []Construct{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}}

	c, ok := FindConstruct(constructs, "2")
	require.True(t, ok)
	assert.Equal(t, "Bob", c.Name)

	c, ok = FindConstruct(constructs, "alice")
	require.True(t, ok)
	assert.Equal(t, "1", c.ID)

	_, ok = FindConstruct(constructs, "Carol")
	assert.False(t, ok)
}

func TestNewMessageID_Unique(t *testing.T) {
	assert.NotEqual(t, NewMessageID(), NewMessageID())
}

func TestAttachment_DecodesFilename(t *testing.T) {
	var a Attachment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a1","type":"image/png","filename":"cat.png","data":"abc","size":3}`), &a))
	assert.Equal(t, "cat.png", a.Filename)
	assert.Equal(t, 3, a.Size)
}

func TestRegisteredChannel_DecodesStoredShape(t *testing.T) {
	var ch RegisteredChannel
	raw := `{"id":"c1","guildId":"g1","constructs":["alice"],"aliases":[{"id":"u1","name":"Captain","location":"c1"}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ch))
	assert.Equal(t, []string{"alice"}, ch.Constructs)
	require.Len(t, ch.Aliases, 1)
	assert.Equal(t, Alias{UserID: "u1", Name: "Captain", Location: "c1"}, ch.Aliases[0])
}
