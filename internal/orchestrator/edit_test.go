package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerate_SplicesInPlace(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	h.orch.HandleMessage(context.Background(), h.surface, inbound("two"))

	h.gen.reply = func(generateCall) (string, bool) { return "A fresh take", true }
	ok := h.orch.RegenerateOnSurface(context.Background(), h.surface, "chan", "discord-msg", "Hi from Alice")
	require.True(t, ok)

	chat := h.store.chat("chan")
	require.Len(t, chat.Messages, 4)
	assert.Equal(t, "A fresh take", chat.Messages[1].Text)
	assert.Equal(t, "Alice", chat.Messages[1].User)
	assert.Equal(t, "Hi from Alice", chat.Messages[3].Text)
	assert.Equal(t, "A fresh take", h.surface.edits["discord-msg"])

	last := h.gen.calls[len(h.gen.calls)-1]
	assert.Equal(t, "Sam", last.userLabel)
}

func TestRegenerate_UserLabelFromAlias(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	require.NoError(t, h.session.SetAlias("chan", "guild", aliasFor("user-1", "Captain")))

	_, ok := h.orch.Regenerate(context.Background(), "chan", "Hi from Alice")
	require.True(t, ok)
	assert.Equal(t, "Captain", h.gen.calls[len(h.gen.calls)-1].userLabel)
}

func TestRegenerate_NotFoundOrFailedLeavesLog(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	before := h.store.chat("chan")

	_, ok := h.orch.Regenerate(context.Background(), "chan", "no such text")
	assert.False(t, ok)

	_, ok = h.orch.Regenerate(context.Background(), "other", "Hi from Alice")
	assert.False(t, ok)

	h.gen.reply = func(generateCall) (string, bool) { return "", false }
	_, ok = h.orch.Regenerate(context.Background(), "chan", "Hi from Alice")
	assert.False(t, ok)

	assert.Equal(t, before, h.store.chat("chan"))
}

func TestRemove_FirstMatchOnly(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	h.orch.HandleMessage(context.Background(), h.surface, inbound("two"))

	require.True(t, h.orch.RemoveOnSurface(context.Background(), h.surface, "chan", "discord-msg", "Hi from Alice"))

	chat := h.store.chat("chan")
	require.Len(t, chat.Messages, 3)
	assert.Equal(t, "one", chat.Messages[0].Text)
	assert.Equal(t, "two", chat.Messages[1].Text)
	assert.Equal(t, "Hi from Alice", chat.Messages[2].Text)
	assert.Equal(t, []string{"discord-msg"}, h.surface.deleted)

	assert.False(t, h.orch.Remove("chan", "missing"))
}
