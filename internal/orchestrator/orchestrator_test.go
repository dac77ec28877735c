package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"construct-chat/internal/logic"
	"construct-chat/internal/models"
	"construct-chat/internal/session"
)

var (
	alice = models.Construct{ID: "alice", Name: "Alice", Personality: "Cheerful sailor."}
	bob   = models.Construct{ID: "bob", Name: "Bob", Personality: "Grumpy cook."}
)

type harness struct {
	orch    *Orchestrator
	session *session.Session
	store   *fakeStore
	gen     *fakeGenerator
	surface *fakeSurface
	hooked  []models.Message
}

func newHarness(t *testing.T, roll float64, active ...string) *harness {
	t.Helper()
	h := &harness{
		session: session.New(nil),
		store:   newFakeStore(alice, bob),
		gen:     &fakeGenerator{},
		surface: newFakeSurface(),
	}
	require.NoError(t, h.session.RegisterChannel("chan", "guild"))
	for _, id := range active {
		require.NoError(t, h.session.AddActive(id))
	}
	h.orch = New(h.session, h.store, h.gen,
		WithRandom(func() float64 { return roll }),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
		WithMessageHook(func(_ string, msg models.Message) { h.hooked = append(h.hooked, msg) }),
	)
	return h
}

func inbound(text string) InboundMessage {
	return InboundMessage{
		ID:         "m-" + text,
		SurfaceID:  "chan",
		GuildID:    "guild",
		AuthorID:   "user-1",
		AuthorName: "Sam",
		Text:       text,
		Origin:     models.ChatTypeDiscord,
	}
}

func TestHandleMessage_IgnoredCases(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *InboundMessage)
		active []string
	}{
		{"bot author", func(in *InboundMessage) { in.AuthorIsBot = true }, []string{"alice"}},
		{"direct message", func(in *InboundMessage) { in.IsDirect = true }, []string{"alice"}},
		{"command escape", func(in *InboundMessage) { in.Text = ".ignore me" }, []string{"alice"}},
		{"unregistered surface", func(in *InboundMessage) { in.SurfaceID = "elsewhere" }, []string{"alice"}},
		{"no active constructs", func(in *InboundMessage) {}, nil},
		{"active construct missing", func(in *InboundMessage) {}, []string{"ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0.5, tt.active...)
			in := inbound("hello")
			tt.modify(&in)

			outcome := h.orch.HandleMessage(context.Background(), h.surface, in)
			assert.Equal(t, OutcomeIgnored, outcome)
			assert.Empty(t, h.store.chats)
			assert.Empty(t, h.gen.calls)
			assert.Empty(t, h.surface.sent)
		})
	}
}

func TestHandleMessage_DotNeverMutatesExistingLog(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("first"))
	before := h.store.chat("chan")
	updates := h.store.updates

	h.orch.HandleMessage(context.Background(), h.surface, inbound(".secret"))
	assert.Equal(t, before, h.store.chat("chan"))
	assert.Equal(t, updates, h.store.updates)
}

func TestHandleMessage_CreatesLogAndReplies(t *testing.T) {
	h := newHarness(t, 0.5, "alice")

	outcome := h.orch.HandleMessage(context.Background(), h.surface, inbound("  hello there  "))
	assert.Equal(t, OutcomeSingleReply, outcome)

	chat := h.store.chat("chan")
	assert.Equal(t, "chan Chat Alice", chat.Name)
	assert.Equal(t, models.ChatTypeDiscord, chat.Type)
	assert.Equal(t, []string{"alice"}, chat.Agents)
	require.Len(t, chat.Messages, 2)

	user := chat.Messages[0]
	assert.Equal(t, "Sam", user.User)
	assert.Equal(t, "hello there", user.Text)
	assert.Equal(t, []string{"user-1", "alice"}, user.Participants)

	reply := chat.Messages[1]
	assert.Equal(t, "Alice", reply.User)
	assert.Equal(t, "Hi from Alice", reply.Text)
	assert.Equal(t, []string{"user-1", "alice"}, reply.Participants)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, reply.Text, chat.LastMessage.Text)

	assert.Equal(t, []delivery{{text: "Hi from Alice"}}, h.surface.sent)
	assert.Equal(t, 1, h.surface.typing)
	assert.Equal(t, 1, h.store.adds)
	assert.Equal(t, 1, h.store.updates)
	assert.Len(t, h.hooked, 2)

	require.Len(t, h.gen.calls, 1)
	assert.True(t, strings.HasSuffix(h.gen.calls[0].prompt, "Sam: hello there\nAlice:"))
}

func TestHandleMessage_AttachmentTypeDefaultsToUnknown(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	in := inbound("look")
	in.Attachments = []models.Attachment{{ID: "a1", Filename: "cat.png"}, {ID: "a2", Type: "image/png"}}

	h.orch.HandleMessage(context.Background(), h.surface, in)

	msg := h.store.chat("chan").Messages[0]
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, models.AttachmentTypeUnknown, msg.Attachments[0].Type)
	assert.Equal(t, "image/png", msg.Attachments[1].Type)
}

func TestHandleMessage_AliasUsedAsUserLabel(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	require.NoError(t, h.session.SetAlias("chan", "guild", models.Alias{UserID: "user-1", Name: "Captain"}))

	h.orch.HandleMessage(context.Background(), h.surface, inbound("ahoy"))

	assert.Equal(t, "Captain", h.store.chat("chan").Messages[0].User)
	require.Len(t, h.gen.calls, 1)
	assert.Equal(t, "Captain", h.gen.calls[0].userLabel)
}

func TestHandleMessage_DashIsLoggedOnly(t *testing.T) {
	h := newHarness(t, 0.5, "alice")

	outcome := h.orch.HandleMessage(context.Background(), h.surface, inbound("-just a note"))
	assert.Equal(t, OutcomeLoggedOnly, outcome)
	assert.Len(t, h.store.chat("chan").Messages, 1)
	assert.Empty(t, h.gen.calls)
	assert.Empty(t, h.surface.sent)
}

func TestHandleMessage_ConstructModeNotice(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	require.NoError(t, h.session.SetMode(session.ModeConstruct))

	outcome := h.orch.HandleMessage(context.Background(), h.surface, inbound("hi"))
	assert.Equal(t, OutcomeConstructNotice, outcome)
	assert.Equal(t, []delivery{{text: logic.ConstructModeNotice}}, h.surface.sent)
	assert.Empty(t, h.gen.calls)
	assert.Len(t, h.store.chat("chan").Messages, 1)
}

func TestHandleMessage_SingleReplyFailureAddsNothing(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.gen.reply = func(generateCall) (string, bool) { return "", false }

	outcome := h.orch.HandleMessage(context.Background(), h.surface, inbound("hi"))
	assert.Equal(t, OutcomeSingleReply, outcome)
	assert.Len(t, h.gen.calls, 1)
	assert.Len(t, h.store.chat("chan").Messages, 1)
	assert.Empty(t, h.surface.sent)
}

func TestHandleMessage_MultiLineSplitting(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	require.NoError(t, h.session.SetMultiLine(true))
	h.gen.reply = func(generateCall) (string, bool) { return " Ahoy!\n*waves*\nSam: stop here", true }

	h.orch.HandleMessage(context.Background(), h.surface, inbound("hi"))
	assert.Equal(t, "Ahoy!\n*waves*", h.store.chat("chan").LastMessage.Text)
}

func TestHandleMessage_AppendsToExistingLog(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	h.orch.HandleMessage(context.Background(), h.surface, inbound("two"))

	chat := h.store.chat("chan")
	assert.Len(t, chat.Messages, 4)
	assert.Equal(t, 1, h.store.adds)
}

func TestHandleMessage_ReadFailureKeepsStoredLog(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	h.orch.HandleMessage(context.Background(), h.surface, inbound("two"))
	updates, calls := h.store.updates, len(h.gen.calls)

	h.store.getErr = errors.New("database is locked")
	outcome := h.orch.HandleMessage(context.Background(), h.surface, inbound("three"))
	h.store.getErr = nil

	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Len(t, h.store.chat("chan").Messages, 4)
	assert.Equal(t, updates, h.store.updates)
	assert.Equal(t, 1, h.store.adds)
	assert.Len(t, h.gen.calls, calls)
}

func TestContinue_RepliesWithoutNewMessage(t *testing.T) {
	h := newHarness(t, 0.5, "alice")
	assert.Equal(t, OutcomeIgnored, h.orch.Continue(context.Background(), h.surface, "chan", "user-1", "Sam"))

	h.orch.HandleMessage(context.Background(), h.surface, inbound("one"))
	outcome := h.orch.Continue(context.Background(), h.surface, "chan", "user-1", "Sam")
	assert.Equal(t, OutcomeSingleReply, outcome)

	chat := h.store.chat("chan")
	require.Len(t, chat.Messages, 3)
	assert.Equal(t, "Alice", chat.Messages[2].User)
}
