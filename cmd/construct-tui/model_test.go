package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
)

type fakeRunner struct {
	inbound   []orchestrator.InboundMessage
	continued int
}

func (r *fakeRunner) HandleMessage(_ context.Context, _ orchestrator.Surface, in orchestrator.InboundMessage) orchestrator.Outcome {
	r.inbound = append(r.inbound, in)
	return orchestrator.OutcomeSingleReply
}

func (r *fakeRunner) Continue(context.Context, orchestrator.Surface, string, string, string) orchestrator.Outcome {
	r.continued++
	return orchestrator.OutcomeMultiReply
}

func typeLine(t *testing.T, m model, text string) (model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model), cmd
}

// runCmd executes cmd, unwrapping batches, and returns the handled result
func runCmd(cmd tea.Cmd) handledMsg {
	switch msg := cmd().(type) {
	case handledMsg:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if h, ok := c().(handledMsg); ok {
				return h
			}
		}
	}
	return handledMsg{}
}

func TestSubmit_SendsLocalMessage(t *testing.T) {
	runner := &fakeRunner{}
	m := newModel(context.Background(), runner, teaSurface{send: func(tea.Msg) {}}, "Sam")

	m, cmd := typeLine(t, m, "hello crew")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	require.Len(t, m.lines, 1)
	assert.Equal(t, "hello crew", m.lines[0].text)

	handled := runCmd(cmd)
	assert.Equal(t, orchestrator.OutcomeSingleReply, handled.outcome)
	require.Len(t, runner.inbound, 1)
	in := runner.inbound[0]
	assert.Equal(t, localSurfaceID, in.SurfaceID)
	assert.Equal(t, "Sam", in.AuthorName)
	assert.Equal(t, models.ChatTypeLocal, in.Origin)

	next, _ := m.Update(handled)
	assert.False(t, next.(model).busy)
}

func TestSubmit_IgnoresBlankAndBusy(t *testing.T) {
	runner := &fakeRunner{}
	m := newModel(context.Background(), runner, teaSurface{send: func(tea.Msg) {}}, "Sam")

	m, _ = typeLine(t, m, "   ")
	assert.Empty(t, m.lines)

	m.busy = true
	m, _ = typeLine(t, m, "again")
	assert.Empty(t, m.lines)
}

func TestSurfaceMessages_UpdateTimeline(t *testing.T) {
	var sent []tea.Msg
	surface := teaSurface{send: func(msg tea.Msg) { sent = append(sent, msg) }}
	m := newModel(context.Background(), &fakeRunner{}, surface, "Sam")

	id, err := surface.SendAsPersona(context.Background(), models.Construct{Name: "Alice"}, localSurfaceID, "Ahoy!")
	require.NoError(t, err)
	require.NoError(t, surface.Edit(context.Background(), localSurfaceID, id, "Ahoy there!"))

	for _, msg := range sent {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	require.Len(t, m.lines, 1)
	assert.Equal(t, "Alice", m.lines[0].persona)
	assert.Equal(t, "Ahoy there!", m.lines[0].text)

	next, _ := m.Update(deleteMsg{id: id})
	assert.Empty(t, next.(model).lines)
}

func TestSubmit_Continue(t *testing.T) {
	runner := &fakeRunner{}
	m := newModel(context.Background(), runner, teaSurface{send: func(tea.Msg) {}}, "Sam")

	m, cmd := typeLine(t, m, "/continue")
	require.NotNil(t, cmd)
	assert.Empty(t, m.lines)
	assert.Equal(t, orchestrator.OutcomeMultiReply, runCmd(cmd).outcome)
	assert.Equal(t, 1, runner.continued)
}

func TestPersonaStyle_IsStable(t *testing.T) {
	assert.Equal(t, personaStyle("Alice").GetForeground(), personaStyle("Alice").GetForeground())
}
