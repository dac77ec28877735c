package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"construct-chat/internal/models"
)

// localSurfaceID is the registered channel id of the terminal
const localSurfaceID = "local"

type replyMsg struct {
	id      string
	persona string
	text    string
}

type editMsg struct {
	id   string
	text string
}

type deleteMsg struct {
	id string
}

type typingMsg struct{}

// teaSurface delivers orchestrator output to the running program
type teaSurface struct {
	send func(tea.Msg)
}

func (s teaSurface) Send(_ context.Context, _ string, text string) (string, error) {
	id := uuid.NewString()
	s.send(replyMsg{id: id, text: text})
	return id, nil
}

func (s teaSurface) SendAsPersona(_ context.Context, persona models.Construct, _ string, text string) (string, error) {
	id := uuid.NewString()
	s.send(replyMsg{id: id, persona: persona.Name, text: text})
	return id, nil
}

func (s teaSurface) Edit(_ context.Context, _ string, messageID, text string) error {
	s.send(editMsg{id: messageID, text: text})
	return nil
}

func (s teaSurface) Delete(_ context.Context, _ string, messageID string) error {
	s.send(deleteMsg{id: messageID})
	return nil
}

func (s teaSurface) Typing(context.Context, string) error {
	s.send(typingMsg{})
	return nil
}
