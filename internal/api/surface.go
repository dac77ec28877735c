package api

import (
	"context"

	"github.com/google/uuid"

	"construct-chat/internal/models"
)

// broadcastSurface delivers replies for API-driven chats as SSE events
type broadcastSurface struct {
	broadcaster *EventBroadcaster
}

// ReplyEvent is the payload of reply, edit and delete events
type ReplyEvent struct {
	MessageID string `json:"messageId"`
	Persona   string `json:"persona,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (s broadcastSurface) Send(_ context.Context, chatID, text string) (string, error) {
	id := uuid.NewString()
	s.broadcaster.Broadcast(chatID, Event{Type: EventReply, Data: ReplyEvent{MessageID: id, Text: text}})
	return id, nil
}

func (s broadcastSurface) SendAsPersona(_ context.Context, persona models.Construct, chatID, text string) (string, error) {
	id := uuid.NewString()
	s.broadcaster.Broadcast(chatID, Event{Type: EventReply, Data: ReplyEvent{MessageID: id, Persona: persona.Name, Text: text}})
	return id, nil
}

func (s broadcastSurface) Edit(_ context.Context, chatID, messageID, text string) error {
	s.broadcaster.Broadcast(chatID, Event{Type: EventEdit, Data: ReplyEvent{MessageID: messageID, Text: text}})
	return nil
}

func (s broadcastSurface) Delete(_ context.Context, chatID, messageID string) error {
	s.broadcaster.Broadcast(chatID, Event{Type: EventDelete, Data: ReplyEvent{MessageID: messageID}})
	return nil
}

func (s broadcastSurface) Typing(_ context.Context, chatID string) error {
	s.broadcaster.Broadcast(chatID, Event{Type: EventTyping, Data: map[string]string{}})
	return nil
}
