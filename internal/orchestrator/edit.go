package orchestrator

import (
	"context"
	"log"

	"construct-chat/internal/models"
)

// Regenerate replaces the first message whose text equals text with a fresh
// generation from the same construct and returns the new text. Nothing is
// changed when the message, its construct or the generation is missing.
func (o *Orchestrator) Regenerate(ctx context.Context, surfaceID, text string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	chat, err := o.store.GetChat(surfaceID)
	if err != nil {
		log.Printf("[Orchestrator] Regenerate: chat not found surface_id=%s err=%v", surfaceID, err)
		return "", false
	}
	index := chat.IndexOfText(text)
	if index < 0 {
		return "", false
	}
	original := chat.Messages[index]

	construct, ok := o.findConstruct(original)
	if !ok {
		log.Printf("[Orchestrator] Regenerate: no construct for message user=%q", original.User)
		return "", false
	}

	userLabel := "You"
	if len(original.Participants) > 0 {
		author := original.Participants[0]
		userLabel = o.userLabel(surfaceID, author, authorName(chat, author))
	}

	chat.RemoveAt(index)
	newText, ok := o.generateReply(ctx, construct, chat, userLabel, o.session.Conversation())
	if !ok {
		log.Printf("[Orchestrator] Regenerate: generation failed construct=%q", construct.Name)
		return "", false
	}

	replacement := original
	replacement.ID = models.NewMessageID()
	replacement.Text = newText
	replacement.Timestamp = o.now()
	chat.InsertAt(index, replacement)
	o.publish(chat.ID, replacement)
	o.persist(chat)

	log.Printf("[Orchestrator] Regenerated message construct=%q index=%d", construct.Name, index)
	return newText, true
}

// Remove deletes the first message whose text equals text
func (o *Orchestrator) Remove(surfaceID, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	chat, err := o.store.GetChat(surfaceID)
	if err != nil {
		return false
	}
	index := chat.IndexOfText(text)
	if index < 0 {
		return false
	}
	chat.RemoveAt(index)
	o.persist(chat)
	log.Printf("[Orchestrator] Removed message surface_id=%s index=%d", surfaceID, index)
	return true
}

// RegenerateOnSurface regenerates and edits the delivered surface message
func (o *Orchestrator) RegenerateOnSurface(ctx context.Context, surface Surface, surfaceID, messageID, text string) bool {
	newText, ok := o.Regenerate(ctx, surfaceID, text)
	if !ok {
		return false
	}
	if err := surface.Edit(ctx, surfaceID, messageID, newText); err != nil {
		log.Printf("[Orchestrator] Edit failed surface_id=%s message_id=%s err=%v", surfaceID, messageID, err)
	}
	return true
}

// RemoveOnSurface removes the message from the log and the surface
func (o *Orchestrator) RemoveOnSurface(ctx context.Context, surface Surface, surfaceID, messageID, text string) bool {
	if !o.Remove(surfaceID, text) {
		return false
	}
	if err := surface.Delete(ctx, surfaceID, messageID); err != nil {
		log.Printf("[Orchestrator] Delete failed surface_id=%s message_id=%s err=%v", surfaceID, messageID, err)
	}
	return true
}

func (o *Orchestrator) findConstruct(msg models.Message) (models.Construct, bool) {
	if msg.UserID != "" {
		if c, err := o.store.GetConstruct(msg.UserID); err == nil {
			return c, true
		}
	}
	constructs, err := o.store.ListConstructs()
	if err != nil {
		return models.Construct{}, false
	}
	return models.FindConstruct(constructs, msg.User)
}

// authorName returns the label last used by userID in the chat
func authorName(chat *models.ChatLog, userID string) string {
	for i := len(chat.Messages) - 1; i >= 0; i-- {
		if m := chat.Messages[i]; m.IsHuman && m.UserID == userID {
			return m.User
		}
	}
	return ""
}
