package orchestrator

import (
	"context"
	"log"

	"construct-chat/internal/logic"
	"construct-chat/internal/models"
	"construct-chat/internal/session"
)

// roundRobin gives every construct a turn, leading with the one mentioned in
// the last message. Each turn retries generation up to
// logic.MaxGenerationAttempts times and falls back to a placeholder. The log
// is persisted after every turn.
func (o *Orchestrator) roundRobin(ctx context.Context, surface Surface, chat *models.ChatLog, constructs []models.Construct, surfaceID, authorID, userLabel string, conv session.ConversationSettings) {
	var primary string
	if active := o.session.ActiveConstructs(); len(active) > 0 {
		primary = active[0]
	}

	order := constructs
	if chat.LastMessage != nil {
		order = logic.ReorderByMention(chat.LastMessage.Text, constructs)
	}

	for i, construct := range order {
		if ctx.Err() != nil {
			log.Printf("[RoundRobin] Cancelled surface_id=%s err=%v", surfaceID, ctx.Err())
			return
		}
		if logic.ShouldSkipTurn(i, o.random()) {
			log.Printf("[RoundRobin] Turn skipped construct=%q", construct.Name)
			continue
		}

		text := o.generateWithRetry(ctx, construct, chat, userLabel, conv)

		msg := o.replyMessage(construct, text, authorID, chat.Type)
		chat.Append(msg)
		o.publish(chat.ID, msg)

		var err error
		if construct.ID == primary {
			_, err = surface.Send(ctx, surfaceID, text)
		} else {
			_, err = surface.SendAsPersona(ctx, construct, surfaceID, text)
		}
		if err != nil {
			log.Printf("[RoundRobin] Delivery failed construct=%q surface_id=%s err=%v", construct.Name, surfaceID, err)
		}

		o.persist(chat)
	}
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, construct models.Construct, chat *models.ChatLog, userLabel string, conv session.ConversationSettings) string {
	for attempt := 1; attempt <= logic.MaxGenerationAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		text, ok := o.generateReply(ctx, construct, chat, userLabel, conv)
		if ok {
			return text
		}
		log.Printf("[RoundRobin] Attempt failed construct=%q attempt=%d", construct.Name, attempt)
	}
	log.Printf("[RoundRobin] Giving up construct=%q", construct.Name)
	return logic.NoResponsePlaceholder
}
