package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

// Send posts text to the channel as the bot itself
func (b *Bot) Send(ctx context.Context, channelID, text string) (string, error) {
	if err := b.limiter.Wait(ctx, channelID); err != nil {
		return "", errors.Wrap(err, "send throttled")
	}
	msg, err := b.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "send to channel %s", channelID)
	}
	return msg.ID, nil
}

// SendAsPersona posts text through the persona's webhook, creating it on first use
func (b *Bot) SendAsPersona(ctx context.Context, persona models.Construct, channelID, text string) (string, error) {
	hook, err := b.webhookFor(ctx, persona, channelID)
	if err != nil {
		return "", err
	}
	if err := b.limiter.Wait(ctx, channelID); err != nil {
		return "", errors.Wrap(err, "send throttled")
	}
	msg, err := b.api.WebhookExecute(hook.ID, hook.Token, true, &discordgo.WebhookParams{
		Content:  text,
		Username: persona.Name,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "webhook send persona=%s", persona.Name)
	}
	if msg == nil {
		return "", nil
	}
	return msg.ID, nil
}

// Edit rewrites a message sent by the bot or one of its persona webhooks
func (b *Bot) Edit(ctx context.Context, channelID, messageID, text string) error {
	hook, err := b.webhookForMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	if hook != nil {
		_, err = b.api.WebhookMessageEdit(hook.ID, hook.Token, messageID, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx))
	} else {
		_, err = b.api.ChannelMessageEdit(channelID, messageID, text, discordgo.WithContext(ctx))
	}
	return errors.Wrapf(err, "edit message %s", messageID)
}

// Delete removes a message sent by the bot or one of its persona webhooks
func (b *Bot) Delete(ctx context.Context, channelID, messageID string) error {
	hook, err := b.webhookForMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	if hook != nil {
		err = b.api.WebhookMessageDelete(hook.ID, hook.Token, messageID, discordgo.WithContext(ctx))
	} else {
		err = b.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	}
	return errors.Wrapf(err, "delete message %s", messageID)
}

// Typing shows the typing indicator on the channel
func (b *Bot) Typing(ctx context.Context, channelID string) error {
	return errors.Wrap(b.api.ChannelTyping(channelID, discordgo.WithContext(ctx)), "typing")
}

// webhookFor returns the channel webhook named after the persona
func (b *Bot) webhookFor(ctx context.Context, persona models.Construct, channelID string) (*discordgo.Webhook, error) {
	hooks, err := b.api.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "list webhooks channel=%s", channelID)
	}
	for _, h := range hooks {
		if h.Name == persona.Name {
			return h, nil
		}
	}

	hook, err := b.api.WebhookCreate(channelID, persona.Name, avatarDataURI(persona.Avatar), discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "create webhook persona=%s", persona.Name)
	}
	log.Printf("[Discord] Webhook created persona=%q channel_id=%s", persona.Name, channelID)
	return hook, nil
}

// webhookForMessage returns the webhook that posted messageID, or nil when
// the bot posted it directly
func (b *Bot) webhookForMessage(ctx context.Context, channelID, messageID string) (*discordgo.Webhook, error) {
	msg, err := b.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "fetch message %s", messageID)
	}
	if msg.WebhookID == "" {
		return nil, nil
	}
	hooks, err := b.api.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "list webhooks channel=%s", channelID)
	}
	for _, h := range hooks {
		if h.ID == msg.WebhookID {
			return h, nil
		}
	}
	return nil, errors.Errorf("webhook %s not owned by this bot", msg.WebhookID)
}

// ClearWebhooks deletes every webhook on the channel
func (b *Bot) ClearWebhooks(ctx context.Context, channelID string) error {
	hooks, err := b.api.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "list webhooks channel=%s", channelID)
	}
	var firstErr error
	for _, h := range hooks {
		if err := b.api.WebhookDelete(h.ID, discordgo.WithContext(ctx)); err != nil {
			log.Printf("[Discord] Webhook delete failed webhook_id=%s err=%v", h.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return errors.Wrap(firstErr, "clear webhooks")
}
