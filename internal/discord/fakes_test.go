package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"construct-chat/internal/db"
	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
)

type fakeAPI struct {
	mu        sync.Mutex
	messages  map[string]*discordgo.Message
	webhooks  map[string][]*discordgo.Webhook
	sent      []string
	hookSends []string
	edits     []string
	deletes   []string
	nicknames map[string]string
	responses []*discordgo.InteractionResponse
	overwrite []*discordgo.ApplicationCommand
	nextID    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages:  map[string]*discordgo.Message{},
		webhooks:  map[string][]*discordgo.Webhook{},
		nicknames: map[string]string{},
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) ChannelMessage(_, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	return m, nil
}

func (f *fakeAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{ID: f.id("msg"), ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) ChannelMessageEdit(channelID, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, "channel:"+messageID+":"+content)
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, "channel:"+messageID)
	return nil
}

func (f *fakeAPI) ChannelTyping(string, ...discordgo.RequestOption) error { return nil }

func (f *fakeAPI) ChannelWebhooks(channelID string, _ ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Webhook(nil), f.webhooks[channelID]...), nil
}

func (f *fakeAPI) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hook := &discordgo.Webhook{ID: f.id("hook"), ChannelID: channelID, Name: name, Token: "token"}
	f.webhooks[channelID] = append(f.webhooks[channelID], hook)
	return hook, nil
}

func (f *fakeAPI) WebhookDelete(webhookID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch, hooks := range f.webhooks {
		kept := hooks[:0]
		for _, h := range hooks {
			if h.ID != webhookID {
				kept = append(kept, h)
			}
		}
		f.webhooks[ch] = kept
	}
	return nil
}

func (f *fakeAPI) WebhookExecute(webhookID, _ string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hookSends = append(f.hookSends, webhookID+":"+data.Username+":"+data.Content)
	return &discordgo.Message{ID: f.id("msg"), WebhookID: webhookID, Content: data.Content}, nil
}

func (f *fakeAPI) WebhookMessageEdit(webhookID, _, messageID string, data *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, webhookID+":"+messageID+":"+*data.Content)
	return &discordgo.Message{ID: messageID}, nil
}

func (f *fakeAPI) WebhookMessageDelete(webhookID, _, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, webhookID+":"+messageID)
	return nil
}

func (f *fakeAPI) GuildMemberNickname(guildID, userID, nickname string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames[guildID+"/"+userID] = nickname
	return nil
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) ApplicationCommandBulkOverwrite(_, _ string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overwrite = cmds
	return cmds, nil
}

type fakeOrchestrator struct {
	handled     []orchestrator.InboundMessage
	continued   []string
	regenerated []string
	removed     []string
}

func (f *fakeOrchestrator) HandleMessage(_ context.Context, _ orchestrator.Surface, in orchestrator.InboundMessage) orchestrator.Outcome {
	f.handled = append(f.handled, in)
	return orchestrator.OutcomeSingleReply
}

func (f *fakeOrchestrator) Continue(_ context.Context, _ orchestrator.Surface, surfaceID, authorID, authorName string) orchestrator.Outcome {
	f.continued = append(f.continued, surfaceID+"/"+authorID+"/"+authorName)
	return orchestrator.OutcomeSingleReply
}

func (f *fakeOrchestrator) RegenerateOnSurface(_ context.Context, _ orchestrator.Surface, _, messageID, text string) bool {
	f.regenerated = append(f.regenerated, messageID+":"+text)
	return true
}

func (f *fakeOrchestrator) RemoveOnSurface(_ context.Context, _ orchestrator.Surface, _, messageID, text string) bool {
	f.removed = append(f.removed, messageID+":"+text)
	return true
}

type fakeStore struct {
	constructs map[string]models.Construct
	removed    []string
	removeErr  error
}

func (f *fakeStore) GetConstruct(id string) (models.Construct, error) {
	c, ok := f.constructs[id]
	if !ok {
		return models.Construct{}, db.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) RemoveChat(id string) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}
