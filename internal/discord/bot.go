// Package discord connects the orchestrator to Discord: gateway events in,
// channel and webhook messages out, plus the bot's slash commands.
package discord

import (
	"context"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
	"construct-chat/internal/session"
)

// Reaction emoji handled on bot messages
const (
	EmojiRegenerate = "♻"
	EmojiRemove     = "🗑"
)

// Orchestrator is the reply pipeline the bot feeds
type Orchestrator interface {
	HandleMessage(ctx context.Context, surface orchestrator.Surface, in orchestrator.InboundMessage) orchestrator.Outcome
	Continue(ctx context.Context, surface orchestrator.Surface, surfaceID, authorID, authorName string) orchestrator.Outcome
	RegenerateOnSurface(ctx context.Context, surface orchestrator.Surface, surfaceID, messageID, text string) bool
	RemoveOnSurface(ctx context.Context, surface orchestrator.Surface, surfaceID, messageID, text string) bool
}

// Store is the persistence the slash commands need
type Store interface {
	GetConstruct(id string) (models.Construct, error)
	RemoveChat(id string) error
}

// Bot is a Discord conversation surface
type Bot struct {
	gateway *discordgo.Session
	api     restAPI
	state   *session.Session
	store   Store
	orch    Orchestrator
	limiter *ChannelLimiter
	appID   string

	selfID func() string
	guilds func() []string

	ctx context.Context
}

// Option configures a Bot
type Option func(*Bot)

// WithLimiter replaces the per-channel send limiter
func WithLimiter(l *ChannelLimiter) Option {
	return func(b *Bot) {
		b.limiter = l
	}
}

// New creates a bot for the given token. Nothing connects until Open.
func New(token, appID string, state *session.Session, store Store, orch Orchestrator, opts ...Option) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("discord token is required")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := newBot(dg, appID, state, store, orch, opts...)
	b.gateway = dg
	b.selfID = func() string {
		if dg.State == nil || dg.State.User == nil {
			return ""
		}
		return dg.State.User.ID
	}
	b.guilds = func() []string {
		if dg.State == nil {
			return nil
		}
		ids := make([]string, 0, len(dg.State.Guilds))
		for _, g := range dg.State.Guilds {
			ids = append(ids, g.ID)
		}
		return ids
	}
	return b, nil
}

func newBot(api restAPI, appID string, state *session.Session, store Store, orch Orchestrator, opts ...Option) *Bot {
	b := &Bot{
		api:     api,
		state:   state,
		store:   store,
		orch:    orch,
		limiter: NewChannelLimiter(sendInterval, sendBurst),
		appID:   appID,
		selfID:  func() string { return "" },
		guilds:  func() []string { return nil },
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open connects to the gateway and registers the slash commands. Handlers
// run with ctx until Close.
func (b *Bot) Open(ctx context.Context) error {
	if b.gateway == nil {
		return errors.New("bot has no gateway session")
	}
	b.ctx = ctx
	b.gateway.AddHandler(b.onReady)
	b.gateway.AddHandler(b.onMessageCreate)
	b.gateway.AddHandler(b.onReactionAdd)
	b.gateway.AddHandler(b.onInteraction)

	if err := b.gateway.Open(); err != nil {
		return errors.Wrap(err, "open discord gateway")
	}
	if err := b.RegisterCommands(); err != nil {
		log.Printf("[Discord] Command registration failed err=%v", err)
	}
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	if b.gateway == nil {
		return nil
	}
	return errors.Wrap(b.gateway.Close(), "close discord gateway")
}

// RegisterCommands overwrites the application's global slash commands
func (b *Bot) RegisterCommands() error {
	if b.appID == "" {
		return errors.New("discord app id is not configured")
	}
	_, err := b.api.ApplicationCommandBulkOverwrite(b.appID, "", commandDefinitions())
	if err != nil {
		return errors.Wrap(err, "overwrite commands")
	}
	log.Printf("[Discord] Registered %d slash commands", len(commandDefinitions()))
	return nil
}

// SetPrimary makes id the primary persona and mirrors its name onto the
// bot's guild nicknames
func (b *Bot) SetPrimary(ctx context.Context, id string) error {
	if err := b.state.SetPrimary(id); err != nil {
		return err
	}
	construct, err := b.store.GetConstruct(id)
	if err != nil {
		return errors.Wrapf(err, "primary construct %s", id)
	}
	b.setNickname(ctx, construct.Name)
	return nil
}

func (b *Bot) setNickname(ctx context.Context, name string) {
	for _, guildID := range b.guilds() {
		if err := b.api.GuildMemberNickname(guildID, "@me", name, discordgo.WithContext(ctx)); err != nil {
			log.Printf("[Discord] Nickname change failed guild_id=%s err=%v", guildID, err)
		}
	}
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[Discord] Connected as %s guilds=%d", r.User.Username, len(r.Guilds))
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(b.ctx, m.Message)
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.handleReaction(b.ctx, r.MessageReaction)
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.handleInteraction(b.ctx, i.Interaction)
}

func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.ID == b.selfID() {
		return
	}
	in := toInbound(m)
	outcome := b.orch.HandleMessage(ctx, b, in)
	if outcome != orchestrator.OutcomeIgnored {
		log.Printf("[Discord] Message handled channel_id=%s outcome=%s", m.ChannelID, outcome)
	}
}

// handleReaction regenerates or removes bot and persona messages
func (b *Bot) handleReaction(ctx context.Context, r *discordgo.MessageReaction) {
	if r == nil || r.UserID == b.selfID() {
		return
	}
	emoji := strings.TrimSuffix(r.Emoji.Name, "\uFE0F")
	if emoji != EmojiRegenerate && emoji != EmojiRemove {
		return
	}

	msg, err := b.api.ChannelMessage(r.ChannelID, r.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("[Discord] Reaction target fetch failed message_id=%s err=%v", r.MessageID, err)
		return
	}
	fromBot := msg.WebhookID != "" || (msg.Author != nil && msg.Author.ID == b.selfID())
	if !fromBot {
		return
	}

	switch emoji {
	case EmojiRegenerate:
		ok := b.orch.RegenerateOnSurface(ctx, b, r.ChannelID, r.MessageID, msg.Content)
		log.Printf("[Discord] Regenerate requested message_id=%s ok=%t", r.MessageID, ok)
	case EmojiRemove:
		ok := b.orch.RemoveOnSurface(ctx, b, r.ChannelID, r.MessageID, msg.Content)
		log.Printf("[Discord] Remove requested message_id=%s ok=%t", r.MessageID, ok)
	}
}

var _ orchestrator.Surface = (*Bot)(nil)
