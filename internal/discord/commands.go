package discord

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"construct-chat/internal/db"
	"construct-chat/internal/models"
)

const (
	guildOnlyReply    = "This command can only be used in a server channel."
	commandErrorReply = "There was an error while executing this command!"
)

// commandRequest is the part of an interaction the handlers read
type commandRequest struct {
	Name      string
	ChannelID string
	GuildID   string
	UserID    string
	UserName  string
	Options   map[string]*discordgo.ApplicationCommandInteractionDataOption
}

type commandReply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
	// after runs once the reply has been delivered
	after func(ctx context.Context)
}

type commandHandler func(b *Bot, ctx context.Context, req commandRequest) (commandReply, error)

type command struct {
	definition *discordgo.ApplicationCommand
	handler    commandHandler
}

var commands = []command{
	{
		definition: &discordgo.ApplicationCommand{Name: "register", Description: "Registers the current channel."},
		handler:    (*Bot).registerChannel,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "unregister", Description: "Unregisters the current channel."},
		handler:    (*Bot).unregisterChannel,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "listregistered", Description: "Lists all registered channels."},
		handler:    (*Bot).listRegistered,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "charlist", Description: "Lists all active characters."},
		handler:    (*Bot).listCharacters,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "clear", Description: "Clears the chat log for the current channel."},
		handler:    (*Bot).clearLog,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "cont", Description: "Continues the chat log for the current channel."},
		handler:    (*Bot).continueChat,
	},
	{
		definition: &discordgo.ApplicationCommand{
			Name:        "setbotname",
			Description: "Sets the name of the bot.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "The name to set.", Required: true},
			},
		},
		handler: (*Bot).setBotName,
	},
	{
		definition: &discordgo.ApplicationCommand{
			Name:        "setmultiline",
			Description: "Sets whether the bot will send multiple lines of text at once.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "multiline", Description: "Whether to send multiple lines of text at once.", Required: true},
			},
		},
		handler: (*Bot).setMultiLine,
	},
	{
		definition: &discordgo.ApplicationCommand{
			Name:        "hismessages",
			Description: "Sets the maximum number of messages to include in the prompt.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "maxmessages", Description: "The maximum number of messages to include in the prompt.", Required: true},
			},
		},
		handler: (*Bot).setMaxMessages,
	},
	{
		definition: &discordgo.ApplicationCommand{
			Name:        "setautoreply",
			Description: "Sets whether the bot will automatically reply to messages.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "autoreply", Description: "Whether to automatically reply to messages.", Required: true},
			},
		},
		handler: (*Bot).setAutoReply,
	},
	{
		definition: &discordgo.ApplicationCommand{
			Name:        "alias",
			Description: "Sets an alias for a user in the current channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "alias", Description: "The alias to set.", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to set the alias for."},
			},
		},
		handler: (*Bot).setAlias,
	},
	{
		definition: &discordgo.ApplicationCommand{Name: "clearallwebhooks", Description: "Clears all webhooks for the current channel."},
		handler:    (*Bot).clearAllWebhooks,
	},
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(commands))
	for i, c := range commands {
		defs[i] = c.definition
	}
	return defs
}

func toCommandRequest(i *discordgo.Interaction) commandRequest {
	data := i.ApplicationCommandData()
	req := commandRequest{
		Name:      data.Name,
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		Options:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
	}
	for _, opt := range data.Options {
		req.Options[opt.Name] = opt
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
		req.UserName = displayName(i.Member, i.Member.User)
	case i.User != nil:
		req.UserID = i.User.ID
		req.UserName = displayName(nil, i.User)
	}
	return req
}

func (b *Bot) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	req := toCommandRequest(i)
	reply := b.runCommand(ctx, req)

	var flags discordgo.MessageFlags
	if reply.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  reply.Embeds,
			Flags:   flags,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("[Discord] Interaction reply failed command=%s err=%v", req.Name, err)
		return
	}
	if reply.after != nil {
		reply.after(ctx)
	}
}

// runCommand dispatches a slash command and maps failures to a generic reply
func (b *Bot) runCommand(ctx context.Context, req commandRequest) commandReply {
	if req.ChannelID == "" || req.GuildID == "" {
		return commandReply{Content: guildOnlyReply, Ephemeral: true}
	}
	for _, c := range commands {
		if c.definition.Name != req.Name {
			continue
		}
		reply, err := c.handler(b, ctx, req)
		if err != nil {
			log.Printf("[Discord] Command failed command=%s channel_id=%s err=%v", req.Name, req.ChannelID, err)
			return commandReply{Content: commandErrorReply, Ephemeral: true}
		}
		log.Printf("[Discord] Command executed command=%s channel_id=%s", req.Name, req.ChannelID)
		return reply
	}
	return commandReply{Content: fmt.Sprintf("Unknown command %q.", req.Name), Ephemeral: true}
}

func (b *Bot) registerChannel(_ context.Context, req commandRequest) (commandReply, error) {
	if err := b.state.RegisterChannel(req.ChannelID, req.GuildID); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: "Channel registered.", Ephemeral: true}, nil
}

func (b *Bot) unregisterChannel(_ context.Context, req commandRequest) (commandReply, error) {
	if err := b.state.UnregisterChannel(req.ChannelID); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: "Channel unregistered.", Ephemeral: true}, nil
}

func (b *Bot) listRegistered(context.Context, commandRequest) (commandReply, error) {
	var sb strings.Builder
	sb.WriteString("Registered Channels:\n")
	for _, ch := range b.state.Channels() {
		sb.WriteString("<#" + ch.ID + ">\n")
	}
	return commandReply{Content: sb.String(), Ephemeral: true}, nil
}

func (b *Bot) listCharacters(context.Context, commandRequest) (commandReply, error) {
	embed := &discordgo.MessageEmbed{Title: "Active Characters"}
	for i, id := range b.state.ActiveConstructs() {
		construct, err := b.store.GetConstruct(id)
		if err != nil {
			log.Printf("[Discord] charlist skipped missing construct id=%s err=%v", id, err)
			continue
		}
		status := "Secondary"
		if i == 0 {
			status = "Primary"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: construct.Name, Value: status})
	}
	return commandReply{Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (b *Bot) clearLog(_ context.Context, req commandRequest) (commandReply, error) {
	if err := b.store.RemoveChat(req.ChannelID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return commandReply{}, err
	}
	return commandReply{Content: "Chat log cleared."}, nil
}

func (b *Bot) continueChat(_ context.Context, req commandRequest) (commandReply, error) {
	return commandReply{
		Content: "Continuing...",
		after: func(ctx context.Context) {
			outcome := b.orch.Continue(ctx, b, req.ChannelID, req.UserID, req.UserName)
			log.Printf("[Discord] Continue finished channel_id=%s outcome=%s", req.ChannelID, outcome)
		},
	}, nil
}

func (b *Bot) setBotName(ctx context.Context, req commandRequest) (commandReply, error) {
	name := optionString(req, "name")
	if name == "" {
		return commandReply{}, errors.New("name is required")
	}
	b.setNickname(ctx, name)
	return commandReply{Content: "Set bot name to " + name, Ephemeral: true}, nil
}

func (b *Bot) setMultiLine(_ context.Context, req commandRequest) (commandReply, error) {
	on := optionBool(req, "multiline")
	if err := b.state.SetMultiLine(on); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: fmt.Sprintf("Set multiline to %t", on), Ephemeral: true}, nil
}

func (b *Bot) setMaxMessages(_ context.Context, req commandRequest) (commandReply, error) {
	n := optionInt(req, "maxmessages")
	if err := b.state.SetMaxMessages(int(n)); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: fmt.Sprintf("Set max messages to %d", n), Ephemeral: true}, nil
}

func (b *Bot) setAutoReply(_ context.Context, req commandRequest) (commandReply, error) {
	on := optionBool(req, "autoreply")
	if err := b.state.SetAutoReply(on); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: fmt.Sprintf("Set auto reply to %t", on), Ephemeral: true}, nil
}

func (b *Bot) setAlias(_ context.Context, req commandRequest) (commandReply, error) {
	userID := optionString(req, "user")
	if userID == "" {
		userID = req.UserID
	}
	name := optionString(req, "alias")
	if err := b.state.SetAlias(req.ChannelID, req.GuildID, models.Alias{UserID: userID, Name: name}); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: fmt.Sprintf("Alias %s set for <@%s>.", name, userID), Ephemeral: true}, nil
}

func (b *Bot) clearAllWebhooks(ctx context.Context, req commandRequest) (commandReply, error) {
	if err := b.ClearWebhooks(ctx, req.ChannelID); err != nil {
		return commandReply{}, err
	}
	return commandReply{Content: "Cleared all webhooks for this channel.", Ephemeral: true}, nil
}

// Option values arrive decoded from JSON: strings, bools and float64 numbers.
// User options carry the user id as a string.

func optionString(req commandRequest, name string) string {
	opt, ok := req.Options[name]
	if !ok {
		return ""
	}
	s, _ := opt.Value.(string)
	return strings.TrimSpace(s)
}

func optionBool(req commandRequest, name string) bool {
	opt, ok := req.Options[name]
	if !ok {
		return false
	}
	v, _ := opt.Value.(bool)
	return v
}

func optionInt(req commandRequest, name string) int64 {
	opt, ok := req.Options[name]
	if !ok {
		return 0
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
