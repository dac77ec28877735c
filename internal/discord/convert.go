package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
)

// toInbound normalizes a gateway message for the orchestrator
func toInbound(m *discordgo.Message) orchestrator.InboundMessage {
	in := orchestrator.InboundMessage{
		ID:          m.ID,
		SurfaceID:   m.ChannelID,
		GuildID:     m.GuildID,
		IsDirect:    m.GuildID == "",
		Text:        m.Content,
		Timestamp:   m.Timestamp,
		Origin:      models.ChatTypeDiscord,
		Attachments: convertAttachments(m.Attachments),
	}
	if m.Author != nil {
		in.AuthorID = m.Author.ID
		in.AuthorIsBot = m.Author.Bot
		in.AuthorName = displayName(m.Member, m.Author)
	}
	// webhook posts come from the bot's own persona identities
	if m.WebhookID != "" {
		in.AuthorIsBot = true
	}
	return in
}

// displayName prefers the guild nickname, then the global name, then the username
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func convertAttachments(in []*discordgo.MessageAttachment) []models.Attachment {
	out := make([]models.Attachment, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		kind := a.ContentType
		if kind == "" {
			kind = models.AttachmentTypeUnknown
		}
		out = append(out, models.Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			Type:     kind,
			Data:     a.URL,
			FileExt:  fileExt(a.Filename),
			Size:     a.Size,
		})
	}
	return out
}

func fileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// avatarDataURI turns a stored avatar into the form the webhook API accepts
func avatarDataURI(avatar string) string {
	switch {
	case avatar == "":
		return ""
	case strings.HasPrefix(avatar, "data:"):
		return avatar
	case strings.HasPrefix(avatar, "http://"), strings.HasPrefix(avatar, "https://"):
		// remote avatars are not uploaded
		return ""
	default:
		return "data:image/png;base64," + avatar
	}
}
