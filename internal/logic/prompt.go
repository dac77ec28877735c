package logic

import (
	"strings"

	"construct-chat/internal/models"
)

// Template tokens substituted at prompt-build time
const (
	CharToken = "{{char}}"
	UserToken = "{{user}}"
)

// PersonaBlock renders the persona description that opens every prompt.
// Empty sections are omitted entirely.
func PersonaBlock(c models.Construct) string {
	var b strings.Builder

	if len(strings.TrimSpace(c.Background)) > 1 {
		b.WriteString(c.Background + "\n")
	}
	writeList(&b, "Interests:", c.Interests)
	writeList(&b, "Relationships:", c.Relationships)
	if len(strings.TrimSpace(c.Personality)) > 1 {
		b.WriteString(c.Personality + "\n")
	}

	return strings.ReplaceAll(b.String(), CharToken, c.Name)
}

func writeList(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}

// FormatHistory renders messages as "user: text" lines in chronological order
func FormatHistory(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.User + ": " + strings.TrimSpace(m.Text) + "\n")
	}
	return b.String()
}

// AssemblePrompt builds the completion prompt for construct c: the persona
// block, the last messagesToInclude messages of the chat, and a trailing
// "{name}:" cue. A non-positive messagesToInclude includes the whole log.
func AssemblePrompt(c models.Construct, chat *models.ChatLog, userLabel string, messagesToInclude int) string {
	var b strings.Builder
	b.WriteString(PersonaBlock(c))
	b.WriteString("Current Conversation:\n")
	if chat != nil {
		b.WriteString(FormatHistory(chat.Recent(messagesToInclude)))
	}
	b.WriteString(c.Name + ":")
	return strings.ReplaceAll(b.String(), UserToken, userLabel)
}
