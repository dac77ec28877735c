package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chat log types
const (
	ChatTypeDiscord = "Discord"
	ChatTypeLocal   = "Local"
	ChatTypeAPI     = "API"
)

// AttachmentTypeUnknown is used when the surface reports no content type
const AttachmentTypeUnknown = "unknown"

// Attachment is a file carried by a message
type Attachment struct {
	ID       string `json:"id"`
	Rev      int    `json:"rev,omitempty"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	FileExt  string `json:"fileext"`
	Size     int    `json:"size"`
}

// Message is a single utterance in a chat log
type Message struct {
	ID           string       `json:"id"`
	User         string       `json:"user"`
	Avatar       string       `json:"avatar"`
	Text         string       `json:"text"`
	UserID       string       `json:"userID"`
	Timestamp    time.Time    `json:"timestamp"`
	Origin       string       `json:"origin"`
	IsCommand    bool         `json:"isCommand"`
	IsPrivate    bool         `json:"isPrivate"`
	IsHuman      bool         `json:"isHuman"`
	Participants []string     `json:"participants"`
	Attachments  []Attachment `json:"attachments"`
}

// ChatLog is the persisted history of one conversation surface.
// LastMessage and LastMessageDate always describe the final element of Messages.
type ChatLog struct {
	ID               string    `json:"id"`
	Rev              int       `json:"rev,omitempty"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Messages         []Message `json:"messages"`
	LastMessage      *Message  `json:"lastMessage"`
	LastMessageDate  time.Time `json:"lastMessageDate"`
	FirstMessageDate time.Time `json:"firstMessageDate"`
	Agents           []string  `json:"agents"`
}

// NewMessageID returns a time-ordered message identifier
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewChatLog creates a chat log seeded with its first message
func NewChatLog(id, name, chatType string, first Message, agents []string) *ChatLog {
	chat := &ChatLog{
		ID:               id,
		Name:             name,
		Type:             chatType,
		Messages:         []Message{first},
		FirstMessageDate: first.Timestamp,
		Agents:           append([]string(nil), agents...),
	}
	chat.touch()
	return chat
}

// Append adds a message to the end of the log
func (c *ChatLog) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	if len(c.Messages) == 1 {
		c.FirstMessageDate = msg.Timestamp
	}
	c.touch()
}

// IndexOfText returns the index of the first message whose text equals text, or -1
func (c *ChatLog) IndexOfText(text string) int {
	for i, m := range c.Messages {
		if m.Text == text {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the message at index i and returns it
func (c *ChatLog) RemoveAt(i int) Message {
	removed := c.Messages[i]
	c.Messages = append(c.Messages[:i:i], c.Messages[i+1:]...)
	c.touch()
	return removed
}

// InsertAt places msg at index i, shifting later messages back
func (c *ChatLog) InsertAt(i int, msg Message) {
	if i >= len(c.Messages) {
		c.Append(msg)
		return
	}
	c.Messages = append(c.Messages[:i:i], append([]Message{msg}, c.Messages[i:]...)...)
	c.touch()
}

// Recent returns the last n messages, or all of them when n <= 0
func (c *ChatLog) Recent(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

func (c *ChatLog) touch() {
	if len(c.Messages) == 0 {
		c.LastMessage = nil
		c.LastMessageDate = time.Time{}
		return
	}
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
	c.LastMessageDate = last.Timestamp
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
