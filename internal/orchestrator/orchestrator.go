// Package orchestrator turns inbound conversation messages into chat log
// updates and persona replies. All work runs strictly one message at a time.
package orchestrator

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"construct-chat/internal/db"
	"construct-chat/internal/llm"
	"construct-chat/internal/logic"
	"construct-chat/internal/models"
	"construct-chat/internal/session"
)

// ChatStore persists chat logs and reads constructs
type ChatStore interface {
	GetChat(id string) (*models.ChatLog, error)
	AddChat(chat *models.ChatLog) error
	UpdateChat(chat *models.ChatLog) error
	GetConstruct(id string) (models.Construct, error)
	ListConstructs() ([]models.Construct, error)
}

// Generator produces raw completions for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt, userLabel, charName string, stopList []string) ([]string, error)
}

// Surface delivers replies to a conversation surface
type Surface interface {
	Send(ctx context.Context, surfaceID, text string) (string, error)
	SendAsPersona(ctx context.Context, persona models.Construct, surfaceID, text string) (string, error)
	Edit(ctx context.Context, surfaceID, messageID, text string) error
	Delete(ctx context.Context, surfaceID, messageID string) error
	Typing(ctx context.Context, surfaceID string) error
}

// InboundMessage is a surface message normalized for orchestration
type InboundMessage struct {
	ID          string
	SurfaceID   string
	GuildID     string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	IsDirect    bool
	Text        string
	Timestamp   time.Time
	Attachments []models.Attachment
	Origin      string
}

// Outcome describes which path HandleMessage took
type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"
	OutcomeLoggedOnly      Outcome = "logged-only"
	OutcomeSingleReply     Outcome = "single-reply"
	OutcomeMultiReply      Outcome = "multi-reply"
	OutcomeConstructNotice Outcome = "construct-notice"
)

// MessageHook observes every message appended to a chat log
type MessageHook func(chatID string, msg models.Message)

// Orchestrator owns the reply pipeline
type Orchestrator struct {
	mu        sync.Mutex
	session   *session.Session
	store     ChatStore
	generator Generator
	random    func() float64
	now       func() time.Time
	onMessage MessageHook
}

// Option configures the orchestrator
type Option func(*Orchestrator)

// WithRandom injects the uniform [0,1) source used for turn skips and auto-reply
func WithRandom(fn func() float64) Option {
	return func(o *Orchestrator) {
		o.random = fn
	}
}

// WithClock injects the time source used for message timestamps
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = fn
	}
}

// WithMessageHook registers a callback for appended messages
func WithMessageHook(hook MessageHook) Option {
	return func(o *Orchestrator) {
		o.onMessage = hook
	}
}

// New creates an orchestrator
func New(sess *session.Session, store ChatStore, generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:   sess,
		store:     store,
		generator: generator,
		random:    rand.Float64,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetMessageHook replaces the appended-message callback
func (o *Orchestrator) SetMessageHook(hook MessageHook) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onMessage = hook
}

// HandleMessage runs the full pipeline for one inbound message
func (o *Orchestrator) HandleMessage(ctx context.Context, surface Surface, in InboundMessage) Outcome {
	if in.AuthorIsBot || in.IsDirect || strings.HasPrefix(in.Text, ".") {
		return OutcomeIgnored
	}
	if !o.session.IsRegistered(in.SurfaceID) {
		return OutcomeIgnored
	}
	active := o.session.ActiveConstructs()
	if len(active) == 0 {
		return OutcomeIgnored
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	constructs := o.loadConstructs(active)
	if len(constructs) == 0 {
		log.Printf("[Orchestrator] No active construct could be loaded surface_id=%s", in.SurfaceID)
		return OutcomeIgnored
	}

	userLabel := o.userLabel(in.SurfaceID, in.AuthorID, in.AuthorName)
	msg := o.toMessage(in, userLabel, active)

	chat := o.appendOrCreate(in, msg, constructs[0].Name, active)
	if chat == nil {
		return OutcomeIgnored
	}

	log.Printf("[Orchestrator] Message logged surface_id=%s user=%q messages=%d", in.SurfaceID, userLabel, len(chat.Messages))

	if strings.HasPrefix(in.Text, "-") {
		o.persist(chat)
		return OutcomeLoggedOnly
	}

	outcome := o.reply(ctx, surface, chat, constructs, in.SurfaceID, in.AuthorID, userLabel)
	o.persist(chat)
	return outcome
}

// Continue generates replies to the existing log without a new message
func (o *Orchestrator) Continue(ctx context.Context, surface Surface, surfaceID, authorID, authorName string) Outcome {
	if !o.session.IsRegistered(surfaceID) {
		return OutcomeIgnored
	}
	active := o.session.ActiveConstructs()
	if len(active) == 0 {
		return OutcomeIgnored
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	constructs := o.loadConstructs(active)
	if len(constructs) == 0 {
		return OutcomeIgnored
	}
	chat, err := o.store.GetChat(surfaceID)
	if err != nil || len(chat.Messages) == 0 {
		log.Printf("[Orchestrator] Continue skipped, no chat log surface_id=%s err=%v", surfaceID, err)
		return OutcomeIgnored
	}

	userLabel := o.userLabel(surfaceID, authorID, authorName)
	outcome := o.reply(ctx, surface, chat, constructs, surfaceID, authorID, userLabel)
	o.persist(chat)
	return outcome
}

// reply branches on the conversation mode. chat is mutated in place.
func (o *Orchestrator) reply(ctx context.Context, surface Surface, chat *models.ChatLog, constructs []models.Construct, surfaceID, authorID, userLabel string) Outcome {
	conv := o.session.Conversation()

	switch conv.Mode {
	case session.ModeConstruct:
		if _, err := surface.Send(ctx, surfaceID, logic.ConstructModeNotice); err != nil {
			log.Printf("[Orchestrator] Send notice failed surface_id=%s err=%v", surfaceID, err)
		}
		return OutcomeConstructNotice

	default:
		if err := surface.Typing(ctx, surfaceID); err != nil {
			log.Printf("[Orchestrator] Typing failed surface_id=%s err=%v", surfaceID, err)
		}
		if !conv.MultiCharacter {
			o.characterReply(ctx, surface, chat, constructs[0], surfaceID, authorID, userLabel, conv)
			return OutcomeSingleReply
		}
		o.roundRobin(ctx, surface, chat, constructs, surfaceID, authorID, userLabel, conv)
		if logic.ShouldAutoReply(conv.AutoReply, o.random()) {
			log.Printf("[Orchestrator] Auto-reply round surface_id=%s", surfaceID)
			o.roundRobin(ctx, surface, chat, constructs, surfaceID, authorID, userLabel, conv)
		}
		return OutcomeMultiReply
	}
}

// characterReply makes a single generation attempt for construct. A failed
// attempt leaves the chat untouched.
func (o *Orchestrator) characterReply(ctx context.Context, surface Surface, chat *models.ChatLog, construct models.Construct, surfaceID, authorID, userLabel string, conv session.ConversationSettings) bool {
	text, ok := o.generateReply(ctx, construct, chat, userLabel, conv)
	if !ok {
		log.Printf("[Orchestrator] No reply generated construct=%q surface_id=%s", construct.Name, surfaceID)
		return false
	}

	msg := o.replyMessage(construct, text, authorID, chat.Type)
	chat.Append(msg)
	o.publish(chat.ID, msg)

	if _, err := surface.Send(ctx, surfaceID, text); err != nil {
		log.Printf("[Orchestrator] Send failed construct=%q surface_id=%s err=%v", construct.Name, surfaceID, err)
	}
	return true
}

// generateReply runs prompt assembly, generation and splitting once
func (o *Orchestrator) generateReply(ctx context.Context, construct models.Construct, chat *models.ChatLog, userLabel string, conv session.ConversationSettings) (string, bool) {
	prompt := logic.AssemblePrompt(construct, chat, userLabel, conv.MaxMessages)
	results, err := o.generator.Generate(ctx, prompt, userLabel, construct.Name, nil)
	if err != nil {
		if !isNoGeneration(err) {
			log.Printf("[Orchestrator] Generation rejected construct=%q err=%v", construct.Name, err)
		}
		return "", false
	}
	text := logic.SplitCompletion(construct.Name, results[0], userLabel, nil, conv.MultiLine)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func (o *Orchestrator) replyMessage(construct models.Construct, text, authorID, origin string) models.Message {
	return models.Message{
		ID:           models.NewMessageID(),
		User:         construct.Name,
		Avatar:       construct.Avatar,
		Text:         text,
		UserID:       construct.ID,
		Timestamp:    o.now(),
		Origin:       origin,
		Participants: []string{authorID, construct.ID},
		Attachments:  []models.Attachment{},
	}
}

func (o *Orchestrator) loadConstructs(ids []string) []models.Construct {
	constructs := make([]models.Construct, 0, len(ids))
	for _, id := range ids {
		c, err := o.store.GetConstruct(id)
		if err != nil {
			log.Printf("[Orchestrator] Active construct missing id=%s err=%v", id, err)
			continue
		}
		constructs = append(constructs, c)
	}
	return constructs
}

// userLabel resolves the name personas address the author by
func (o *Orchestrator) userLabel(surfaceID, authorID, authorName string) string {
	if alias, ok := o.session.ResolveAlias(surfaceID, authorID); ok {
		return alias
	}
	if authorName != "" {
		return authorName
	}
	return "You"
}

func (o *Orchestrator) toMessage(in InboundMessage, userLabel string, active []string) models.Message {
	attachments := make([]models.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if a.Type == "" {
			a.Type = models.AttachmentTypeUnknown
		}
		attachments = append(attachments, a)
	}
	id := in.ID
	if id == "" {
		id = models.NewMessageID()
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = o.now()
	}
	return models.Message{
		ID:           id,
		User:         userLabel,
		Text:         strings.TrimSpace(in.Text),
		UserID:       in.AuthorID,
		Timestamp:    ts,
		Origin:       in.Origin,
		IsHuman:      true,
		Participants: append([]string{in.AuthorID}, active...),
		Attachments:  attachments,
	}
}

// appendOrCreate loads the surface's chat log and appends msg, creating the
// log only when the store reports none. Any other read or create failure
// returns nil and leaves the stored log untouched.
func (o *Orchestrator) appendOrCreate(in InboundMessage, msg models.Message, firstName string, active []string) *models.ChatLog {
	chat, err := o.store.GetChat(in.SurfaceID)
	switch {
	case err == nil && chat != nil:
		chat.Append(msg)
		o.publish(chat.ID, msg)
		return chat
	case err != nil && !errors.Is(err, db.ErrNotFound):
		log.Printf("[Orchestrator] GetChat failed surface_id=%s err=%v", in.SurfaceID, err)
		return nil
	}

	origin := in.Origin
	if origin == "" {
		origin = models.ChatTypeDiscord
	}
	chat = models.NewChatLog(in.SurfaceID, in.SurfaceID+" Chat "+firstName, origin, msg, active)
	if len(chat.Messages) == 0 {
		return nil
	}
	if err := o.store.AddChat(chat); err != nil {
		log.Printf("[Orchestrator] AddChat failed surface_id=%s err=%v", in.SurfaceID, err)
		return nil
	}
	o.publish(chat.ID, msg)
	return chat
}

func (o *Orchestrator) persist(chat *models.ChatLog) {
	if err := o.store.UpdateChat(chat); err != nil {
		log.Printf("[Orchestrator] UpdateChat failed chat_id=%s err=%v", chat.ID, err)
	}
}

func (o *Orchestrator) publish(chatID string, msg models.Message) {
	if o.onMessage != nil {
		o.onMessage(chatID, msg)
	}
}

func isNoGeneration(err error) bool {
	return errors.Is(err, llm.ErrNoGeneration)
}
