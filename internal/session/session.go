// Package session holds the process-wide runtime configuration: backend
// connection, sampler settings, active personas, conversation flags and
// registered surfaces. It is loaded once at startup and every setter persists.
package session

import (
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

// Conversation modes
const (
	ModeCharacter = "Character"
	ModeConstruct = "Construct"
)

// DefaultMaxMessages is the history window used when none is configured
const DefaultMaxMessages = 25

// Store persists session values
type Store interface {
	GetSetting(key string, dest any) (bool, error)
	PutSetting(key string, value any) error
}

// ConversationSettings are the flags that steer the orchestrator
type ConversationSettings struct {
	Mode           string `json:"mode"`
	MultiCharacter bool   `json:"multiCharacter"`
	AutoReply      bool   `json:"autoReply"`
	MultiLine      bool   `json:"multiLine"`
	MaxMessages    int    `json:"maxMessages"`
}

// DiscordCredentials identify the bot application
type DiscordCredentials struct {
	Token string `json:"token"`
	AppID string `json:"appId"`
}

// ImageSettings configure the Stable Diffusion passthrough
type ImageSettings struct {
	APIURL        string `json:"apiUrl"`
	DefaultPrompt string `json:"defaultPrompt"`
}

type generationRecord struct {
	Settings     models.GenerationSettings `json:"settings"`
	StopBrackets bool                      `json:"stopBrackets"`
}

const (
	keyConnection   = "connection"
	keyGeneration   = "generation"
	keyConversation = "conversation"
	keyActive       = "activeConstructs"
	keyChannels     = "channels"
	keyDiscord      = "discord"
	keyImage        = "imagegen"
)

// Session is the single owner of mutable runtime configuration
type Session struct {
	mu    sync.RWMutex
	store Store

	connection   models.Connection
	generation   generationRecord
	conversation ConversationSettings
	active       []string
	channels     []models.RegisteredChannel
	discord      DiscordCredentials
	image        ImageSettings
}

// New returns a session with defaults, backed by store. A nil store keeps
// everything in memory.
func New(store Store) *Session {
	return &Session{
		store:      store,
		generation: generationRecord{StopBrackets: true},
		conversation: ConversationSettings{
			Mode:        ModeCharacter,
			MaxMessages: DefaultMaxMessages,
		},
		active:   []string{},
		channels: []models.RegisteredChannel{},
	}
}

// Load reads every persisted value, leaving defaults for keys never written
func Load(store Store) (*Session, error) {
	s := New(store)
	targets := map[string]any{
		keyConnection:   &s.connection,
		keyGeneration:   &s.generation,
		keyConversation: &s.conversation,
		keyActive:       &s.active,
		keyChannels:     &s.channels,
		keyDiscord:      &s.discord,
		keyImage:        &s.image,
	}
	for key, dest := range targets {
		if _, err := store.GetSetting(key, dest); err != nil {
			return nil, errors.Wrapf(err, "failed to load session key %s", key)
		}
	}
	if s.conversation.MaxMessages <= 0 {
		s.conversation.MaxMessages = DefaultMaxMessages
	}
	if s.conversation.Mode == "" {
		s.conversation.Mode = ModeCharacter
	}
	if s.active == nil {
		s.active = []string{}
	}
	if s.channels == nil {
		s.channels = []models.RegisteredChannel{}
	}
	log.Printf("[Session] Loaded endpoint_type=%s active=%d channels=%d mode=%s",
		s.connection.EndpointType, len(s.active), len(s.channels), s.conversation.Mode)
	return s, nil
}

// persist must be called with mu held
func (s *Session) persist(key string, value any) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.PutSetting(key, value); err != nil {
		log.Printf("[Session] Persist failed key=%s err=%v", key, err)
		return err
	}
	return nil
}

// Connection returns the stored backend connection info
func (s *Session) Connection() models.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connection
}

// SetConnection replaces the backend connection info. An empty password or
// Horde model keeps the stored one.
func (s *Session) SetConnection(conn models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn.Password == "" {
		conn.Password = s.connection.Password
	}
	if conn.HordeModel == "" {
		conn.HordeModel = s.connection.HordeModel
	}
	s.connection = conn
	return s.persist(keyConnection, s.connection)
}

// GenerationSettings returns the sampler settings and the stop-bracket flag
func (s *Session) GenerationSettings() (models.GenerationSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.generation.Settings
	settings.SamplerOrder = slices.Clone(settings.SamplerOrder)
	return settings, s.generation.StopBrackets
}

// SetGenerationSettings replaces the sampler settings. A nil stopBrackets
// leaves the flag unchanged.
func (s *Session) SetGenerationSettings(settings models.GenerationSettings, stopBrackets *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Settings = settings
	if stopBrackets != nil {
		s.generation.StopBrackets = *stopBrackets
	}
	return s.persist(keyGeneration, s.generation)
}

// Conversation returns a copy of the conversation flags
func (s *Session) Conversation() ConversationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation
}

// SetConversation replaces all conversation flags at once
func (s *Session) SetConversation(c ConversationSettings) error {
	if c.Mode != ModeCharacter && c.Mode != ModeConstruct {
		return errors.Errorf("unknown conversation mode %q", c.Mode)
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation = c
	return s.persist(keyConversation, s.conversation)
}

func (s *Session) updateConversation(fn func(c *ConversationSettings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.conversation)
	return s.persist(keyConversation, s.conversation)
}

// SetMode switches between Character and Construct mode
func (s *Session) SetMode(mode string) error {
	if mode != ModeCharacter && mode != ModeConstruct {
		return errors.Errorf("unknown conversation mode %q", mode)
	}
	return s.updateConversation(func(c *ConversationSettings) { c.Mode = mode })
}

// SetMultiCharacter toggles round-robin replies
func (s *Session) SetMultiCharacter(on bool) error {
	return s.updateConversation(func(c *ConversationSettings) { c.MultiCharacter = on })
}

// SetAutoReply toggles the probabilistic second round
func (s *Session) SetAutoReply(on bool) error {
	return s.updateConversation(func(c *ConversationSettings) { c.AutoReply = on })
}

// SetMultiLine toggles multi-line completions
func (s *Session) SetMultiLine(on bool) error {
	return s.updateConversation(func(c *ConversationSettings) { c.MultiLine = on })
}

// SetMaxMessages sets the history window; non-positive values reset the default
func (s *Session) SetMaxMessages(n int) error {
	if n <= 0 {
		n = DefaultMaxMessages
	}
	return s.updateConversation(func(c *ConversationSettings) { c.MaxMessages = n })
}

// ActiveConstructs returns the ordered active persona ids; index 0 is the primary
func (s *Session) ActiveConstructs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.active)
}

// IsActive reports whether id is in the active list
func (s *Session) IsActive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.active, id)
}

// AddActive appends id to the active list if it is not already present
func (s *Session) AddActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.active, id) {
		return nil
	}
	s.active = append(s.active, id)
	return s.persist(keyActive, s.active)
}

// RemoveActive drops id from the active list
func (s *Session) RemoveActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = slices.DeleteFunc(s.active, func(a string) bool { return a == id })
	return s.persist(keyActive, s.active)
}

// ClearActive empties the active list
func (s *Session) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = []string{}
	return s.persist(keyActive, s.active)
}

// SetPrimary moves id to the front of the active list, adding it if needed
func (s *Session) SetPrimary(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rest := slices.DeleteFunc(slices.Clone(s.active), func(a string) bool { return a == id })
	s.active = append([]string{id}, rest...)
	return s.persist(keyActive, s.active)
}

// Channels returns a copy of the registered surfaces
func (s *Session) Channels() []models.RegisteredChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RegisteredChannel, len(s.channels))
	for i, ch := range s.channels {
		ch.Constructs = slices.Clone(ch.Constructs)
		ch.Aliases = slices.Clone(ch.Aliases)
		out[i] = ch
	}
	return out
}

// IsRegistered reports whether the surface may receive replies
func (s *Session) IsRegistered(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfChannel(channelID) >= 0
}

func (s *Session) indexOfChannel(channelID string) int {
	return slices.IndexFunc(s.channels, func(ch models.RegisteredChannel) bool { return ch.ID == channelID })
}

func newChannel(channelID, guildID string) models.RegisteredChannel {
	return models.RegisteredChannel{ID: channelID, GuildID: guildID, Constructs: []string{}, Aliases: []models.Alias{}}
}

// RegisterChannel adds a surface; registering twice is a no-op
func (s *Session) RegisterChannel(channelID, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfChannel(channelID) >= 0 {
		return nil
	}
	s.channels = append(s.channels, newChannel(channelID, guildID))
	return s.persist(keyChannels, s.channels)
}

// UnregisterChannel removes a surface and its aliases
func (s *Session) UnregisterChannel(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = slices.DeleteFunc(s.channels, func(ch models.RegisteredChannel) bool { return ch.ID == channelID })
	return s.persist(keyChannels, s.channels)
}

// SetAlias records the name a user is addressed by on a surface. The surface
// is registered if it was not already.
func (s *Session) SetAlias(channelID, guildID string, alias models.Alias) error {
	if strings.TrimSpace(alias.Name) == "" {
		return errors.New("alias name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfChannel(channelID)
	if i < 0 {
		s.channels = append(s.channels, newChannel(channelID, guildID))
		i = len(s.channels) - 1
	}
	if alias.Location == "" {
		alias.Location = channelID
	}
	ch := &s.channels[i]
	if j := slices.IndexFunc(ch.Aliases, func(a models.Alias) bool { return a.UserID == alias.UserID }); j >= 0 {
		ch.Aliases[j] = alias
	} else {
		ch.Aliases = append(ch.Aliases, alias)
	}
	return s.persist(keyChannels, s.channels)
}

// ResolveAlias returns the alias for userID on channelID, if one exists
func (s *Session) ResolveAlias(channelID, userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfChannel(channelID)
	if i < 0 {
		return "", false
	}
	for _, a := range s.channels[i].Aliases {
		if a.UserID == userID {
			return a.Name, true
		}
	}
	return "", false
}

// Discord returns the bot credentials
func (s *Session) Discord() DiscordCredentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discord
}

// SetDiscord replaces the bot credentials
func (s *Session) SetDiscord(creds DiscordCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discord = creds
	return s.persist(keyDiscord, s.discord)
}

// ImageSettings returns the Stable Diffusion settings
func (s *Session) ImageSettings() ImageSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// SetImageSettings replaces the Stable Diffusion settings
func (s *Session) SetImageSettings(settings ImageSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = settings
	return s.persist(keyImage, s.image)
}
