package orchestrator

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"construct-chat/internal/db"
	"construct-chat/internal/llm"
	"construct-chat/internal/models"
)

type fakeStore struct {
	mu         sync.Mutex
	chats      map[string]models.ChatLog
	constructs map[string]models.Construct
	updates    int
	adds       int
	// getErr is returned by GetChat when set
	getErr error
}

func newFakeStore(constructs ...models.Construct) *fakeStore {
	s := &fakeStore{chats: map[string]models.ChatLog{}, constructs: map[string]models.Construct{}}
	for _, c := range constructs {
		s.constructs[c.ID] = c
	}
	return s
}

func cloneChat(c models.ChatLog) models.ChatLog {
	c.Messages = append([]models.Message(nil), c.Messages...)
	return c
}

func (s *fakeStore) GetChat(id string) (*models.ChatLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	chat, ok := s.chats[id]
	if !ok {
		return nil, errors.Wrap(db.ErrNotFound, id)
	}
	c := cloneChat(chat)
	return &c, nil
}

func (s *fakeStore) AddChat(chat *models.ChatLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; ok {
		return db.ErrConflict
	}
	s.adds++
	s.chats[chat.ID] = cloneChat(*chat)
	return nil
}

func (s *fakeStore) UpdateChat(chat *models.ChatLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; !ok {
		return db.ErrNotFound
	}
	s.updates++
	s.chats[chat.ID] = cloneChat(*chat)
	return nil
}

func (s *fakeStore) GetConstruct(id string) (models.Construct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.constructs[id]
	if !ok {
		return models.Construct{}, db.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) ListConstructs() ([]models.Construct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Construct, 0, len(s.constructs))
	for _, c := range s.constructs {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) chat(id string) models.ChatLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[id]
}

type generateCall struct {
	prompt    string
	userLabel string
	charName  string
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	reply func(call generateCall) (string, bool)
}

func (g *fakeGenerator) Generate(_ context.Context, prompt, userLabel, charName string, _ []string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := generateCall{prompt: prompt, userLabel: userLabel, charName: charName}
	g.calls = append(g.calls, call)
	if g.reply == nil {
		return []string{"Hi from " + charName}, nil
	}
	text, ok := g.reply(call)
	if !ok {
		return nil, &llm.GenerationError{Backend: models.EndpointKobold, Err: errors.New("offline")}
	}
	return []string{text}, nil
}

func (g *fakeGenerator) callsFor(charName string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.charName == charName {
			n++
		}
	}
	return n
}

type delivery struct {
	persona string
	text    string
}

type fakeSurface struct {
	mu      sync.Mutex
	sent    []delivery
	edits   map[string]string
	deleted []string
	typing  int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{edits: map[string]string{}}
}

func (s *fakeSurface) Send(_ context.Context, _, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, delivery{text: text})
	return "bot-msg", nil
}

func (s *fakeSurface) SendAsPersona(_ context.Context, persona models.Construct, _, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, delivery{persona: persona.Name, text: text})
	return "hook-msg", nil
}

func (s *fakeSurface) Edit(_ context.Context, _, messageID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[messageID] = text
	return nil
}

func (s *fakeSurface) Delete(_ context.Context, _, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *fakeSurface) Typing(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing++
	return nil
}

func aliasFor(userID, name string) models.Alias {
	return models.Alias{UserID: userID, Name: name}
}
