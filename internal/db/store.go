package db

import (
	"log"

	"construct-chat/internal/models"
)

// Store groups the typed collections used by the application
type Store struct {
	*DB
	Constructs  *Collection[models.Construct]
	Chats       *Collection[models.ChatLog]
	Commands    *Collection[models.Command]
	Attachments *Collection[models.Attachment]
}

// NewStore wraps an opened, migrated database
func NewStore(d *DB) *Store {
	return &Store{
		DB:          d,
		Constructs:  NewCollection[models.Construct](d, CollectionConstructs),
		Chats:       NewCollection[models.ChatLog](d, CollectionChats),
		Commands:    NewCollection[models.Command](d, CollectionCommands),
		Attachments: NewCollection[models.Attachment](d, CollectionAttachments),
	}
}

// GetConstruct loads a construct by id
func (s *Store) GetConstruct(id string) (models.Construct, error) {
	return s.Constructs.Get(id)
}

// ListConstructs returns all stored constructs
func (s *Store) ListConstructs() ([]models.Construct, error) {
	return s.Constructs.All()
}

// GetChat loads a chat log by id
func (s *Store) GetChat(id string) (*models.ChatLog, error) {
	chat, err := s.Chats.Get(id)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// AddChat creates a chat log
func (s *Store) AddChat(chat *models.ChatLog) error {
	rev, err := s.Chats.Put(chat.ID, *chat)
	if err != nil {
		log.Printf("[DB] AddChat failed chat_id=%s err=%v", chat.ID, err)
		return err
	}
	chat.Rev = rev
	return nil
}

// UpdateChat merges the chat log over its stored revision
func (s *Store) UpdateChat(chat *models.ChatLog) error {
	rev, err := s.Chats.Update(chat.ID, *chat)
	if err != nil {
		log.Printf("[DB] UpdateChat failed chat_id=%s err=%v", chat.ID, err)
		return err
	}
	chat.Rev = rev
	return nil
}

// RemoveChat deletes a chat log
func (s *Store) RemoveChat(id string) error {
	return s.Chats.Remove(id)
}

// ClearAll wipes every collection and setting
func (s *Store) ClearAll() error {
	for _, clear := range []func() error{s.Constructs.Clear, s.Chats.Clear, s.Commands.Clear, s.Attachments.Clear} {
		if err := clear(); err != nil {
			return err
		}
	}
	return s.WithLock(func() error {
		_, err := s.db.Exec(`DELETE FROM settings`)
		return err
	})
}
