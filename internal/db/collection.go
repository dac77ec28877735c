package db

import (
	"database/sql"
	"encoding/json"
	"log"

	"github.com/pkg/errors"
)

// Collection names
const (
	CollectionConstructs  = "constructs"
	CollectionChats       = "chats"
	CollectionCommands    = "commands"
	CollectionAttachments = "attachments"
)

// Collection is a typed view over one document collection. Documents are
// stored as JSON; the id and rev keys are owned by the store.
type Collection[T any] struct {
	db   *DB
	name string
}

// NewCollection returns a typed collection handle
func NewCollection[T any](d *DB, name string) *Collection[T] {
	return &Collection[T]{db: d, name: name}
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads a document by id
func (c *Collection[T]) Get(id string) (T, error) {
	return WithLockResult(c.db, func() (T, error) {
		var doc T
		raw, err := c.load(id)
		if err != nil {
			return doc, err
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return doc, errors.Wrapf(err, "failed to decode %s/%s", c.name, id)
		}
		return doc, nil
	})
}

// All returns every document in creation order
func (c *Collection[T]) All() ([]T, error) {
	return WithLockResult(c.db, func() ([]T, error) {
		rows, err := c.db.db.Query(
			`SELECT id, data FROM documents WHERE collection = ? ORDER BY created_at, rowid`,
			c.name,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to query %s", c.name)
		}
		defer rows.Close()

		docs := []T{}
		for rows.Next() {
			var id, data string
			if err := rows.Scan(&id, &data); err != nil {
				return nil, errors.Wrapf(err, "failed to scan %s", c.name)
			}
			var doc T
			if err := json.Unmarshal([]byte(data), &doc); err != nil {
				log.Printf("[DB] Skipping undecodable document collection=%s id=%s err=%v", c.name, id, err)
				continue
			}
			docs = append(docs, doc)
		}
		return docs, rows.Err()
	})
}

// Put creates a new document and returns its revision
func (c *Collection[T]) Put(id string, doc T) (int, error) {
	if id == "" {
		return 0, errors.Errorf("%s: document id is required", c.name)
	}
	return WithLockResult(c.db, func() (int, error) {
		var exists int
		err := c.db.db.QueryRow(
			`SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?`, c.name, id,
		).Scan(&exists)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to check %s/%s", c.name, id)
		}
		if exists > 0 {
			return 0, errors.Wrapf(ErrConflict, "%s/%s", c.name, id)
		}

		fields, err := toFields(doc)
		if err != nil {
			return 0, err
		}
		data, err := encodeFields(fields, id, 1)
		if err != nil {
			return 0, err
		}

		_, err = c.db.db.Exec(
			`INSERT INTO documents (collection, id, rev, data) VALUES (?, ?, 1, ?)`,
			c.name, id, data,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert %s/%s", c.name, id)
		}
		return 1, nil
	})
}

// Update merges doc over the stored document. Keys present in doc replace the
// stored ones, keys only present in storage are kept, and the revision is bumped.
func (c *Collection[T]) Update(id string, doc T) (int, error) {
	return WithLockResult(c.db, func() (int, error) {
		var rev int
		var data string
		err := c.db.db.QueryRow(
			`SELECT rev, data FROM documents WHERE collection = ? AND id = ?`, c.name, id,
		).Scan(&rev, &data)
		if err == sql.ErrNoRows {
			return 0, errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "failed to load %s/%s", c.name, id)
		}

		merged := map[string]json.RawMessage{}
		if err := json.Unmarshal([]byte(data), &merged); err != nil {
			return 0, errors.Wrapf(err, "failed to decode stored %s/%s", c.name, id)
		}
		incoming, err := toFields(doc)
		if err != nil {
			return 0, err
		}
		for k, v := range incoming {
			merged[k] = v
		}

		rev++
		encoded, err := encodeFields(merged, id, rev)
		if err != nil {
			return 0, err
		}

		_, err = c.db.db.Exec(
			`UPDATE documents SET rev = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`,
			rev, encoded, c.name, id,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to update %s/%s", c.name, id)
		}
		return rev, nil
	})
}

// Remove deletes a document by id
func (c *Collection[T]) Remove(id string) error {
	return c.db.WithLock(func() error {
		result, err := c.db.db.Exec(`DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
		if err != nil {
			return errors.Wrapf(err, "failed to delete %s/%s", c.name, id)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
		}
		return nil
	})
}

// Clear deletes every document in the collection
func (c *Collection[T]) Clear() error {
	return c.db.WithLock(func() error {
		_, err := c.db.db.Exec(`DELETE FROM documents WHERE collection = ?`, c.name)
		return errors.Wrapf(err, "failed to clear %s", c.name)
	})
}

func (c *Collection[T]) load(id string) ([]byte, error) {
	var data string
	err := c.db.db.QueryRow(
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, c.name, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s/%s", c.name, id)
	}
	return []byte(data), nil
}

func toFields(doc any) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "document must encode to a JSON object")
	}
	return fields, nil
}

func encodeFields(fields map[string]json.RawMessage, id string, rev int) (string, error) {
	idJSON, _ := json.Marshal(id)
	revJSON, _ := json.Marshal(rev)
	fields["id"] = idJSON
	fields["rev"] = revJSON
	out, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode document")
	}
	return string(out), nil
}
