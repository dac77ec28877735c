package db

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
)

// GetSetting decodes the stored value for key into dest. It reports false
// when the key has never been written.
func (d *DB) GetSetting(key string, dest any) (bool, error) {
	return WithLockResult(d, func() (bool, error) {
		var value string
		err := d.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrapf(err, "failed to load setting %s", key)
		}
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			return false, errors.Wrapf(err, "failed to decode setting %s", key)
		}
		return true, nil
	})
}

// PutSetting stores value under key, replacing any previous value
func (d *DB) PutSetting(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode setting %s", key)
	}
	return d.WithLock(func() error {
		_, err := d.db.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, string(data))
		return errors.Wrapf(err, "failed to store setting %s", key)
	})
}
