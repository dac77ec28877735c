package db

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a document or setting does not exist
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when creating a document whose id is taken
	ErrConflict = errors.New("document already exists")
)

// DB wraps the SQLite database with mutex-based exclusive access
type DB struct {
	db    *sql.DB
	mutex sync.Mutex
}

// NewDB creates a new database connection with exclusive access control
func NewDB(dbPath string) (*DB, error) {
	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=on"

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// A single connection serializes writers; WAL keeps readers cheap.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &DB{db: sqlDB}, nil
}

// WithLock executes a function with exclusive database access
func (d *DB) WithLock(fn func() error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// WithLockResult executes a function with exclusive database access and returns a result
func WithLockResult[T any](d *DB, fn func() (T, error)) (T, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// tableExists checks if a table exists in the database
func (d *DB) tableExists(tableName string) (bool, error) {
	return WithLockResult(d, func() (bool, error) {
		var count int
		err := d.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			tableName,
		).Scan(&count)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
}
