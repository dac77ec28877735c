package db

// Migrate runs all database migrations
func (d *DB) Migrate() error {
	return d.WithLock(func() error {
		// Documents of every collection share one table keyed by (collection, id)
		_, err := d.db.Exec(`
			CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				id TEXT NOT NULL,
				rev INTEGER NOT NULL DEFAULT 1,
				data TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (collection, id)
			)
		`)
		if err != nil {
			return err
		}

		_, err = d.db.Exec(`
			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}

		_, err = d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, created_at)`)
		return err
	})
}
