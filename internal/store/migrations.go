package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - key/value slots, including the last recording
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recordings table - metadata of every finished recording
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			media_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			fragments INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recordings_stopped_at ON recordings(stopped_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
