package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Recorded training samples. Append-only during recording.
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			label TEXT NOT NULL,
			vector TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trained model artifacts, stored whole as JSON.
		`CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			artifact TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_session ON samples(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_models_created ON models(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
