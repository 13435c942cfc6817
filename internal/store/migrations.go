package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Voice commands - ordered keyword table; position decides match priority
		`CREATE TABLE IF NOT EXISTS voice_commands (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			keywords TEXT NOT NULL DEFAULT '[]',
			pitch REAL NOT NULL DEFAULT 0,
			yaw REAL NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Utterances - history of final transcripts and what they matched
		`CREATE TABLE IF NOT EXISTS utterances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			command_id TEXT REFERENCES voice_commands(id) ON DELETE SET NULL,
			command_name TEXT NOT NULL DEFAULT '',
			matched INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT 'speech',
			received_at DATETIME NOT NULL
		)`,

		// Settings - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_voice_commands_position ON voice_commands(position)`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_received_at ON utterances(received_at)`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_command_id ON utterances(command_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
