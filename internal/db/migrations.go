package db

// RunMigrations runs database migrations.
func (r *Repository) RunMigrations() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT UNIQUE NOT NULL COLLATE NOCASE,
            email TEXT UNIQUE NOT NULL COLLATE NOCASE,
            password_hash TEXT NOT NULL,
            avatar_url TEXT NOT NULL DEFAULT '',
            is_admin BOOLEAN NOT NULL DEFAULT 0,
            is_banned BOOLEAN NOT NULL DEFAULT 0,
            email_verified BOOLEAN NOT NULL DEFAULT 0,
            verification_token TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS blips (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            content TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            is_deleted BOOLEAN NOT NULL DEFAULT 0,
            FOREIGN KEY (user_id) REFERENCES users(id)
        )`,
		`CREATE TABLE IF NOT EXISTS reactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            blip_id INTEGER NOT NULL,
            reaction_type TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            FOREIGN KEY (user_id) REFERENCES users(id),
            FOREIGN KEY (blip_id) REFERENCES blips(id),
            UNIQUE(user_id, blip_id)
        )`,
		`CREATE TABLE IF NOT EXISTS reports (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reporter_id INTEGER NOT NULL,
            reported_user_id INTEGER,
            reported_blip_id INTEGER,
            reason TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME NOT NULL,
            resolved_at DATETIME,
            FOREIGN KEY (reporter_id) REFERENCES users(id),
            FOREIGN KEY (reported_user_id) REFERENCES users(id),
            FOREIGN KEY (reported_blip_id) REFERENCES blips(id),
            CHECK (reported_user_id IS NOT NULL OR reported_blip_id IS NOT NULL)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_blips_user_id ON blips(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_blips_feed ON blips(is_deleted, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_blip_id ON reactions(blip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
