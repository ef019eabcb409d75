package store

import "database/sql"

// Migrate brings a fresh or existing database up to the current
// schema. Guarded by PRAGMA user_version the way a desktop sqlite app
// wants it: cheap, idempotent, no external tooling.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	if v < 1 {
		if err := migrateV1(tx); err != nil {
			return err
		}
	}
	if v < 2 {
		if err := migrateV2(tx); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 2;`); err != nil {
		return err
	}
	return tx.Commit()
}

const schemaVersion = 2

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  skills TEXT NOT NULL DEFAULT '[]',
  url TEXT NOT NULL UNIQUE,
  last_seen TEXT NOT NULL,
  archived_at TEXT
);
`,
		`
CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen DESC);
`,
		`
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  telegram_id INTEGER NOT NULL UNIQUE,
  username TEXT NOT NULL DEFAULT '',
  refresh_count INTEGER NOT NULL DEFAULT 0,
  vacancies_count INTEGER NOT NULL DEFAULT 0,
  last_reset_date TEXT NOT NULL DEFAULT ''
);
`,
		`
CREATE TABLE IF NOT EXISTS user_keywords (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  keyword TEXT NOT NULL,
  weight INTEGER NOT NULL,
  UNIQUE(user_id, keyword)
);
`,
		`
CREATE TABLE IF NOT EXISTS user_filtered_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  score INTEGER NOT NULL DEFAULT 0,
  added_at TEXT NOT NULL,
  UNIQUE(user_id, job_id)
);
`,
		`
CREATE INDEX IF NOT EXISTS idx_user_filtered_jobs_rank
ON user_filtered_jobs(user_id, score DESC);
`,
		`
CREATE TABLE IF NOT EXISTS user_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'sent',
  sent_at TEXT NOT NULL,
  UNIQUE(user_id, job_id)
);
`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// migrateV2 adds per-user region restriction. At most one region per
// user; no row means the user sees everything.
func migrateV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS user_regions (
  user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  region TEXT NOT NULL
);
`)
	return err
}
