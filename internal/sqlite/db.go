package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would otherwise get its own database.
	if strings.Contains(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it does not exist yet.
func (db *DB) RunMigrations() error {
	migration := `
-- Conference sessions; imports upsert on (name, start_time, room)
CREATE TABLE IF NOT EXISTS conference_sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMP NOT NULL,
    length_minutes INTEGER NOT NULL DEFAULT 0,
    room TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (name, start_time, room)
);

-- Presentations
CREATE TABLE IF NOT EXISTS presentations (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    speaker_name TEXT NOT NULL DEFAULT '',
    speaker_email TEXT NOT NULL DEFAULT '',
    co_speakers TEXT NOT NULL DEFAULT '',
    presentation_type TEXT NOT NULL DEFAULT '',
    audience_level TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    scheduled_time TIMESTAMP,
    length_minutes INTEGER NOT NULL DEFAULT 0,
    room TEXT NOT NULL DEFAULT '',
    session_id TEXT,
    file_ref TEXT,
    file_provider TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES conference_sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_presentations_scheduled ON presentations(scheduled_time);
CREATE INDEX IF NOT EXISTS idx_presentations_room ON presentations(room);
CREATE INDEX IF NOT EXISTS idx_presentations_session ON presentations(session_id);

-- Audit log (append-only)
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    presentation_id TEXT,
    user_name TEXT NOT NULL,
    details TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_presentation ON audit_log(presentation_id);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_log(created_at);

-- Full-text search over presentations (SQLite FTS5)
CREATE VIRTUAL TABLE IF NOT EXISTS presentations_fts USING fts5(
    title,
    description,
    speaker_name,
    tags,
    content='presentations',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS presentations_ai AFTER INSERT ON presentations BEGIN
    INSERT INTO presentations_fts(rowid, title, description, speaker_name, tags)
    VALUES (new.rowid, new.title, new.description, new.speaker_name, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS presentations_au AFTER UPDATE ON presentations BEGIN
    INSERT INTO presentations_fts(presentations_fts, rowid, title, description, speaker_name, tags)
    VALUES('delete', old.rowid, old.title, old.description, old.speaker_name, old.tags);
    INSERT INTO presentations_fts(rowid, title, description, speaker_name, tags)
    VALUES (new.rowid, new.title, new.description, new.speaker_name, new.tags);
END;

-- Signed-in storage account (refresh token for silent token acquisition)
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    refresh_token TEXT NOT NULL,
    access_token TEXT NOT NULL DEFAULT '',
    token_type TEXT NOT NULL DEFAULT '',
    expiry TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- API keys for authentication
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
