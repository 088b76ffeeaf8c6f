// Package matchdb persists accepted fuzzy channel matches in a small
// sqlite database so repeat lookups skip the scan across runs.
package matchdb

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS channel_matches (
	norm_name  TEXT PRIMARY KEY,
	guide_id   TEXT NOT NULL,
	ratio      REAL NOT NULL,
	matched_at TEXT NOT NULL
);`

// DB is a guide.MatchMemo backed by sqlite. Safe for concurrent use.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the match database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("matchdb open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("matchdb schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Lookup returns the remembered guide id for a normalized channel name.
func (d *DB) Lookup(normName string) (string, bool) {
	var id string
	err := d.db.QueryRow(`SELECT guide_id FROM channel_matches WHERE norm_name = ?`, normName).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Printf("matchdb: lookup %q: %v", normName, err)
		return "", false
	}
	return id, true
}

// Store remembers an accepted fuzzy match, replacing any previous one.
func (d *DB) Store(normName, guideID string, ratio float64) {
	_, err := d.db.Exec(
		`INSERT INTO channel_matches (norm_name, guide_id, ratio, matched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(norm_name) DO UPDATE SET guide_id = excluded.guide_id, ratio = excluded.ratio, matched_at = excluded.matched_at`,
		normName, guideID, ratio, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		log.Printf("matchdb: store %q: %v", normName, err)
	}
}

// Clear drops all remembered matches. Called on login, since a new account
// can expose a different guide.
func (d *DB) Clear() error {
	if _, err := d.db.Exec(`DELETE FROM channel_matches`); err != nil {
		return fmt.Errorf("matchdb clear: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
