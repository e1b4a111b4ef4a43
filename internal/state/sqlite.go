package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seen_items (
	item_id  TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS seen_reactions (
	item_id     TEXT NOT NULL REFERENCES seen_items(item_id) ON DELETE CASCADE,
	reaction_id INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (item_id, reaction_id)
);
CREATE TABLE IF NOT EXISTS state_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const metaLastUpdated = "last_updated"

// SQLiteBackend keeps the state in a SQLite database. Each Write rewrites the
// tables inside one transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Read loads all entries ordered by their retention position.
func (b *SQLiteBackend) Read(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM state_meta WHERE key = ?`, metaLastUpdated).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotExist
	case err != nil:
		return nil, fmt.Errorf("failed to read state metadata: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		snap.LastUpdated = &t
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT i.item_id, r.reaction_id
		FROM seen_items i
		LEFT JOIN seen_reactions r ON r.item_id = i.item_id
		ORDER BY i.position, r.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		var reactionID sql.NullInt64
		if err := rows.Scan(&itemID, &reactionID); err != nil {
			return nil, fmt.Errorf("failed to scan seen reaction: %w", err)
		}
		n := len(snap.Entries)
		if n == 0 || snap.Entries[n-1].ItemID != itemID {
			snap.Entries = append(snap.Entries, Entry{ItemID: itemID, ReactionIDs: []int64{}})
			n++
		}
		if reactionID.Valid {
			snap.Entries[n-1].ReactionIDs = append(snap.Entries[n-1].ReactionIDs, reactionID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen reactions: %w", err)
	}
	return snap, nil
}

// Write replaces the stored state with snap.
func (b *SQLiteBackend) Write(ctx context.Context, snap *Snapshot) error {
	return withTx(ctx, b.db, func(tx *sql.Tx) error {
		for _, stmt := range []string{`DELETE FROM seen_reactions`, `DELETE FROM seen_items`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear state: %w", err)
			}
		}

		for pos, e := range snap.Entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO seen_items (item_id, position) VALUES (?, ?)`, e.ItemID, pos); err != nil {
				return fmt.Errorf("failed to insert item %s: %w", e.ItemID, err)
			}
			for rpos, id := range e.ReactionIDs {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO seen_reactions (item_id, reaction_id, position) VALUES (?, ?, ?)`,
					e.ItemID, id, rpos); err != nil {
					return fmt.Errorf("failed to insert reaction %d for item %s: %w", id, e.ItemID, err)
				}
			}
		}

		lastUpdated := time.Now().UTC()
		if snap.LastUpdated != nil {
			lastUpdated = *snap.LastUpdated
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO state_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			metaLastUpdated, lastUpdated.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to write state metadata: %w", err)
		}
		return nil
	})
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// withTx runs fn in a transaction, committing on success and rolling back on
// error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}
