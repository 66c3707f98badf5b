// Package ledger records which snapshot entities an import has already
// replayed into a destination, so an interrupted run can be repeated without
// touching what succeeded. Entries are keyed by natural keys (project name,
// project/role key, project/application name) and scoped to one destination.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS replayed (
    target TEXT NOT NULL,
    kind TEXT NOT NULL,
    natural_key TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    target_id TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMP NOT NULL,
    PRIMARY KEY (target, kind, natural_key)
);
`

// Ledger is a SQLite-backed replay ledger bound to one destination.
type Ledger struct {
	db     *sql.DB
	target string
}

// Entry is one replayed entity.
type Entry struct {
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Open opens (creating if needed) the ledger at path, scoped to target,
// normally the destination's base URL.
func Open(path, target string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{db: db, target: target}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Lookup returns the target id recorded for kind/key.
func (l *Ledger) Lookup(ctx context.Context, kind, key string) (string, bool, error) {
	var targetID string
	err := l.db.QueryRowContext(ctx,
		`SELECT target_id FROM replayed WHERE target = ? AND kind = ? AND natural_key = ?`,
		l.target, kind, key,
	).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s %q: %w", kind, key, err)
	}
	return targetID, true, nil
}

// Record stores kind/key as replayed. Recording the same key again replaces
// the earlier entry.
func (l *Ledger) Record(ctx context.Context, kind, key, sourceID, targetID string) error {
	query := `
		INSERT INTO replayed (target, kind, natural_key, source_id, target_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (target, kind, natural_key)
		DO UPDATE SET source_id = excluded.source_id, target_id = excluded.target_id, recorded_at = excluded.recorded_at
	`
	_, err := l.db.ExecContext(ctx, query, l.target, kind, key, sourceID, targetID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record %s %q: %w", kind, key, err)
	}
	return nil
}

// Entries lists everything recorded for this destination, oldest first.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT kind, natural_key, source_id, target_id, recorded_at FROM replayed
		 WHERE target = ? ORDER BY recorded_at, kind, natural_key`, l.target)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kind, &e.Key, &e.SourceID, &e.TargetID, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reset forgets every entry for this destination.
func (l *Ledger) Reset(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM replayed WHERE target = ?`, l.target); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	return nil
}
