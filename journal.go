package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const journalSchema = `CREATE TABLE IF NOT EXISTS rewrites (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	command    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	input      TEXT NOT NULL,
	output     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`

// journalEntry is one rewritten statement.
type journalEntry struct {
	Command   string
	Kind      string
	Input     string
	Output    string
	Error     string
	CreatedAt time.Time
}

// journal appends every rewrite to a local SQLite file. A nil journal
// discards entries.
type journal struct {
	db *sql.DB
}

func openJournal(ctx context.Context, path string) (*journal, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &journal{db: db}, nil
}

func (j *journal) record(ctx context.Context, e journalEntry) error {
	if j == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO rewrites (command, kind, input, output, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Command, e.Kind, e.Input, e.Output, e.Error, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// recent returns up to limit entries, newest first.
func (j *journal) recent(ctx context.Context, limit int) ([]journalEntry, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT command, kind, input, output, error, created_at FROM rewrites ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var entries []journalEntry
	for rows.Next() {
		var e journalEntry
		var created string
		if err := rows.Scan(&e.Command, &e.Kind, &e.Input, &e.Output, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("journal timestamp %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
