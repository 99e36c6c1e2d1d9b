// Package history is the relay audit log. It records what crossed the
// bridge and whether it made it; nothing reads it back except the CLI.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chatbridge/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.HistoryStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS relay_log (
		id          TEXT PRIMARY KEY,
		direction   TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		dest_id     TEXT,
		kind        TEXT NOT NULL,
		author      TEXT,
		ok          INTEGER NOT NULL DEFAULT 0,
		detail      TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_relay_log_time ON relay_log(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, rec domain.RelayRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relay_log (id, direction, source_id, dest_id, kind, author, ok, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Direction, rec.SourceID, rec.DestID, rec.Kind, rec.Author, rec.OK, rec.Detail, rec.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.RelayRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, direction, source_id, dest_id, kind, author, ok, detail, created_at
		 FROM relay_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.RelayRecord
	for rows.Next() {
		var r domain.RelayRecord
		var destID, author, detail sql.NullString
		if err := rows.Scan(&r.ID, &r.Direction, &r.SourceID, &destID, &r.Kind,
			&author, &r.OK, &detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.DestID = destID.String
		r.Author = author.String
		r.Detail = detail.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
