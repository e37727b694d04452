// Package storage persists monitored sheets, resumes, job applications and
// generated documents in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

const timeLayout = time.RFC3339Nano

// Store is the SQLite backed repository
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drive_configs (
			id                           INTEGER PRIMARY KEY AUTOINCREMENT,
			excel_file_id                TEXT NOT NULL UNIQUE,
			excel_file_name              TEXT NOT NULL DEFAULT '',
			output_folder_id             TEXT NOT NULL DEFAULT '',
			is_monitoring                INTEGER NOT NULL DEFAULT 0,
			last_checked                 TEXT,
			last_modified                TEXT,
			generate_new_resume          INTEGER NOT NULL DEFAULT 1,
			generate_recommendations     INTEGER NOT NULL DEFAULT 1,
			always_generate_cover_letter INTEGER NOT NULL DEFAULT 1,
			auto_cleanup_old_jobs        INTEGER NOT NULL DEFAULT 0,
			created_at                   TEXT NOT NULL,
			updated_at                   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_resumes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name   TEXT NOT NULL DEFAULT 'User',
			file_path   TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			uploaded_at TEXT NOT NULL,
			is_active   INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS job_applications (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			unique_id               TEXT NOT NULL DEFAULT '',
			drive_config_id         INTEGER,
			job_url                 TEXT NOT NULL DEFAULT '',
			job_description         TEXT NOT NULL DEFAULT '',
			company_name            TEXT NOT NULL DEFAULT '',
			additional_instructions TEXT NOT NULL DEFAULT '',
			generate_resume         INTEGER NOT NULL DEFAULT 1,
			generate_cover_letter   INTEGER NOT NULL DEFAULT 1,
			generate_new_resume     INTEGER NOT NULL DEFAULT 1,
			resume_generated        INTEGER NOT NULL DEFAULT 0,
			cover_letter_generated  INTEGER NOT NULL DEFAULT 0,
			excel_row_index         INTEGER,
			user_resume_id          INTEGER,
			status                  TEXT NOT NULL DEFAULT 'pending',
			created_at              TEXT NOT NULL,
			updated_at              TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_applications_unique_id
			ON job_applications(unique_id) WHERE unique_id <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_job_applications_config
			ON job_applications(drive_config_id)`,
		`CREATE TABLE IF NOT EXISTS generated_resumes (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			job_application_id INTEGER NOT NULL,
			content            TEXT NOT NULL DEFAULT '',
			recommendations    TEXT NOT NULL DEFAULT '',
			file_path          TEXT NOT NULL DEFAULT '',
			google_doc_id      TEXT NOT NULL DEFAULT '',
			google_doc_url     TEXT NOT NULL DEFAULT '',
			company_name       TEXT NOT NULL DEFAULT '',
			created_at         TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS generated_cover_letters (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			job_application_id INTEGER NOT NULL,
			content            TEXT NOT NULL DEFAULT '',
			file_path          TEXT NOT NULL DEFAULT '',
			google_doc_id      TEXT NOT NULL DEFAULT '',
			google_doc_url     TEXT NOT NULL DEFAULT '',
			created_at         TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().Format(timeLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// withTx runs fn inside a transaction
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}
