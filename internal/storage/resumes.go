package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

const resumeColumns = `id, user_name, file_path, content, uploaded_at, is_active`

func scanResume(row scanner) (models.UserResume, error) {
	var (
		r          models.UserResume
		uploadedAt string
	)
	if err := row.Scan(&r.ID, &r.UserName, &r.FilePath, &r.Content, &uploadedAt, &r.IsActive); err != nil {
		return r, err
	}
	r.UploadedAt = parseTime(uploadedAt)
	return r, nil
}

// CreateResume stores r as the only active resume
func (s *Store) CreateResume(ctx context.Context, r *models.UserResume) error {
	if r.UserName == "" {
		r.UserName = "User"
	}
	now := s.now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE user_resumes SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("failed to deactivate resumes: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user_resumes (user_name, file_path, content, uploaded_at, is_active)
			 VALUES (?, ?, ?, ?, 1)`,
			r.UserName, r.FilePath, r.Content, formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert resume: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read resume id: %w", err)
		}
		r.ID = id
		r.UploadedAt = now
		r.IsActive = true
		return nil
	})
}

// ActiveResume returns the most recent active resume
func (s *Store) ActiveResume(ctx context.Context) (models.UserResume, error) {
	return s.queryResume(ctx,
		`SELECT `+resumeColumns+` FROM user_resumes WHERE is_active = 1 ORDER BY uploaded_at DESC, id DESC LIMIT 1`)
}

// GetResume returns the resume with the given id
func (s *Store) GetResume(ctx context.Context, id int64) (models.UserResume, error) {
	return s.queryResume(ctx, `SELECT `+resumeColumns+` FROM user_resumes WHERE id = ?`, id)
}

func (s *Store) queryResume(ctx context.Context, query string, args ...any) (models.UserResume, error) {
	r, err := scanResume(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("failed to load resume: %w", err)
	}
	return r, nil
}
