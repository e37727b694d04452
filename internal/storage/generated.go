package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

const (
	generatedResumeColumns = `id, job_application_id, content, recommendations, file_path,
		google_doc_id, google_doc_url, company_name, created_at`
	generatedLetterColumns = `id, job_application_id, content, file_path, google_doc_id,
		google_doc_url, created_at`
)

func scanGeneratedResume(row scanner) (models.GeneratedResume, error) {
	var (
		g         models.GeneratedResume
		createdAt string
	)
	err := row.Scan(&g.ID, &g.JobApplicationID, &g.Content, &g.Recommendations, &g.FilePath,
		&g.GoogleDocID, &g.GoogleDocURL, &g.CompanyName, &createdAt)
	if err != nil {
		return g, err
	}
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

func scanGeneratedLetter(row scanner) (models.GeneratedCoverLetter, error) {
	var (
		g         models.GeneratedCoverLetter
		createdAt string
	)
	err := row.Scan(&g.ID, &g.JobApplicationID, &g.Content, &g.FilePath, &g.GoogleDocID,
		&g.GoogleDocURL, &createdAt)
	if err != nil {
		return g, err
	}
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

// CreateGeneratedResume stores a generated resume
func (s *Store) CreateGeneratedResume(ctx context.Context, g *models.GeneratedResume) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_resumes (job_application_id, content, recommendations, file_path,
			google_doc_id, google_doc_url, company_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.JobApplicationID, g.Content, g.Recommendations, g.FilePath, g.GoogleDocID,
		g.GoogleDocURL, g.CompanyName, formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generated resume: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read generated resume id: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	return nil
}

// CreateGeneratedCoverLetter stores a generated cover letter
func (s *Store) CreateGeneratedCoverLetter(ctx context.Context, g *models.GeneratedCoverLetter) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_cover_letters (job_application_id, content, file_path, google_doc_id,
			google_doc_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.JobApplicationID, g.Content, g.FilePath, g.GoogleDocID, g.GoogleDocURL, formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generated cover letter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read generated cover letter id: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	return nil
}

// GetGeneratedResume returns a generated resume by id
func (s *Store) GetGeneratedResume(ctx context.Context, id int64) (models.GeneratedResume, error) {
	g, err := scanGeneratedResume(s.db.QueryRowContext(ctx,
		`SELECT `+generatedResumeColumns+` FROM generated_resumes WHERE id = ?`, id))
	return g, notFound(err, "generated resume")
}

// GetGeneratedCoverLetter returns a generated cover letter by id
func (s *Store) GetGeneratedCoverLetter(ctx context.Context, id int64) (models.GeneratedCoverLetter, error) {
	g, err := scanGeneratedLetter(s.db.QueryRowContext(ctx,
		`SELECT `+generatedLetterColumns+` FROM generated_cover_letters WHERE id = ?`, id))
	return g, notFound(err, "generated cover letter")
}

// LatestGeneratedResume returns the newest resume generated for a job
func (s *Store) LatestGeneratedResume(ctx context.Context, jobID int64) (models.GeneratedResume, error) {
	g, err := scanGeneratedResume(s.db.QueryRowContext(ctx,
		`SELECT `+generatedResumeColumns+` FROM generated_resumes
		 WHERE job_application_id = ? ORDER BY id DESC LIMIT 1`, jobID))
	return g, notFound(err, "generated resume")
}

// LatestGeneratedCoverLetter returns the newest cover letter generated for a job
func (s *Store) LatestGeneratedCoverLetter(ctx context.Context, jobID int64) (models.GeneratedCoverLetter, error) {
	g, err := scanGeneratedLetter(s.db.QueryRowContext(ctx,
		`SELECT `+generatedLetterColumns+` FROM generated_cover_letters
		 WHERE job_application_id = ? ORDER BY id DESC LIMIT 1`, jobID))
	return g, notFound(err, "generated cover letter")
}

// LatestDocumentID returns the newest Google Doc id recorded for a job, checking resumes first
func (s *Store) LatestDocumentID(ctx context.Context, jobID int64) (string, error) {
	var docID string
	err := s.db.QueryRowContext(ctx,
		`SELECT google_doc_id FROM generated_resumes
		 WHERE job_application_id = ? AND google_doc_id <> '' ORDER BY id DESC LIMIT 1`, jobID).Scan(&docID)
	if err == nil {
		return docID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to load document id: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT google_doc_id FROM generated_cover_letters
		 WHERE job_application_id = ? AND google_doc_id <> '' ORDER BY id DESC LIMIT 1`, jobID).Scan(&docID)
	return docID, notFound(err, "document id")
}

func notFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
