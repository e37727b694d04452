package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

const jobColumns = `id, unique_id, drive_config_id, job_url, job_description, company_name,
	additional_instructions, generate_resume, generate_cover_letter, generate_new_resume,
	resume_generated, cover_letter_generated, excel_row_index, user_resume_id, status,
	created_at, updated_at`

// JobFilter narrows ListJobs
type JobFilter struct {
	Status   models.JobStatus
	ConfigID int64
	Limit    int
}

func scanJob(row scanner) (models.JobApplication, error) {
	var (
		j                    models.JobApplication
		configID, resumeID   sql.NullInt64
		rowIndex             sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&j.ID, &j.UniqueID, &configID, &j.JobURL, &j.JobDescription, &j.CompanyName,
		&j.AdditionalInstructions, &j.GenerateResume, &j.GenerateCoverLetter, &j.GenerateNewResume,
		&j.ResumeGenerated, &j.CoverLetterGenerated, &rowIndex, &resumeID, &j.Status,
		&createdAt, &updatedAt)
	if err != nil {
		return j, err
	}
	j.DriveConfigID = configID.Int64
	j.UserResumeID = resumeID.Int64
	j.ExcelRowIndex = int(rowIndex.Int64)
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return j, nil
}

// CreateJob inserts a job application and fills in its id and timestamps
func (s *Store) CreateJob(ctx context.Context, j *models.JobApplication) error {
	if j.Status == "" {
		j.Status = models.StatusPending
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO job_applications (unique_id, drive_config_id, job_url, job_description,
			company_name, additional_instructions, generate_resume, generate_cover_letter,
			generate_new_resume, resume_generated, cover_letter_generated, excel_row_index,
			user_resume_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.UniqueID, nullInt(j.DriveConfigID), j.JobURL, j.JobDescription, j.CompanyName,
		j.AdditionalInstructions, boolInt(j.GenerateResume), boolInt(j.GenerateCoverLetter),
		boolInt(j.GenerateNewResume), boolInt(j.ResumeGenerated), boolInt(j.CoverLetterGenerated),
		nullInt(int64(j.ExcelRowIndex)), nullInt(j.UserResumeID), string(j.Status),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read job application id: %w", err)
	}
	j.ID = id
	j.CreatedAt = now
	j.UpdatedAt = now
	return nil
}

// UpdateJob saves every mutable column of j
func (s *Store) UpdateJob(ctx context.Context, j *models.JobApplication) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_applications SET unique_id=?, drive_config_id=?, job_url=?, job_description=?,
			company_name=?, additional_instructions=?, generate_resume=?, generate_cover_letter=?,
			generate_new_resume=?, resume_generated=?, cover_letter_generated=?, excel_row_index=?,
			user_resume_id=?, status=?, updated_at=?
		 WHERE id=?`,
		j.UniqueID, nullInt(j.DriveConfigID), j.JobURL, j.JobDescription, j.CompanyName,
		j.AdditionalInstructions, boolInt(j.GenerateResume), boolInt(j.GenerateCoverLetter),
		boolInt(j.GenerateNewResume), boolInt(j.ResumeGenerated), boolInt(j.CoverLetterGenerated),
		nullInt(int64(j.ExcelRowIndex)), nullInt(j.UserResumeID), string(j.Status),
		formatTime(now), j.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	j.UpdatedAt = now
	return nil
}

// SetJobStatus changes only the status of a job application
func (s *Store) SetJobStatus(ctx context.Context, id int64, status models.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_applications SET status=?, updated_at=? WHERE id=?`, string(status), s.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJob returns the job application with the given id
func (s *Store) GetJob(ctx context.Context, id int64) (models.JobApplication, error) {
	return s.queryJob(ctx, `SELECT `+jobColumns+` FROM job_applications WHERE id = ?`, id)
}

// GetJobByUniqueID returns the job application with the given sheet id
func (s *Store) GetJobByUniqueID(ctx context.Context, uniqueID string) (models.JobApplication, error) {
	if uniqueID == "" {
		return models.JobApplication{}, ErrNotFound
	}
	return s.queryJob(ctx, `SELECT `+jobColumns+` FROM job_applications WHERE unique_id = ?`, uniqueID)
}

// FindJobByURL returns the newest job for the given URL and resume
func (s *Store) FindJobByURL(ctx context.Context, jobURL string, resumeID int64) (models.JobApplication, error) {
	if jobURL == "" {
		return models.JobApplication{}, ErrNotFound
	}
	return s.queryJob(ctx,
		`SELECT `+jobColumns+` FROM job_applications
		 WHERE job_url = ? AND user_resume_id = ? ORDER BY id DESC LIMIT 1`, jobURL, resumeID)
}

func (s *Store) queryJob(ctx context.Context, query string, args ...any) (models.JobApplication, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, fmt.Errorf("failed to load job application: %w", err)
	}
	return j, nil
}

// ListJobs returns job applications, newest first
func (s *Store) ListJobs(ctx context.Context, f JobFilter) ([]models.JobApplication, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ConfigID != 0 {
		where = append(where, "drive_config_id = ?")
		args = append(args, f.ConfigID)
	}

	query := `SELECT ` + jobColumns + ` FROM job_applications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job applications: %w", err)
	}
	defer rows.Close()

	jobs := []models.JobApplication{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job application: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CountJobs returns the number of job applications per status
func (s *Store) CountJobs(ctx context.Context) (map[models.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM job_applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count job applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[models.JobStatus(status)] = n
	}
	return counts, rows.Err()
}
