package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

const configColumns = `id, excel_file_id, excel_file_name, output_folder_id, is_monitoring,
	last_checked, last_modified, generate_new_resume, generate_recommendations,
	always_generate_cover_letter, auto_cleanup_old_jobs, created_at, updated_at`

func scanConfig(row scanner) (models.DriveConfig, error) {
	var (
		c                    models.DriveConfig
		checked, modified    sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&c.ID, &c.ExcelFileID, &c.ExcelFileName, &c.OutputFolderID, &c.IsMonitoring,
		&checked, &modified, &c.GenerateNewResume, &c.GenerateRecommendations,
		&c.AlwaysGenerateCoverLetter, &c.AutoCleanupOldJobs, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	c.LastChecked = parseNullTime(checked)
	c.LastModified = parseNullTime(modified)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

// CreateConfig inserts a drive config and fills in its id and timestamps
func (s *Store) CreateConfig(ctx context.Context, c *models.DriveConfig) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO drive_configs (excel_file_id, excel_file_name, output_folder_id, is_monitoring,
			last_checked, last_modified, generate_new_resume, generate_recommendations,
			always_generate_cover_letter, auto_cleanup_old_jobs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ExcelFileID, c.ExcelFileName, c.OutputFolderID, boolInt(c.IsMonitoring),
		nullTime(c.LastChecked), nullTime(c.LastModified), boolInt(c.GenerateNewResume),
		boolInt(c.GenerateRecommendations), boolInt(c.AlwaysGenerateCoverLetter),
		boolInt(c.AutoCleanupOldJobs), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert drive config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read drive config id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// UpdateConfig saves every mutable column of c
func (s *Store) UpdateConfig(ctx context.Context, c *models.DriveConfig) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE drive_configs SET excel_file_id=?, excel_file_name=?, output_folder_id=?,
			is_monitoring=?, last_checked=?, last_modified=?, generate_new_resume=?,
			generate_recommendations=?, always_generate_cover_letter=?, auto_cleanup_old_jobs=?,
			updated_at=?
		 WHERE id=?`,
		c.ExcelFileID, c.ExcelFileName, c.OutputFolderID, boolInt(c.IsMonitoring),
		nullTime(c.LastChecked), nullTime(c.LastModified), boolInt(c.GenerateNewResume),
		boolInt(c.GenerateRecommendations), boolInt(c.AlwaysGenerateCoverLetter),
		boolInt(c.AutoCleanupOldJobs), formatTime(now), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update drive config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

// GetConfig returns the config with the given id
func (s *Store) GetConfig(ctx context.Context, id int64) (models.DriveConfig, error) {
	return s.queryConfig(ctx, `SELECT `+configColumns+` FROM drive_configs WHERE id = ?`, id)
}

// GetConfigByFileID returns the config that monitors the given spreadsheet
func (s *Store) GetConfigByFileID(ctx context.Context, fileID string) (models.DriveConfig, error) {
	return s.queryConfig(ctx, `SELECT `+configColumns+` FROM drive_configs WHERE excel_file_id = ?`, fileID)
}

// LatestConfig returns the most recently updated config
func (s *Store) LatestConfig(ctx context.Context) (models.DriveConfig, error) {
	return s.queryConfig(ctx, `SELECT `+configColumns+` FROM drive_configs ORDER BY updated_at DESC, id DESC LIMIT 1`)
}

func (s *Store) queryConfig(ctx context.Context, query string, args ...any) (models.DriveConfig, error) {
	c, err := scanConfig(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to load drive config: %w", err)
	}
	return c, nil
}

// ListConfigs returns all configs, newest first
func (s *Store) ListConfigs(ctx context.Context) ([]models.DriveConfig, error) {
	return s.listConfigs(ctx, `SELECT `+configColumns+` FROM drive_configs ORDER BY created_at DESC, id DESC`)
}

// MonitoringConfigs returns the configs whose monitoring flag is set
func (s *Store) MonitoringConfigs(ctx context.Context) ([]models.DriveConfig, error) {
	return s.listConfigs(ctx, `SELECT `+configColumns+` FROM drive_configs WHERE is_monitoring = 1 ORDER BY id`)
}

func (s *Store) listConfigs(ctx context.Context, query string) ([]models.DriveConfig, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query drive configs: %w", err)
	}
	defer rows.Close()

	configs := []models.DriveConfig{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drive config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
