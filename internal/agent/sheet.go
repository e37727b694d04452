package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/rowsync"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

// ProcessConfig runs one pass over a monitored sheet. With force every row is
// regenerated regardless of what the sheet or the snapshot say.
func (m *Monitor) ProcessConfig(ctx context.Context, configID int64, force bool) (models.ProcessResult, error) {
	res := models.ProcessResult{ConfigID: configID}
	if m.drive == nil {
		return res, ErrDriveUnavailable
	}

	cfg, err := m.store.GetConfig(ctx, configID)
	if err != nil {
		return res, err
	}

	m.reportProgress(0, 100, fmt.Sprintf("Reading %s...", cfg.ExcelFileName))

	meta, err := m.drive.FileMetadata(ctx, cfg.ExcelFileID)
	if err != nil {
		return res, fmt.Errorf("failed to read sheet metadata: %w", err)
	}
	rows, err := m.drive.ReadRows(ctx, cfg.ExcelFileID)
	if err != nil {
		return res, fmt.Errorf("failed to read sheet rows: %w", err)
	}

	resume, err := m.activeResume(ctx, 0)
	if err != nil {
		return res, err
	}

	snapshot := m.cache(cfg.ExcelFileID)
	synced := snapshot.Sync(rows, meta.ModifiedTime)
	res.Sync = synced.Stats
	res.Total = len(rows)

	seen := make(map[string]bool, len(synced.Rows))
	for i, rs := range synced.Rows {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		seen[rs.Row.UniqueID] = true
		m.reportProgress(10+80*i/len(synced.Rows), 100, fmt.Sprintf("Row %d (%d/%d)", rs.Row.RowIndex, i+1, len(synced.Rows)))

		processed, err := m.processRow(ctx, cfg, resume, rs, force, snapshot)
		switch {
		case err != nil:
			res.Errors++
			m.logger.Warn("failed to process row",
				zap.String("unique_id", rs.Row.UniqueID), zap.Int("row", rs.Row.RowIndex), zap.Error(err))
		case processed:
			res.Processed++
		default:
			res.Skipped++
		}
	}

	if cfg.AutoCleanupOldJobs {
		archived, err := m.archiveMissing(ctx, cfg.ID, seen)
		if err != nil {
			m.logger.Warn("failed to archive removed rows", zap.Int64("config_id", cfg.ID), zap.Error(err))
		}
		res.Archived = archived
	}

	now := m.now()
	cfg.LastChecked = &now
	if t, err := time.Parse(time.RFC3339, meta.ModifiedTime); err == nil {
		cfg.LastModified = &t
	}
	if meta.Name != "" {
		cfg.ExcelFileName = meta.Name
	}
	if err := m.store.UpdateConfig(ctx, &cfg); err != nil {
		return res, err
	}

	if err := snapshot.Save(); err != nil {
		m.logger.Warn("failed to save row snapshot", zap.String("file", cfg.ExcelFileName), zap.Error(err))
	}

	m.reportProgress(100, 100, "Processing complete!")
	return res, nil
}

// processRow decides whether a row needs work, runs the pipeline and writes the result back.
// It reports false when the row was skipped.
func (m *Monitor) processRow(ctx context.Context, cfg models.DriveConfig, resume models.UserResume,
	rs rowsync.RowState, force bool, snapshot *rowsync.Cache) (bool, error) {
	row := rs.Row
	regenerate := force || rs.State == rowsync.Updated

	if !regenerate && !rs.NeedsID {
		done := row.ResumeGenerated && row.CoverLetterGenerated
		if done || (!row.GenerateResume && !row.GenerateCover) {
			if rs.State == rowsync.New {
				snapshot.Record(row)
			}
			return false, nil
		}
	}

	job, err := m.jobForRow(ctx, cfg, resume, rs)
	if err != nil {
		return false, err
	}

	upd, pipeErr := m.processJob(ctx, cfg, &job, resume, regenerate)
	if pipeErr != nil {
		job.Status = models.StatusFailed
		if err := m.store.UpdateJob(ctx, &job); err != nil {
			m.logger.Warn("failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
		}
		snapshot.UpdateStatus(row.UniqueID, string(models.StatusFailed))
	}

	if rs.NeedsID {
		id := row.UniqueID
		upd.UniqueID = &id
	}
	if rs.NeedsID || applyUpdate(row, upd) != row {
		if err := m.drive.UpdateRow(ctx, cfg.ExcelFileID, row.RowIndex, upd); err != nil {
			if pipeErr == nil {
				return false, fmt.Errorf("failed to write row %d: %w", row.RowIndex, err)
			}
			m.logger.Warn("failed to write unique id", zap.Int("row", row.RowIndex), zap.Error(err))
		}
	}

	if pipeErr != nil {
		return false, pipeErr
	}

	snapshot.Record(applyUpdate(row, upd))
	snapshot.UpdateStatus(row.UniqueID, string(job.Status))
	return true, nil
}

// jobForRow loads the job application behind a row, creating it on first sight,
// and refreshes it with the values currently in the sheet
func (m *Monitor) jobForRow(ctx context.Context, cfg models.DriveConfig, resume models.UserResume, rs rowsync.RowState) (models.JobApplication, error) {
	row := rs.Row

	job, err := m.store.GetJobByUniqueID(ctx, row.UniqueID)
	if errors.Is(err, storage.ErrNotFound) {
		job, err = m.store.FindJobByURL(ctx, row.JobURL, resume.ID)
		if err == nil && job.UniqueID != "" {
			err = storage.ErrNotFound
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		job = models.NewJobApplication()
		job.UniqueID = row.UniqueID
		job.DriveConfigID = cfg.ID
		job.JobURL = row.JobURL
		job.JobDescription = row.JobDescription
		job.CompanyName = row.CompanyName
		job.UserResumeID = resume.ID
		refreshFromRow(&job, row)
		if err := m.store.CreateJob(ctx, &job); err != nil {
			return job, err
		}
		return job, nil
	}
	if err != nil {
		return job, err
	}

	switch {
	case row.JobDescription != "":
		job.JobDescription = row.JobDescription
	case staleDescription(rs, job):
		job.JobDescription = ""
	}
	job.JobURL = row.JobURL
	job.UniqueID = row.UniqueID
	job.DriveConfigID = cfg.ID
	if row.CompanyName != "" {
		job.CompanyName = row.CompanyName
	}
	refreshFromRow(&job, row)

	if err := m.store.UpdateJob(ctx, &job); err != nil {
		return job, err
	}
	return job, nil
}

// staleDescription reports whether an edited row without a pasted description invalidates
// the stored one, so the job URL is scraped again
func staleDescription(rs rowsync.RowState, job models.JobApplication) bool {
	if rs.State != rowsync.Updated {
		return false
	}
	prev := rs.Previous
	if prev == nil {
		return rs.Row.JobURL != job.JobURL
	}
	if prev.JobURL != rs.Row.JobURL || prev.JobDescription != rs.Row.JobDescription {
		return true
	}
	// instructions that stood in for the description were edited
	return strings.HasPrefix(job.JobDescription, userInputJDPrefix) &&
		prev.AdditionalInstructions != rs.Row.AdditionalInstructions
}

// refreshFromRow copies the per-row toggles. The sheet's done columns are authoritative,
// so clearing one requests regeneration.
func refreshFromRow(job *models.JobApplication, row models.JobRow) {
	job.GenerateResume = row.GenerateResume
	job.GenerateCoverLetter = row.GenerateCover
	job.GenerateNewResume = row.GenerateNewResume
	job.ResumeGenerated = row.ResumeGenerated
	job.CoverLetterGenerated = row.CoverLetterGenerated
	job.AdditionalInstructions = row.AdditionalInstructions
	job.ExcelRowIndex = row.RowIndex
}

// archiveMissing archives this config's jobs whose rows are gone from the sheet
func (m *Monitor) archiveMissing(ctx context.Context, configID int64, seen map[string]bool) (int, error) {
	jobs, err := m.store.ListJobs(ctx, storage.JobFilter{ConfigID: configID})
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, job := range jobs {
		if job.UniqueID == "" || seen[job.UniqueID] || job.Status == models.StatusArchived {
			continue
		}
		if err := m.store.SetJobStatus(ctx, job.ID, models.StatusArchived); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

// applyUpdate returns row as it reads after upd has been written to the sheet
func applyUpdate(row models.JobRow, upd models.RowUpdate) models.JobRow {
	if upd.UniqueID != nil {
		row.UniqueID = *upd.UniqueID
	}
	if upd.ResumeGenerated != nil {
		row.ResumeGenerated = *upd.ResumeGenerated
	}
	if upd.CoverLetterGenerated != nil {
		row.CoverLetterGenerated = *upd.CoverLetterGenerated
	}
	if upd.Recommendations != nil {
		row.Recommendations = *upd.Recommendations
	}
	if upd.CompanyName != nil {
		row.CompanyName = *upd.CompanyName
	}
	if upd.GoogleDocURL != nil {
		row.GoogleDocURL = *upd.GoogleDocURL
	}
	return row
}
