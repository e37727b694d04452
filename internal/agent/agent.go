// Package agent watches job sheets on Google Drive and turns their rows into
// tailored resumes and cover letters.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/rowsync"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

// DefaultInterval is the time between two polls of the monitored sheets
const DefaultInterval = 60 * time.Second

var (
	// ErrNoActiveResume is returned when no base resume has been uploaded
	ErrNoActiveResume = errors.New("no active resume found, please upload a resume first")
	// ErrNoJobDescription is returned when neither scraping nor the sheet yields a usable description
	ErrNoJobDescription = errors.New("could not obtain job description, please paste it in the additional_instructions column")
	// ErrMissingJobSource is returned when a job has neither URL nor description
	ErrMissingJobSource = errors.New("either job_url or job_description is required")
	// ErrDriveUnavailable is returned when Google Drive credentials are not configured
	ErrDriveUnavailable = errors.New("google drive is not configured")
)

// ProgressCallback is called to report progress during processing
type ProgressCallback func(current, total int, message string)

// Drive is the subset of the Google Drive client the monitor needs
type Drive interface {
	FileMetadata(ctx context.Context, fileID string) (models.FileMetadata, error)
	ReadRows(ctx context.Context, fileID string) ([]models.JobRow, error)
	UpdateRow(ctx context.Context, fileID string, rowIndex int, upd models.RowUpdate) error
	SetupHeaders(ctx context.Context, fileID string) error
	CreateDocument(ctx context.Context, folderID, title, resume, coverLetter string) (models.DocumentInfo, error)
	UpdateDocument(ctx context.Context, docID, resume, coverLetter string) (models.DocumentInfo, error)
}

// Scraper fetches job descriptions from job posting URLs
type Scraper interface {
	ExtractJobDescription(ctx context.Context, url string) (string, error)
}

// Writer produces the AI generated documents
type Writer interface {
	GenerateResume(ctx context.Context, req generation.Request, withRecommendations bool) (generation.ResumeResult, error)
	GenerateCoverLetter(ctx context.Context, req generation.Request) (string, error)
	GenerateRecommendations(ctx context.Context, req generation.Request) (string, error)
	AnalyzeJobDescription(ctx context.Context, jobDescription string) (generation.JobAnalysis, error)
}

// Options tunes a Monitor
type Options struct {
	SyncDir string // directory holding one row snapshot per monitored sheet
	Logger  *zap.Logger
}

// Monitor orchestrates sheet polling and document generation
type Monitor struct {
	store   *storage.Store
	drive   Drive
	scraper Scraper
	writer  Writer
	syncDir string
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.RWMutex
	progressCb ProgressCallback
	caches     map[string]*rowsync.Cache
}

// New creates a monitor. drive may be nil when Google credentials are not configured;
// sheet operations then fail with ErrDriveUnavailable.
func New(store *storage.Store, drive Drive, scraper Scraper, writer Writer, opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	syncDir := opts.SyncDir
	if syncDir == "" {
		syncDir = "excel_sync"
	}
	return &Monitor{
		store:   store,
		drive:   drive,
		scraper: scraper,
		writer:  writer,
		syncDir: syncDir,
		logger:  logger,
		now:     time.Now,
		caches:  make(map[string]*rowsync.Cache),
	}
}

// SetProgressCallback sets the progress callback function
func (m *Monitor) SetProgressCallback(cb ProgressCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressCb = cb
}

// reportProgress calls the progress callback if set
func (m *Monitor) reportProgress(current, total int, message string) {
	m.mu.RLock()
	cb := m.progressCb
	m.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// StartMonitoring registers a sheet, or re-enables a known one, and marks it monitored
func (m *Monitor) StartMonitoring(ctx context.Context, fileID, folderID string) (models.DriveConfig, error) {
	if m.drive == nil {
		return models.DriveConfig{}, ErrDriveUnavailable
	}

	meta, err := m.drive.FileMetadata(ctx, fileID)
	if err != nil {
		return models.DriveConfig{}, fmt.Errorf("failed to access sheet: %w", err)
	}

	cfg, err := m.store.GetConfigByFileID(ctx, fileID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		cfg = models.NewDriveConfig(fileID, folderID)
		cfg.ExcelFileName = meta.Name
		cfg.IsMonitoring = true
		if err := m.store.CreateConfig(ctx, &cfg); err != nil {
			return models.DriveConfig{}, err
		}
	case err != nil:
		return models.DriveConfig{}, err
	default:
		cfg.ExcelFileName = meta.Name
		if folderID != "" {
			cfg.OutputFolderID = folderID
		}
		cfg.IsMonitoring = true
		if err := m.store.UpdateConfig(ctx, &cfg); err != nil {
			return models.DriveConfig{}, err
		}
	}

	m.logger.Info("started monitoring", zap.Int64("config_id", cfg.ID), zap.String("file", cfg.ExcelFileName))
	return cfg, nil
}

// StartMonitoringConfig re-enables polling of a known config
func (m *Monitor) StartMonitoringConfig(ctx context.Context, configID int64) (models.DriveConfig, error) {
	cfg, err := m.store.GetConfig(ctx, configID)
	if err != nil {
		return cfg, err
	}
	return m.StartMonitoring(ctx, cfg.ExcelFileID, "")
}

// StopMonitoring disables polling of a config
func (m *Monitor) StopMonitoring(ctx context.Context, configID int64) error {
	cfg, err := m.store.GetConfig(ctx, configID)
	if err != nil {
		return err
	}
	return m.stop(ctx, cfg)
}

// StopMonitoringFile disables polling of the config watching fileID
func (m *Monitor) StopMonitoringFile(ctx context.Context, fileID string) error {
	cfg, err := m.store.GetConfigByFileID(ctx, fileID)
	if err != nil {
		return err
	}
	return m.stop(ctx, cfg)
}

func (m *Monitor) stop(ctx context.Context, cfg models.DriveConfig) error {
	cfg.IsMonitoring = false
	if err := m.store.UpdateConfig(ctx, &cfg); err != nil {
		return err
	}
	m.logger.Info("stopped monitoring", zap.Int64("config_id", cfg.ID), zap.String("file", cfg.ExcelFileName))
	return nil
}

// MonitoringStatus lists every config and how many are being polled
func (m *Monitor) MonitoringStatus(ctx context.Context) (models.MonitoringStatus, error) {
	configs, err := m.store.ListConfigs(ctx)
	if err != nil {
		return models.MonitoringStatus{}, err
	}
	status := models.MonitoringStatus{Configs: configs}
	for _, c := range configs {
		if c.IsMonitoring {
			status.ActiveCount++
		}
	}
	return status, nil
}

// SetupHeaders writes the canonical header row into a sheet
func (m *Monitor) SetupHeaders(ctx context.Context, fileID string) error {
	if m.drive == nil {
		return ErrDriveUnavailable
	}
	return m.drive.SetupHeaders(ctx, fileID)
}

// Run polls every monitored sheet immediately and then once per interval until ctx is done
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m.logger.Info("monitor loop started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.PollOnce(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce processes every monitored config sequentially and returns the per-config results
func (m *Monitor) PollOnce(ctx context.Context) []models.ProcessResult {
	configs, err := m.store.MonitoringConfigs(ctx)
	if err != nil {
		m.logger.Error("failed to load monitored configs", zap.Error(err))
		return nil
	}

	var results []models.ProcessResult
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		res, err := m.ProcessConfig(ctx, cfg.ID, false)
		if err != nil {
			m.logger.Error("failed to process sheet",
				zap.Int64("config_id", cfg.ID), zap.String("file", cfg.ExcelFileName), zap.Error(err))
			continue
		}
		m.logger.Info("processed sheet",
			zap.String("file", cfg.ExcelFileName),
			zap.Int("processed", res.Processed),
			zap.Int("skipped", res.Skipped),
			zap.Int("errors", res.Errors),
			zap.Int("archived", res.Archived))
		results = append(results, res)
	}
	return results
}

// cache returns the row snapshot of a monitored file
func (m *Monitor) cache(fileID string) *rowsync.Cache {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.caches[fileID]
	if !ok {
		c = rowsync.Open(rowsync.PathFor(m.syncDir, fileID), m.logger)
		m.caches[fileID] = c
	}
	return c
}

// Snapshot returns the row snapshot of a monitored config
func (m *Monitor) Snapshot(ctx context.Context, configID int64) (*rowsync.Cache, error) {
	cfg, err := m.store.GetConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	return m.cache(cfg.ExcelFileID), nil
}

// activeResume returns the resume attached to job, falling back to the active one
func (m *Monitor) activeResume(ctx context.Context, resumeID int64) (models.UserResume, error) {
	if resumeID != 0 {
		r, err := m.store.GetResume(ctx, resumeID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return models.UserResume{}, err
		}
	}
	r, err := m.store.ActiveResume(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return models.UserResume{}, ErrNoActiveResume
	}
	return r, err
}
