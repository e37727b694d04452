package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/gdrive"
	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

const (
	sheetID      = "sheet-1"
	folderID     = "folder-1"
	baseResume   = "Jane Doe\nSoftware engineer with ten years of Go experience."
	acmePosting  = "Senior Go Engineer. Build reliable distributed systems, own services end to end and mentor the team. Remote friendly."
	globexPosted = "Globex Corporation is hiring a backend engineer to build payment systems in Go and Postgres."
)

type rowWrite struct {
	RowIndex int
	Update   models.RowUpdate
}

type fakeDrive struct {
	mu        sync.Mutex
	rows      []models.JobRow
	writes    []rowWrite
	created   []string
	updated   []string
	readCalls int
	failWrite bool
}

func (d *fakeDrive) FileMetadata(_ context.Context, fileID string) (models.FileMetadata, error) {
	return models.FileMetadata{
		ID:           fileID,
		Name:         "jobs.xlsx",
		ModifiedTime: "2026-02-01T09:00:00Z",
		MimeType:     gdrive.MimeXLSX,
	}, nil
}

func (d *fakeDrive) ReadRows(context.Context, string) ([]models.JobRow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readCalls++
	return append([]models.JobRow(nil), d.rows...), nil
}

func (d *fakeDrive) UpdateRow(_ context.Context, _ string, rowIndex int, upd models.RowUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrite {
		return errors.New("drive unavailable")
	}
	for i := range d.rows {
		if d.rows[i].RowIndex == rowIndex {
			d.rows[i] = applyUpdate(d.rows[i], upd)
		}
	}
	d.writes = append(d.writes, rowWrite{RowIndex: rowIndex, Update: upd})
	return nil
}

func (d *fakeDrive) SetupHeaders(context.Context, string) error { return nil }

func (d *fakeDrive) CreateDocument(_ context.Context, _, title, _, _ string) (models.DocumentInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, title)
	id := fmt.Sprintf("doc-%d", len(d.created))
	return models.DocumentInfo{DocID: id, DocURL: gdrive.DocURL(id)}, nil
}

func (d *fakeDrive) UpdateDocument(_ context.Context, docID, _, _ string) (models.DocumentInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updated = append(d.updated, docID)
	return models.DocumentInfo{DocID: docID, DocURL: gdrive.DocURL(docID)}, nil
}

func (d *fakeDrive) row(index int) models.JobRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.rows {
		if r.RowIndex == index {
			return r
		}
	}
	return models.JobRow{}
}

type fakeScraper struct {
	pages map[string]string
}

func (s *fakeScraper) ExtractJobDescription(_ context.Context, url string) (string, error) {
	if text, ok := s.pages[url]; ok {
		return text, nil
	}
	return "", errors.New("website blocked the request (403 Forbidden)")
}

type fakeWriter struct {
	mu      sync.Mutex
	resumes int
	letters int
	recs    int
	last    generation.Request
}

func (w *fakeWriter) GenerateResume(_ context.Context, req generation.Request, withRecs bool) (generation.ResumeResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resumes++
	w.last = req
	out := generation.ResumeResult{Content: "Tailored resume"}
	if withRecs {
		out.Recommendations = "Add metrics"
	}
	return out, nil
}

func (w *fakeWriter) GenerateCoverLetter(_ context.Context, req generation.Request) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.letters++
	w.last = req
	return "Dear hiring manager", nil
}

func (w *fakeWriter) GenerateRecommendations(_ context.Context, req generation.Request) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recs++
	w.last = req
	return "Lead with impact", nil
}

func (w *fakeWriter) AnalyzeJobDescription(_ context.Context, jd string) (generation.JobAnalysis, error) {
	return generation.JobAnalysis{RequiredSkills: []string{"Go"}, Raw: jd}, nil
}

type harness struct {
	monitor *Monitor
	store   *storage.Store
	drive   *fakeDrive
	writer  *fakeWriter
}

func newHarness(t *testing.T, rows ...models.JobRow) *harness {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		store:  store,
		drive:  &fakeDrive{rows: rows},
		writer: &fakeWriter{},
	}
	scraper := &fakeScraper{pages: map[string]string{
		"https://careers.acme.com/jobs/1": acmePosting,
		"https://jobs.globex.com/42":      globexPosted,
	}}
	h.monitor = New(store, h.drive, scraper, h.writer, Options{SyncDir: t.TempDir(), Logger: zap.NewNop()})
	return h
}

func (h *harness) uploadResume(t *testing.T) models.UserResume {
	t.Helper()
	r := models.UserResume{Content: baseResume}
	require.NoError(t, h.store.CreateResume(context.Background(), &r))
	return r
}

func (h *harness) monitorSheet(t *testing.T, mutate func(*models.DriveConfig)) models.DriveConfig {
	t.Helper()
	ctx := context.Background()
	cfg, err := h.monitor.StartMonitoring(ctx, sheetID, folderID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
		require.NoError(t, h.store.UpdateConfig(ctx, &cfg))
	}
	return cfg
}

func sheetRow(index int, url, description string) models.JobRow {
	return models.JobRow{
		JobURL:            url,
		JobDescription:    description,
		GenerateResume:    true,
		GenerateCover:     true,
		GenerateNewResume: true,
		RowIndex:          index,
	}
}

func TestProcessConfigGeneratesAndWritesBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		sheetRow(2, "https://careers.acme.com/jobs/1", ""),
		sheetRow(3, "", globexPosted),
	)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, models.SyncStats{New: 2, Total: 2}, res.Sync)

	assert.Equal(t, []string{"Acme - Resume & Cover Letter", "Globex Corporation - Resume & Cover Letter"}, h.drive.created)
	assert.Equal(t, 2, h.writer.resumes)
	assert.Equal(t, 2, h.writer.letters)

	acme := h.drive.row(2)
	assert.Regexp(t, `^JOB-\d{8}-[0-9A-F]{8}$`, acme.UniqueID)
	assert.True(t, acme.ResumeGenerated)
	assert.True(t, acme.CoverLetterGenerated)
	assert.Equal(t, "Acme", acme.CompanyName)
	assert.Equal(t, "Add metrics", acme.Recommendations)
	assert.Equal(t, "https://docs.google.com/document/d/doc-1/edit", acme.GoogleDocURL)

	job, err := h.store.GetJobByUniqueID(ctx, acme.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, acmePosting, job.JobDescription)
	assert.Equal(t, 2, job.ExcelRowIndex)

	gen, err := h.store.LatestGeneratedResume(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tailored resume", gen.Content)
	assert.Equal(t, "doc-1", gen.GoogleDocID)

	cfg, err = h.store.GetConfig(ctx, cfg.ID)
	require.NoError(t, err)
	assert.NotNil(t, cfg.LastChecked)
	require.NotNil(t, cfg.LastModified)
	assert.Equal(t, 2026, cfg.LastModified.Year())
}

func TestProcessConfigSkipsUnchangedRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		sheetRow(2, "https://careers.acme.com/jobs/1", ""),
		sheetRow(3, "", globexPosted),
	)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	writes := len(h.drive.writes)

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, models.SyncStats{Unchanged: 2, Total: 2}, res.Sync, "write-backs never make a row dirty")
	assert.Equal(t, 2, h.writer.resumes)
	assert.Len(t, h.drive.writes, writes)
}

func TestProcessConfigRegeneratesEditedRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		sheetRow(2, "https://careers.acme.com/jobs/1", ""),
		sheetRow(3, "", globexPosted),
	)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)

	h.drive.mu.Lock()
	h.drive.rows[1].AdditionalInstructions = "Mention payments experience"
	h.drive.mu.Unlock()

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Sync.Updated)

	assert.Equal(t, 3, h.writer.resumes)
	assert.Equal(t, 3, h.writer.letters)
	assert.Equal(t, "Mention payments experience", h.writer.last.AdditionalInstructions)
	assert.Equal(t, []string{"doc-2"}, h.drive.updated, "existing document is reused")
	assert.Len(t, h.drive.created, 2)
}

func TestProcessConfigEditedRowRefreshesDescription(t *testing.T) {
	pasted := strings.Repeat("Platform engineer for the billing team. ", 4)
	edited := strings.Repeat("Staff engineer for the payments team. ", 4)

	tests := []struct {
		name string
		row  models.JobRow
		edit func(*models.JobRow)
		want string
	}{
		{
			name: "cleared description is scraped from the url",
			row:  sheetRow(2, "https://careers.acme.com/jobs/1", globexPosted),
			edit: func(r *models.JobRow) { r.JobDescription = "" },
			want: acmePosting,
		},
		{
			name: "changed url is scraped again",
			row:  sheetRow(2, "https://careers.acme.com/jobs/1", ""),
			edit: func(r *models.JobRow) { r.JobURL = "https://jobs.globex.com/42" },
			want: globexPosted,
		},
		{
			name: "pasted description replaces the scraped one",
			row:  sheetRow(2, "https://careers.acme.com/jobs/1", ""),
			edit: func(r *models.JobRow) { r.JobDescription = globexPosted },
			want: globexPosted,
		},
		{
			name: "edited instructions replace the description they stood in for",
			row: func() models.JobRow {
				r := sheetRow(2, "https://example.com/blocked", "")
				r.AdditionalInstructions = pasted
				return r
			}(),
			edit: func(r *models.JobRow) { r.AdditionalInstructions = edited },
			want: "Job Description (from user input):\n\n" + edited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, tt.row)
			h.uploadResume(t)
			cfg := h.monitorSheet(t, nil)

			_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
			require.NoError(t, err)

			h.drive.mu.Lock()
			tt.edit(&h.drive.rows[0])
			h.drive.mu.Unlock()

			res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Sync.Updated)
			assert.Equal(t, 1, res.Processed)

			job, err := h.store.GetJobByUniqueID(ctx, h.drive.row(2).UniqueID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.JobDescription)
			assert.Equal(t, tt.want, h.writer.last.JobDescription)
			assert.Equal(t, 2, h.writer.resumes)
		})
	}
}

func TestProcessConfigHonorsDoneFlagsOnFirstSight(t *testing.T) {
	ctx := context.Background()

	finished := sheetRow(2, "", globexPosted)
	finished.UniqueID = "JOB-20260101-AAAAAAAA"
	finished.ResumeGenerated = true
	finished.CoverLetterGenerated = true

	halfDone := sheetRow(3, "https://careers.acme.com/jobs/1", "")
	halfDone.UniqueID = "JOB-20260101-BBBBBBBB"
	halfDone.ResumeGenerated = true

	h := newHarness(t, finished, halfDone)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStats{New: 2, Total: 2}, res.Sync)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Processed)

	assert.Zero(t, h.writer.resumes, "done resumes are not regenerated")
	assert.Equal(t, 1, h.writer.letters)
	assert.Equal(t, []string{"Acme - Resume & Cover Letter"}, h.drive.created)
	assert.True(t, h.drive.row(3).CoverLetterGenerated)

	_, err = h.store.GetJobByUniqueID(ctx, finished.UniqueID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	res, err = h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStats{Unchanged: 2, Total: 2}, res.Sync, "skipped rows are recorded")
	assert.Equal(t, 2, res.Skipped)
}

func TestProcessConfigSkipsNoopWriteBack(t *testing.T) {
	ctx := context.Background()
	row := sheetRow(2, "", globexPosted)
	row.UniqueID = "JOB-20260101-CCCCCCCC"
	row.GenerateCover = false

	h := newHarness(t, row)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, func(c *models.DriveConfig) { c.AlwaysGenerateCoverLetter = false })

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	require.Len(t, h.drive.writes, 1)
	assert.True(t, h.drive.row(2).ResumeGenerated)
	assert.False(t, h.drive.row(2).CoverLetterGenerated)

	for i := 0; i < 2; i++ {
		_, err = h.monitor.ProcessConfig(ctx, cfg.ID, false)
		require.NoError(t, err)
	}
	assert.Len(t, h.drive.writes, 1, "rows with nothing new are not rewritten")
	assert.Equal(t, 1, h.writer.resumes)
	assert.Zero(t, h.writer.letters)
}

func TestProcessConfigForceRegeneratesEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, sheetRow(3, "", globexPosted))
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, h.writer.resumes)
}

func TestProcessConfigRequiresResume(t *testing.T) {
	h := newHarness(t, sheetRow(3, "", globexPosted))
	cfg := h.monitorSheet(t, nil)

	_, err := h.monitor.ProcessConfig(context.Background(), cfg.ID, false)
	assert.ErrorIs(t, err, ErrNoActiveResume)
}

func TestProcessConfigDescriptionFallback(t *testing.T) {
	ctx := context.Background()
	pasted := strings.Repeat("Senior engineer needed for a platform team. ", 4)

	withInstructions := sheetRow(2, "https://example.com/blocked", "")
	withInstructions.AdditionalInstructions = pasted
	nothing := sheetRow(3, "https://example.com/blocked-too", "")

	h := newHarness(t, withInstructions, nothing)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Errors)

	used := h.drive.row(2)
	job, err := h.store.GetJobByUniqueID(ctx, used.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, "Job Description (from user input):\n\n"+pasted, job.JobDescription)

	failed := h.drive.row(3)
	require.NotEmpty(t, failed.UniqueID, "unique id is written back even when the row fails")
	assert.False(t, failed.ResumeGenerated)
	job, err = h.store.GetJobByUniqueID(ctx, failed.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.Status)
}

func TestProcessConfigRecommendationsOnly(t *testing.T) {
	ctx := context.Background()
	row := sheetRow(2, "", globexPosted)
	row.GenerateNewResume = false
	row.GenerateCover = false

	h := newHarness(t, row)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, func(c *models.DriveConfig) { c.AlwaysGenerateCoverLetter = false })

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	assert.Equal(t, 1, h.writer.recs)
	assert.Zero(t, h.writer.resumes)
	assert.Zero(t, h.writer.letters)
	assert.Empty(t, h.drive.created, "no document without generated content")

	got := h.drive.row(2)
	assert.True(t, got.ResumeGenerated)
	assert.False(t, got.CoverLetterGenerated)
	assert.Equal(t, "Lead with impact", got.Recommendations)

	job, err := h.store.GetJobByUniqueID(ctx, got.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestProcessConfigSkipsRowsWithNothingRequested(t *testing.T) {
	ctx := context.Background()
	row := sheetRow(2, "", globexPosted)
	row.UniqueID = "JOB-20260101-AAAAAAAA"
	row.GenerateResume = false
	row.GenerateCover = false

	h := newHarness(t, row)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
}

func TestProcessConfigArchivesRemovedRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		sheetRow(2, "https://careers.acme.com/jobs/1", ""),
		sheetRow(3, "", globexPosted),
	)
	h.uploadResume(t)
	cfg := h.monitorSheet(t, func(c *models.DriveConfig) { c.AutoCleanupOldJobs = true })

	_, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	removed := h.drive.row(3)

	h.drive.mu.Lock()
	h.drive.rows = h.drive.rows[:1]
	h.drive.mu.Unlock()

	res, err := h.monitor.ProcessConfig(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)

	job, err := h.store.GetJobByUniqueID(ctx, removed.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, job.Status)
}

func TestProcessConfigWriteFailureCountsAsError(t *testing.T) {
	h := newHarness(t, sheetRow(3, "", globexPosted))
	h.uploadResume(t)
	cfg := h.monitorSheet(t, nil)
	h.drive.failWrite = true

	res, err := h.monitor.ProcessConfig(context.Background(), cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Processed)
}

func TestMonitoringLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	cfg, err := h.monitor.StartMonitoring(ctx, sheetID, folderID)
	require.NoError(t, err)
	assert.True(t, cfg.IsMonitoring)
	assert.Equal(t, "jobs.xlsx", cfg.ExcelFileName)
	assert.True(t, cfg.AlwaysGenerateCoverLetter)

	status, err := h.monitor.MonitoringStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.ActiveCount)

	require.NoError(t, h.monitor.StopMonitoring(ctx, cfg.ID))
	status, err = h.monitor.MonitoringStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.ActiveCount)
	assert.Len(t, status.Configs, 1)

	again, err := h.monitor.StartMonitoring(ctx, sheetID, "")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID)
	assert.Equal(t, folderID, again.OutputFolderID, "empty folder keeps the previous one")

	require.NoError(t, h.monitor.StopMonitoringFile(ctx, sheetID))
	assert.ErrorIs(t, h.monitor.StopMonitoring(ctx, 999), storage.ErrNotFound)
}

func TestMonitorWithoutDrive(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	defer store.Close()

	m := New(store, nil, nil, &fakeWriter{}, Options{SyncDir: t.TempDir()})
	_, err = m.StartMonitoring(context.Background(), sheetID, folderID)
	assert.ErrorIs(t, err, ErrDriveUnavailable)
	_, err = m.ProcessConfig(context.Background(), 1, false)
	assert.ErrorIs(t, err, ErrDriveUnavailable)
	assert.ErrorIs(t, m.SetupHeaders(context.Background(), sheetID), ErrDriveUnavailable)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, sheetRow(3, "", globexPosted))
	defer h.store.Close()
	h.uploadResume(t)
	h.monitorSheet(t, nil)

	var progress []string
	h.monitor.SetProgressCallback(func(_, _ int, msg string) { progress = append(progress, msg) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.monitor.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		h.drive.mu.Lock()
		defer h.drive.mu.Unlock()
		return h.drive.readCalls >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, 1, h.writer.resumes, "later polls skip the finished row")
	assert.Contains(t, progress, "Processing complete!")
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.uploadResume(t)

	good := models.NewJobApplication()
	good.JobDescription = globexPosted
	require.NoError(t, h.monitor.CreateJob(ctx, &good))
	assert.NotZero(t, good.UserResumeID)

	bad := models.NewJobApplication()
	bad.JobURL = "https://example.com/blocked"
	require.NoError(t, h.monitor.CreateJob(ctx, &bad))

	res, err := h.monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessResult{Processed: 1, Errors: 1, Total: 2}, res)

	got, err := h.store.GetJob(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.True(t, got.ResumeGenerated)
	assert.True(t, got.CoverLetterGenerated)
	assert.Equal(t, "Globex Corporation", got.CompanyName)

	got, err = h.store.GetJob(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestManualGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job := models.NewJobApplication()
	job.JobURL = "https://careers.acme.com/jobs/1"
	require.NoError(t, h.monitor.CreateJob(ctx, &job))

	_, err := h.monitor.GenerateResumeFor(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNoActiveResume)

	h.uploadResume(t)

	gen, err := h.monitor.GenerateResumeFor(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tailored resume", gen.Content)
	assert.Equal(t, "Add metrics", gen.Recommendations)
	assert.Equal(t, "Acme", gen.CompanyName)
	assert.Equal(t, acmePosting, h.writer.last.JobDescription)
	assert.Equal(t, baseResume, h.writer.last.ResumeContent)

	letter, err := h.monitor.GenerateCoverLetterFor(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager", letter.Content)

	analysis, err := h.monitor.AnalyzeJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, analysis.RequiredSkills)

	stored, err := h.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, stored.ResumeGenerated)
	assert.True(t, stored.CoverLetterGenerated)
	assert.Equal(t, acmePosting, stored.JobDescription)

	_, err = h.monitor.GenerateResumeFor(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateJobRequiresSource(t *testing.T) {
	h := newHarness(t)
	job := models.NewJobApplication()
	assert.ErrorIs(t, h.monitor.CreateJob(context.Background(), &job), ErrMissingJobSource)
}

func TestApplyUpdate(t *testing.T) {
	id, done, recs := "JOB-1", true, "tips"
	row := applyUpdate(models.JobRow{CompanyName: "Keep"}, models.RowUpdate{
		UniqueID:        &id,
		ResumeGenerated: &done,
		Recommendations: &recs,
	})
	assert.Equal(t, "JOB-1", row.UniqueID)
	assert.True(t, row.ResumeGenerated)
	assert.False(t, row.CoverLetterGenerated)
	assert.Equal(t, "tips", row.Recommendations)
	assert.Equal(t, "Keep", row.CompanyName)
}
