package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/agent"
	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/ingestion"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

const (
	baseResume = "Jane Doe. Senior backend engineer with eight years of Go, Kubernetes and PostgreSQL experience."
	posting    = "Acme Robotics is hiring a platform engineer to build Go services on Kubernetes."
)

type stubDrive struct {
	headers []string
}

func (d *stubDrive) FileMetadata(_ context.Context, fileID string) (models.FileMetadata, error) {
	return models.FileMetadata{ID: fileID, Name: "Jobs.xlsx", ModifiedTime: "2025-01-01T00:00:00Z"}, nil
}

func (d *stubDrive) ReadRows(context.Context, string) ([]models.JobRow, error) { return nil, nil }

func (d *stubDrive) UpdateRow(context.Context, string, int, models.RowUpdate) error { return nil }

func (d *stubDrive) SetupHeaders(_ context.Context, fileID string) error {
	d.headers = append(d.headers, fileID)
	return nil
}

func (d *stubDrive) CreateDocument(context.Context, string, string, string, string) (models.DocumentInfo, error) {
	return models.DocumentInfo{DocID: "doc-1", DocURL: "https://docs.google.com/document/d/doc-1/edit"}, nil
}

func (d *stubDrive) UpdateDocument(_ context.Context, docID, _, _ string) (models.DocumentInfo, error) {
	return models.DocumentInfo{DocID: docID}, nil
}

type stubWriter struct{}

func (stubWriter) GenerateResume(context.Context, generation.Request, bool) (generation.ResumeResult, error) {
	return generation.ResumeResult{Content: "Tailored resume", Recommendations: "Lead with Kubernetes"}, nil
}

func (stubWriter) GenerateCoverLetter(context.Context, generation.Request) (string, error) {
	return "Dear Hiring Manager", nil
}

func (stubWriter) GenerateRecommendations(context.Context, generation.Request) (string, error) {
	return "Lead with Kubernetes", nil
}

func (stubWriter) AnalyzeJobDescription(context.Context, string) (generation.JobAnalysis, error) {
	return generation.JobAnalysis{RequiredSkills: []string{"Go", "Kubernetes"}, ExperienceLevel: "Senior"}, nil
}

type testServer struct {
	store   *storage.Store
	handler http.Handler
	drive   *stubDrive
}

func newTestServer(t *testing.T, withDrive bool) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := &testServer{store: store}
	var drive agent.Drive
	if withDrive {
		ts.drive = &stubDrive{}
		drive = ts.drive
	}

	monitor := agent.New(store, drive, nil, stubWriter{}, agent.Options{
		SyncDir: filepath.Join(dir, "sync"),
		Logger:  zap.NewNop(),
	})
	files := ingestion.NewFileHandler(filepath.Join(dir, "uploads"))
	ts.handler = NewServer(monitor, store, files, zap.NewNop()).Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedResume(t *testing.T) {
	t.Helper()
	r := models.UserResume{UserName: "Jane", Content: baseResume}
	require.NoError(t, ts.store.CreateResume(context.Background(), &r))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("user_name", "Jane"))
	fw, err := mw.CreateFormFile("resume_file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthAndRoot(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST /jobs/process")

	rec = ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadResume(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/resumes/active", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, uploadRequest(t, "resume.txt", baseResume))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.UserResume
	decode(t, rec, &created)
	assert.Equal(t, "Jane", created.UserName)
	assert.True(t, created.IsActive)
	assert.FileExists(t, created.FilePath)

	rec = ts.do(t, http.MethodGet, "/resumes/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active models.UserResume
	decode(t, rec, &active)
	assert.Equal(t, created.ID, active.ID)
	assert.Equal(t, baseResume, active.Content)
}

func TestUploadResumeValidation(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"unsupported extension", "resume.exe", baseResume, http.StatusBadRequest},
		{"too short", "resume.txt", "Jane", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := ts.do(t, http.MethodPost, "/resumes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedResume(t)

	rec := ts.do(t, http.MethodPost, "/jobs", map[string]interface{}{
		"job_description":       posting,
		"generate_cover_letter": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var job models.JobApplication
	decode(t, rec, &job)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.False(t, job.GenerateCoverLetter)
	assert.NotZero(t, job.UserResumeID)

	rec = ts.do(t, http.MethodGet, "/jobs?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []models.JobApplication
	decode(t, rec, &jobs)
	require.Len(t, jobs, 1)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/jobs/%d/resume", job.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var generated models.GeneratedResume
	decode(t, rec, &generated)
	assert.Equal(t, "Tailored resume", generated.Content)
	assert.Equal(t, "Acme Robotics", generated.CompanyName)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/jobs/%d", job.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail jobResponse
	decode(t, rec, &detail)
	assert.True(t, detail.ResumeGenerated)
	require.NotNil(t, detail.LatestResume)
	assert.Equal(t, generated.ID, detail.LatestResume.ID)
	assert.Nil(t, detail.LatestCoverLetter)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/generated/resumes/%d/download", generated.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Tailored resume"))
	assert.Contains(t, rec.Body.String(), "Lead with Kubernetes")

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/jobs/%d/cover-letter", job.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var letter models.GeneratedCoverLetter
	decode(t, rec, &letter)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/generated/cover-letters/%d/download", letter.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dear Hiring Manager", rec.Body.String())

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/jobs/%d/analyze", job.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis generation.JobAnalysis
	decode(t, rec, &analysis)
	assert.Equal(t, []string{"Go", "Kubernetes"}, analysis.RequiredSkills)
}

func TestProcessPendingEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedResume(t)

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/jobs", map[string]string{"job_description": posting})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/jobs/process", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.ProcessResult
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Processed)
	assert.Zero(t, res.Errors)

	rec = ts.do(t, http.MethodGet, "/jobs?status=completed", nil)
	var jobs []models.JobApplication
	decode(t, rec, &jobs)
	assert.Len(t, jobs, 2)
}

func TestJobErrors(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing source", http.MethodPost, "/jobs", map[string]string{"additional_instructions": "x"}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/jobs?status=bogus", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/jobs?limit=-1", nil, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/jobs/abc", nil, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/jobs/99", nil, http.StatusNotFound},
		{"unknown generated resume", http.MethodGet, "/generated/resumes/7/download", nil, http.StatusNotFound},
		{"generate without job", http.MethodPost, "/jobs/99/resume", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestGenerateRequiresResume(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/jobs", map[string]string{"job_description": posting})
	require.Equal(t, http.StatusCreated, rec.Code)
	var job models.JobApplication
	decode(t, rec, &job)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/jobs/%d/resume", job.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no active resume")
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"config":null,"active_resume":null}`, rec.Body.String())

	rec = ts.do(t, http.MethodPut, "/settings", map[string]interface{}{
		"excel_file_id":         "sheet-1",
		"output_folder_id":      "folder-1",
		"generate_new_resume":   false,
		"auto_cleanup_old_jobs": true,
		"setup_headers":         true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cfg models.DriveConfig
	decode(t, rec, &cfg)
	assert.Equal(t, "Jobs.xlsx", cfg.ExcelFileName)
	assert.Equal(t, "folder-1", cfg.OutputFolderID)
	assert.True(t, cfg.IsMonitoring)
	assert.False(t, cfg.GenerateNewResume)
	assert.True(t, cfg.GenerateRecommendations)
	assert.True(t, cfg.AutoCleanupOldJobs)
	assert.Equal(t, []string{"sheet-1"}, ts.drive.headers)

	rec = ts.do(t, http.MethodPut, "/settings", map[string]interface{}{"generate_recommendations": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/settings", nil)
	var settings settingsResponse
	decode(t, rec, &settings)
	require.NotNil(t, settings.Config)
	assert.False(t, settings.Config.GenerateRecommendations)
	assert.False(t, settings.Config.GenerateNewResume)
	assert.Equal(t, "folder-1", settings.Config.OutputFolderID)
}

func TestSettingsWithoutDrive(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/settings", map[string]string{"excel_file_id": "sheet-1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(t, http.MethodPut, "/settings", map[string]bool{"generate_new_resume": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/settings", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonitoringEndpoints(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPut, "/settings", map[string]string{"excel_file_id": "sheet-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg models.DriveConfig
	decode(t, rec, &cfg)

	rec = ts.do(t, http.MethodGet, "/monitoring", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.MonitoringStatus
	decode(t, rec, &status)
	assert.Equal(t, 1, status.ActiveCount)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/monitoring/%d/stop", cfg.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/monitoring", nil)
	decode(t, rec, &status)
	assert.Zero(t, status.ActiveCount)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/monitoring/%d/start", cfg.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &cfg)
	assert.True(t, cfg.IsMonitoring)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/monitoring/%d/process", cfg.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "processing needs an active resume")

	ts.seedResume(t)
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/monitoring/%d/process?force=true", cfg.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.ProcessResult
	decode(t, rec, &res)
	assert.Equal(t, cfg.ID, res.ConfigID)
	assert.Zero(t, res.Total)

	rec = ts.do(t, http.MethodPost, "/monitoring/42/stop", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedResume(t)

	rec := ts.do(t, http.MethodPost, "/jobs", map[string]string{"job_description": posting})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/jobs/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Job Applications")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
