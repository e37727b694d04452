// Package api exposes resumes, job applications, settings and sheet monitoring over JSON HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/agent"
	"github.com/fmuoria/resume-drive-agent/internal/ingestion"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/sheet"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

const maxUploadSize = 32 << 20

// Server handles HTTP requests
type Server struct {
	monitor *agent.Monitor
	store   *storage.Store
	files   *ingestion.FileHandler
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(monitor *agent.Monitor, store *storage.Store, files *ingestion.FileHandler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		monitor: monitor,
		store:   store,
		files:   files,
		logger:  logger,
	}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /resumes", s.handleUploadResume)
	mux.HandleFunc("GET /resumes/active", s.handleActiveResume)

	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("POST /jobs/process", s.handleProcessPending)
	mux.HandleFunc("GET /jobs/export", s.handleExport)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{id}/resume", s.handleGenerateResume)
	mux.HandleFunc("POST /jobs/{id}/cover-letter", s.handleGenerateCoverLetter)
	mux.HandleFunc("POST /jobs/{id}/analyze", s.handleAnalyzeJob)

	mux.HandleFunc("GET /generated/resumes/{id}/download", s.handleDownloadResume)
	mux.HandleFunc("GET /generated/cover-letters/{id}/download", s.handleDownloadCoverLetter)

	mux.HandleFunc("GET /monitoring", s.handleMonitoringStatus)
	mux.HandleFunc("POST /monitoring/{id}/start", s.handleStartMonitoring)
	mux.HandleFunc("POST /monitoring/{id}/stop", s.handleStopMonitoring)
	mux.HandleFunc("POST /monitoring/{id}/process", s.handleProcessConfig)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.loggingMiddleware(mux)
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Resume Drive Agent",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"POST /resumes":                              "Upload the base resume (resume_file, user_name)",
			"GET /resumes/active":                        "Get the active resume",
			"GET /settings":                              "Get the monitored sheet settings",
			"PUT /settings":                              "Register a sheet and update generation settings",
			"GET /jobs":                                  "List job applications",
			"POST /jobs":                                 "Create a job application",
			"POST /jobs/process":                         "Process all pending job applications",
			"GET /jobs/export":                           "Download an Excel report of job applications",
			"GET /jobs/{id}":                             "Get a job application with its generated documents",
			"POST /jobs/{id}/resume":                     "Generate a tailored resume",
			"POST /jobs/{id}/cover-letter":               "Generate a cover letter",
			"POST /jobs/{id}/analyze":                    "Analyze the job description",
			"GET /monitoring":                            "List monitored sheets",
			"POST /monitoring/{id}/start":                "Start monitoring a sheet",
			"POST /monitoring/{id}/stop":                 "Stop monitoring a sheet",
			"POST /monitoring/{id}/process":              "Process a sheet now",
			"GET /generated/resumes/{id}/download":       "Download a generated resume",
			"GET /generated/cover-letters/{id}/download": "Download a generated cover letter",
			"GET /health":                                "Health check",
		},
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleUploadResume stores an uploaded resume and makes it the active one
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	file, header, err := r.FormFile("resume_file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "resume_file is required")
		return
	}
	defer file.Close()

	if !ingestion.IsAllowed(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "resume must be a .pdf, .docx or .txt file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
		return
	}

	content, err := ingestion.ExtractTextFromBytes(header.Filename, data)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	path, err := s.files.SaveUploadedFile(header.Filename, bytes.NewReader(data))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resume := models.UserResume{
		UserName: r.FormValue("user_name"),
		FilePath: path,
		Content:  content,
	}
	if err := s.store.CreateResume(r.Context(), &resume); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("uploaded resume", zap.Int64("resume_id", resume.ID), zap.String("file", header.Filename))
	s.respondJSON(w, http.StatusCreated, resume)
}

func (s *Server) handleActiveResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.store.ActiveResume(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resume)
}

type settingsResponse struct {
	Config       *models.DriveConfig `json:"config"`
	ActiveResume *models.UserResume  `json:"active_resume"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	var resp settingsResponse

	cfg, err := s.store.LatestConfig(r.Context())
	switch {
	case err == nil:
		resp.Config = &cfg
	case !errors.Is(err, storage.ErrNotFound):
		s.respondErr(w, err)
		return
	}

	resume, err := s.store.ActiveResume(r.Context())
	switch {
	case err == nil:
		resp.ActiveResume = &resume
	case !errors.Is(err, storage.ErrNotFound):
		s.respondErr(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

type settingsRequest struct {
	ExcelFileID               string `json:"excel_file_id"`
	OutputFolderID            string `json:"output_folder_id"`
	GenerateNewResume         *bool  `json:"generate_new_resume"`
	GenerateRecommendations   *bool  `json:"generate_recommendations"`
	AlwaysGenerateCoverLetter *bool  `json:"always_generate_cover_letter"`
	AutoCleanupOldJobs        *bool  `json:"auto_cleanup_old_jobs"`
	SetupHeaders              bool   `json:"setup_headers"`
}

func (req settingsRequest) apply(cfg *models.DriveConfig) {
	if req.OutputFolderID != "" {
		cfg.OutputFolderID = req.OutputFolderID
	}
	if req.GenerateNewResume != nil {
		cfg.GenerateNewResume = *req.GenerateNewResume
	}
	if req.GenerateRecommendations != nil {
		cfg.GenerateRecommendations = *req.GenerateRecommendations
	}
	if req.AlwaysGenerateCoverLetter != nil {
		cfg.AlwaysGenerateCoverLetter = *req.AlwaysGenerateCoverLetter
	}
	if req.AutoCleanupOldJobs != nil {
		cfg.AutoCleanupOldJobs = *req.AutoCleanupOldJobs
	}
}

// handleUpdateSettings registers the sheet for monitoring when a file id is given,
// then applies the generation toggles to it
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	ctx := r.Context()
	var (
		cfg models.DriveConfig
		err error
	)
	if req.ExcelFileID != "" {
		cfg, err = s.monitor.StartMonitoring(ctx, req.ExcelFileID, req.OutputFolderID)
	} else {
		cfg, err = s.store.LatestConfig(ctx)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}

	req.apply(&cfg)
	if err := s.store.UpdateConfig(ctx, &cfg); err != nil {
		s.respondErr(w, err)
		return
	}

	if req.SetupHeaders {
		if err := s.monitor.SetupHeaders(ctx, cfg.ExcelFileID); err != nil {
			s.respondErr(w, err)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.JobFilter{Status: models.JobStatus(q.Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}
	if v := q.Get("config_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "config_id must be a number")
			return
		}
		filter.ConfigID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		filter.Limit = n
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, jobs)
}

type createJobRequest struct {
	JobURL                 string `json:"job_url"`
	JobDescription         string `json:"job_description"`
	AdditionalInstructions string `json:"additional_instructions"`
	GenerateResume         *bool  `json:"generate_resume"`
	GenerateCoverLetter    *bool  `json:"generate_cover_letter"`
	GenerateNewResume      *bool  `json:"generate_new_resume"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	job := models.NewJobApplication()
	job.JobURL = req.JobURL
	job.JobDescription = req.JobDescription
	job.AdditionalInstructions = req.AdditionalInstructions
	if req.GenerateResume != nil {
		job.GenerateResume = *req.GenerateResume
	}
	if req.GenerateCoverLetter != nil {
		job.GenerateCoverLetter = *req.GenerateCoverLetter
	}
	if req.GenerateNewResume != nil {
		job.GenerateNewResume = *req.GenerateNewResume
	}

	if err := s.monitor.CreateJob(r.Context(), &job); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, job)
}

func (s *Server) handleProcessPending(w http.ResponseWriter, r *http.Request) {
	res, err := s.monitor.ProcessPending(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

type jobResponse struct {
	models.JobApplication
	LatestResume      *models.GeneratedResume      `json:"latest_resume,omitempty"`
	LatestCoverLetter *models.GeneratedCoverLetter `json:"latest_cover_letter,omitempty"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	resp := jobResponse{JobApplication: job}
	if g, err := s.store.LatestGeneratedResume(ctx, id); err == nil {
		resp.LatestResume = &g
	}
	if g, err := s.store.LatestGeneratedCoverLetter(ctx, id); err == nil {
		resp.LatestCoverLetter = &g
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	g, err := s.monitor.GenerateResumeFor(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	g, err := s.monitor.GenerateCoverLetterFor(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	analysis, err := s.monitor.AnalyzeJob(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

// handleExport streams an Excel report of every job application
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.monitor.ReportEntries(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}

	dir, err := os.MkdirTemp("", "jobs-export-")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "job_applications.xlsx")
	if err := sheet.ExportReport(entries, path); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := fmt.Sprintf("job_applications_%s.xlsx", time.Now().Format("20060102_150405"))
	s.respondFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", name, data)
}

func (s *Server) handleDownloadResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	g, err := s.store.GetGeneratedResume(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	body := g.Content
	if g.Recommendations != "" {
		body += "\n\nRECOMMENDATIONS\n\n" + g.Recommendations
	}
	s.respondFile(w, "text/plain; charset=utf-8", fmt.Sprintf("resume_%d.txt", g.ID), []byte(body))
}

func (s *Server) handleDownloadCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	g, err := s.store.GetGeneratedCoverLetter(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondFile(w, "text/plain; charset=utf-8", fmt.Sprintf("cover_letter_%d.txt", g.ID), []byte(g.Content))
}

func (s *Server) handleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.monitor.MonitoringStatus(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	cfg, err := s.monitor.StartMonitoringConfig(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.monitor.StopMonitoring(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Monitoring stopped",
	})
}

// handleProcessConfig runs one pass over a sheet; ?force=true regenerates every row
func (s *Server) handleProcessConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	res, err := s.monitor.ProcessConfig(r.Context(), id, force)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// pathID parses the {id} path segment, answering 400 when it is not a number
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "id must be a number")
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrNoActiveResume), errors.Is(err, agent.ErrMissingJobSource):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrNoJobDescription):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrDriveUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write download", zap.String("file", name), zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
