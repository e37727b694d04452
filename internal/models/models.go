package models

import (
	"fmt"
	"time"
)

// JobStatus is the processing state of a job application
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusArchived   JobStatus = "archived"
)

// Valid reports whether s is a known status
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusArchived:
		return true
	}
	return false
}

// DriveConfig is a monitored spreadsheet together with its generation settings
type DriveConfig struct {
	ID                        int64      `json:"id"`
	ExcelFileID               string     `json:"excel_file_id"`
	ExcelFileName             string     `json:"excel_file_name"`
	OutputFolderID            string     `json:"output_folder_id"`
	IsMonitoring              bool       `json:"is_monitoring"`
	LastChecked               *time.Time `json:"last_checked,omitempty"`
	LastModified              *time.Time `json:"last_modified,omitempty"`
	GenerateNewResume         bool       `json:"generate_new_resume"`
	GenerateRecommendations   bool       `json:"generate_recommendations"`
	AlwaysGenerateCoverLetter bool       `json:"always_generate_cover_letter"`
	AutoCleanupOldJobs        bool       `json:"auto_cleanup_old_jobs"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// NewDriveConfig returns a config with the default generation settings
func NewDriveConfig(fileID, folderID string) DriveConfig {
	return DriveConfig{
		ExcelFileID:               fileID,
		OutputFolderID:            folderID,
		GenerateNewResume:         true,
		GenerateRecommendations:   true,
		AlwaysGenerateCoverLetter: true,
	}
}

func (c DriveConfig) String() string {
	state := "Stopped"
	if c.IsMonitoring {
		state = "Monitoring"
	}
	return fmt.Sprintf("Google Drive: %s (%s)", c.ExcelFileName, state)
}

// UserResume is an uploaded base resume
type UserResume struct {
	ID         int64     `json:"id"`
	UserName   string    `json:"user_name"`
	FilePath   string    `json:"file_path"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploaded_at"`
	IsActive   bool      `json:"is_active"`
}

// JobApplication is the stored state of one job row
type JobApplication struct {
	ID                     int64     `json:"id"`
	UniqueID               string    `json:"unique_id"`
	DriveConfigID          int64     `json:"drive_config_id,omitempty"`
	JobURL                 string    `json:"job_url"`
	JobDescription         string    `json:"job_description"`
	CompanyName            string    `json:"company_name"`
	AdditionalInstructions string    `json:"additional_instructions"`
	GenerateResume         bool      `json:"generate_resume"`
	GenerateCoverLetter    bool      `json:"generate_cover_letter"`
	GenerateNewResume      bool      `json:"generate_new_resume"`
	ResumeGenerated        bool      `json:"resume_generated"`
	CoverLetterGenerated   bool      `json:"cover_letter_generated"`
	ExcelRowIndex          int       `json:"excel_row_index,omitempty"`
	UserResumeID           int64     `json:"user_resume_id,omitempty"`
	Status                 JobStatus `json:"status"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewJobApplication returns a pending application with every generation toggle on
func NewJobApplication() JobApplication {
	return JobApplication{
		GenerateResume:      true,
		GenerateCoverLetter: true,
		GenerateNewResume:   true,
		Status:              StatusPending,
	}
}

// Label is a short human readable description used in logs
func (j JobApplication) Label() string {
	switch {
	case j.JobURL != "":
		return fmt.Sprintf("Job Application - %s (%s)", truncate(j.JobURL, 50), j.Status)
	case j.JobDescription != "":
		return fmt.Sprintf("Job Application - %s (%s)", truncate(j.JobDescription, 50), j.Status)
	default:
		return fmt.Sprintf("Job Application #%d (%s)", j.ID, j.Status)
	}
}

// GeneratedResume is one AI generated resume
type GeneratedResume struct {
	ID               int64     `json:"id"`
	JobApplicationID int64     `json:"job_application_id"`
	Content          string    `json:"content"`
	Recommendations  string    `json:"recommendations"`
	FilePath         string    `json:"file_path,omitempty"`
	GoogleDocID      string    `json:"google_doc_id,omitempty"`
	GoogleDocURL     string    `json:"google_doc_url,omitempty"`
	CompanyName      string    `json:"company_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// GeneratedCoverLetter is one AI generated cover letter
type GeneratedCoverLetter struct {
	ID               int64     `json:"id"`
	JobApplicationID int64     `json:"job_application_id"`
	Content          string    `json:"content"`
	FilePath         string    `json:"file_path,omitempty"`
	GoogleDocID      string    `json:"google_doc_id,omitempty"`
	GoogleDocURL     string    `json:"google_doc_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// JobRow is one row of the monitored sheet
type JobRow struct {
	UniqueID               string `json:"unique_id"`
	JobURL                 string `json:"job_url"`
	JobDescription         string `json:"job_description"`
	AdditionalInstructions string `json:"additional_instructions"`
	GenerateResume         bool   `json:"generate_resume"`
	GenerateCover          bool   `json:"generate_cover"`
	GenerateNewResume      bool   `json:"generate_new_resume"`
	ResumeGenerated        bool   `json:"resume_generated"`
	CoverLetterGenerated   bool   `json:"cover_letter_generated"`
	Recommendations        string `json:"recommendations"`
	CompanyName            string `json:"company_name"`
	GoogleDocURL           string `json:"google_doc_url"`
	RowIndex               int    `json:"row_index"` // sheet row number, header is row 1
}

// RowUpdate carries the cells to write back into a sheet row. Nil fields are left untouched.
type RowUpdate struct {
	UniqueID             *string
	ResumeGenerated      *bool
	CoverLetterGenerated *bool
	Recommendations      *string
	CompanyName          *string
	GoogleDocURL         *string
}

// Empty reports whether the update writes nothing
func (u RowUpdate) Empty() bool {
	return u.UniqueID == nil && u.ResumeGenerated == nil && u.CoverLetterGenerated == nil &&
		u.Recommendations == nil && u.CompanyName == nil && u.GoogleDocURL == nil
}

// FileMetadata describes a Drive file
type FileMetadata struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modified_time"`
	MimeType     string `json:"mime_type"`
}

// DocumentInfo identifies a Google Doc
type DocumentInfo struct {
	DocID  string `json:"doc_id"`
	DocURL string `json:"doc_url"`
}

// SyncStats counts how rows compared with the last seen snapshot
type SyncStats struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// ProcessResult summarizes one pass over a monitored sheet
type ProcessResult struct {
	ConfigID  int64     `json:"config_id"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Errors    int       `json:"errors"`
	Archived  int       `json:"archived"`
	Total     int       `json:"total"`
	Sync      SyncStats `json:"sync"`
}

// MonitoringStatus lists the monitored sheets
type MonitoringStatus struct {
	Configs     []DriveConfig `json:"configs"`
	ActiveCount int           `json:"active_count"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
