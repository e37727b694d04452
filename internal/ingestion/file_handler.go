package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AllowedExtensions lists the resume formats accepted for upload
var AllowedExtensions = []string{".pdf", ".docx", ".txt"}

// FileHandler stores uploaded resumes
type FileHandler struct {
	uploadsDir string
	now        func() time.Time
}

// NewFileHandler creates a new file handler
func NewFileHandler(uploadsDir string) *FileHandler {
	return &FileHandler{
		uploadsDir: uploadsDir,
		now:        time.Now,
	}
}

// IsAllowed reports whether filename has an accepted extension
func IsAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SaveUploadedFile saves an uploaded file under uploads/resumes with a timestamped name
func (fh *FileHandler) SaveUploadedFile(filename string, content io.Reader) (string, error) {
	if !IsAllowed(filename) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filename))
	}

	dir := filepath.Join(fh.uploadsDir, "resumes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	filePath := filepath.Join(dir, fmt.Sprintf("%s_%s", fh.now().Format("20060102_150405"), sanitizeFilename(filename)))
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// ClearUploads removes all files from the uploads directory
func (fh *FileHandler) ClearUploads() error {
	if err := os.RemoveAll(fh.uploadsDir); err != nil {
		return fmt.Errorf("failed to clear uploads directory: %w", err)
	}
	return os.MkdirAll(fh.uploadsDir, 0755)
}

// sanitizeFilename keeps the base name and replaces characters that are unsafe in paths
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
