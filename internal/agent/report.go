package agent

import (
	"context"
	"errors"

	"github.com/fmuoria/resume-drive-agent/internal/gdrive"
	"github.com/fmuoria/resume-drive-agent/internal/sheet"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

// ReportEntries returns every stored job application with the URL of its latest Google Doc
func (m *Monitor) ReportEntries(ctx context.Context) ([]sheet.ReportEntry, error) {
	jobs, err := m.store.ListJobs(ctx, storage.JobFilter{})
	if err != nil {
		return nil, err
	}

	entries := make([]sheet.ReportEntry, 0, len(jobs))
	for _, job := range jobs {
		entry := sheet.ReportEntry{Job: job}
		docID, err := m.store.LatestDocumentID(ctx, job.ID)
		switch {
		case err == nil:
			entry.GoogleDocURL = gdrive.DocURL(docID)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
