package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/gdrive"
	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

const (
	minScrapedLength     = 100
	minInstructionsAsJD  = 100
	minDescriptionLength = 50
	userInputJDPrefix    = "Job Description (from user input):\n\n"
)

// processJob generates whatever the job still needs, publishes the combined
// Google Doc and returns the cells to write back to the sheet
func (m *Monitor) processJob(ctx context.Context, cfg models.DriveConfig, job *models.JobApplication,
	resume models.UserResume, force bool) (models.RowUpdate, error) {
	var upd models.RowUpdate

	if err := m.ensureDescription(ctx, job); err != nil {
		return upd, err
	}
	ensureCompany(job)

	wantResume := cfg.GenerateNewResume && job.GenerateResume
	wantRecs := cfg.GenerateRecommendations
	wantCover := cfg.AlwaysGenerateCoverLetter || job.GenerateCoverLetter

	req := generation.Request{
		JobDescription:         job.JobDescription,
		ResumeContent:          resume.Content,
		AdditionalInstructions: job.AdditionalInstructions,
	}

	var (
		coverText, resumeText, recs string
		coverDone, resumeDone       bool
	)

	if wantCover && (force || !job.CoverLetterGenerated) {
		text, err := m.writer.GenerateCoverLetter(ctx, req)
		if err != nil {
			return upd, fmt.Errorf("failed to generate cover letter: %w", err)
		}
		coverText, coverDone = text, true
	}

	if wantResume && (force || !job.ResumeGenerated) {
		if job.GenerateNewResume {
			out, err := m.writer.GenerateResume(ctx, req, wantRecs)
			if err != nil {
				return upd, fmt.Errorf("failed to generate resume: %w", err)
			}
			resumeText, recs = out.Content, out.Recommendations
		} else if wantRecs {
			text, err := m.writer.GenerateRecommendations(ctx, req)
			if err != nil {
				return upd, fmt.Errorf("failed to generate recommendations: %w", err)
			}
			recs = text
		}
		resumeDone = true
	}

	var doc models.DocumentInfo
	if resumeText != "" || coverText != "" {
		var err error
		doc, err = m.publish(ctx, cfg, job, resume, resumeText, coverText)
		if err != nil {
			return upd, err
		}
	} else if url, err := m.latestDocURL(ctx, job.ID); err == nil {
		doc.DocURL = url
	}

	if resumeDone {
		content := resumeText
		if content == "" {
			content = resume.Content
		}
		g := models.GeneratedResume{
			JobApplicationID: job.ID,
			Content:          content,
			Recommendations:  recs,
			GoogleDocID:      doc.DocID,
			GoogleDocURL:     doc.DocURL,
			CompanyName:      job.CompanyName,
		}
		if err := m.store.CreateGeneratedResume(ctx, &g); err != nil {
			return upd, err
		}
	}
	if coverDone {
		g := models.GeneratedCoverLetter{
			JobApplicationID: job.ID,
			Content:          coverText,
			GoogleDocID:      doc.DocID,
			GoogleDocURL:     doc.DocURL,
		}
		if err := m.store.CreateGeneratedCoverLetter(ctx, &g); err != nil {
			return upd, err
		}
	}

	job.ResumeGenerated = job.ResumeGenerated || resumeDone
	job.CoverLetterGenerated = job.CoverLetterGenerated || coverDone
	switch {
	case (!wantResume || job.ResumeGenerated) && (!wantCover || job.CoverLetterGenerated):
		job.Status = models.StatusCompleted
	case job.ResumeGenerated || job.CoverLetterGenerated:
		job.Status = models.StatusProcessing
	}
	if err := m.store.UpdateJob(ctx, job); err != nil {
		return upd, err
	}

	m.logger.Info("processed job",
		zap.String("unique_id", job.UniqueID),
		zap.String("company", job.CompanyName),
		zap.Bool("resume", resumeDone),
		zap.Bool("cover_letter", coverDone),
		zap.String("status", string(job.Status)))

	resumeFlag, coverFlag, company := job.ResumeGenerated, job.CoverLetterGenerated, job.CompanyName
	upd.ResumeGenerated = &resumeFlag
	upd.CoverLetterGenerated = &coverFlag
	upd.CompanyName = &company
	if recs != "" {
		upd.Recommendations = &recs
	}
	if doc.DocURL != "" {
		upd.GoogleDocURL = &doc.DocURL
	}
	return upd, nil
}

// ensureDescription scrapes the job URL when no description is stored. Long additional
// instructions stand in for the description when scraping fails.
func (m *Monitor) ensureDescription(ctx context.Context, job *models.JobApplication) error {
	if strings.TrimSpace(job.JobDescription) == "" {
		var scraped string
		if job.JobURL != "" && m.scraper != nil {
			text, err := m.scraper.ExtractJobDescription(ctx, job.JobURL)
			if err != nil {
				m.logger.Warn("failed to scrape job posting", zap.String("url", job.JobURL), zap.Error(err))
			}
			scraped = text
		}

		if len(scraped) < minScrapedLength && len(job.AdditionalInstructions) > minInstructionsAsJD {
			scraped = userInputJDPrefix + job.AdditionalInstructions
			job.AdditionalInstructions = ""
		}
		job.JobDescription = scraped

		if job.ID != 0 {
			if err := m.store.UpdateJob(ctx, job); err != nil {
				return err
			}
		}
	}

	if len(strings.TrimSpace(job.JobDescription)) < minDescriptionLength {
		return ErrNoJobDescription
	}
	return nil
}

func ensureCompany(job *models.JobApplication) {
	if job.CompanyName == "" {
		job.CompanyName = gdrive.ExtractCompanyName(job.JobDescription, job.JobURL)
	}
}

// publish writes the combined document, reusing the job's existing Google Doc when there is one.
// Sections not regenerated in this pass are filled from the latest stored versions.
func (m *Monitor) publish(ctx context.Context, cfg models.DriveConfig, job *models.JobApplication,
	resume models.UserResume, resumeText, coverText string) (models.DocumentInfo, error) {
	if resumeText == "" {
		resumeText = resume.Content
		if prev, err := m.store.LatestGeneratedResume(ctx, job.ID); err == nil && prev.Content != "" {
			resumeText = prev.Content
		}
	}
	if coverText == "" {
		if prev, err := m.store.LatestGeneratedCoverLetter(ctx, job.ID); err == nil {
			coverText = prev.Content
		}
	}

	docID, err := m.store.LatestDocumentID(ctx, job.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.DocumentInfo{}, err
	}

	if docID != "" {
		doc, err := m.drive.UpdateDocument(ctx, docID, resumeText, coverText)
		if err != nil {
			return models.DocumentInfo{}, fmt.Errorf("failed to update document: %w", err)
		}
		return doc, nil
	}

	title := fmt.Sprintf("%s - Resume & Cover Letter", job.CompanyName)
	doc, err := m.drive.CreateDocument(ctx, cfg.OutputFolderID, title, resumeText, coverText)
	if err != nil {
		return models.DocumentInfo{}, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (m *Monitor) latestDocURL(ctx context.Context, jobID int64) (string, error) {
	docID, err := m.store.LatestDocumentID(ctx, jobID)
	if err != nil {
		return "", err
	}
	return gdrive.DocURL(docID), nil
}
