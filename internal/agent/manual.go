package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

// CreateJob stores a job application entered by hand, attaching the active resume
func (m *Monitor) CreateJob(ctx context.Context, job *models.JobApplication) error {
	job.JobURL = strings.TrimSpace(job.JobURL)
	if job.JobURL == "" && strings.TrimSpace(job.JobDescription) == "" {
		return ErrMissingJobSource
	}
	if job.UserResumeID == 0 {
		if r, err := m.activeResume(ctx, 0); err == nil {
			job.UserResumeID = r.ID
		}
	}
	job.Status = models.StatusPending
	return m.store.CreateJob(ctx, job)
}

// GenerateResumeFor generates a tailored resume with recommendations for a stored job
func (m *Monitor) GenerateResumeFor(ctx context.Context, jobID int64) (models.GeneratedResume, error) {
	job, resume, err := m.prepareJob(ctx, jobID)
	if err != nil {
		return models.GeneratedResume{}, err
	}
	return m.generateResume(ctx, &job, resume)
}

// GenerateCoverLetterFor generates a cover letter for a stored job
func (m *Monitor) GenerateCoverLetterFor(ctx context.Context, jobID int64) (models.GeneratedCoverLetter, error) {
	job, resume, err := m.prepareJob(ctx, jobID)
	if err != nil {
		return models.GeneratedCoverLetter{}, err
	}
	return m.generateCoverLetter(ctx, &job, resume)
}

// AnalyzeJob extracts the requirements of a stored job's description
func (m *Monitor) AnalyzeJob(ctx context.Context, jobID int64) (generation.JobAnalysis, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return generation.JobAnalysis{}, err
	}
	if err := m.ensureDescription(ctx, &job); err != nil {
		return generation.JobAnalysis{}, err
	}
	return m.writer.AnalyzeJobDescription(ctx, job.JobDescription)
}

// ProcessPending generates the requested documents of every pending job
func (m *Monitor) ProcessPending(ctx context.Context) (models.ProcessResult, error) {
	jobs, err := m.store.ListJobs(ctx, storage.JobFilter{Status: models.StatusPending})
	if err != nil {
		return models.ProcessResult{}, err
	}

	res := models.ProcessResult{Total: len(jobs)}
	for i, job := range jobs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		m.reportProgress(100*i/len(jobs), 100, fmt.Sprintf("Processing %s (%d/%d)", job.Label(), i+1, len(jobs)))

		if err := m.processPendingJob(ctx, job); err != nil {
			m.logger.Warn("failed to process job", zap.Int64("job_id", job.ID), zap.Error(err))
			if err := m.store.SetJobStatus(ctx, job.ID, models.StatusFailed); err != nil {
				m.logger.Warn("failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
			}
			res.Errors++
			continue
		}
		res.Processed++
	}

	m.reportProgress(100, 100, "Processing complete!")
	return res, nil
}

func (m *Monitor) processPendingJob(ctx context.Context, job models.JobApplication) error {
	if err := m.store.SetJobStatus(ctx, job.ID, models.StatusProcessing); err != nil {
		return err
	}

	job, resume, err := m.prepareJob(ctx, job.ID)
	if err != nil {
		return err
	}

	if job.GenerateResume {
		if _, err := m.generateResume(ctx, &job, resume); err != nil {
			return err
		}
	}
	if job.GenerateCoverLetter {
		if _, err := m.generateCoverLetter(ctx, &job, resume); err != nil {
			return err
		}
	}
	return m.store.SetJobStatus(ctx, job.ID, models.StatusCompleted)
}

// prepareJob loads a job, its resume and a usable job description
func (m *Monitor) prepareJob(ctx context.Context, jobID int64) (models.JobApplication, models.UserResume, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return job, models.UserResume{}, err
	}
	resume, err := m.activeResume(ctx, job.UserResumeID)
	if err != nil {
		return job, resume, err
	}
	if err := m.ensureDescription(ctx, &job); err != nil {
		return job, resume, err
	}
	if job.CompanyName == "" {
		ensureCompany(&job)
		if err := m.store.UpdateJob(ctx, &job); err != nil {
			return job, resume, err
		}
	}
	return job, resume, nil
}

func (m *Monitor) generateResume(ctx context.Context, job *models.JobApplication, resume models.UserResume) (models.GeneratedResume, error) {
	out, err := m.writer.GenerateResume(ctx, requestFor(*job, resume), true)
	if err != nil {
		return models.GeneratedResume{}, fmt.Errorf("failed to generate resume: %w", err)
	}

	g := models.GeneratedResume{
		JobApplicationID: job.ID,
		Content:          out.Content,
		Recommendations:  out.Recommendations,
		CompanyName:      job.CompanyName,
	}
	if err := m.store.CreateGeneratedResume(ctx, &g); err != nil {
		return g, err
	}

	job.ResumeGenerated = true
	return g, m.store.UpdateJob(ctx, job)
}

func (m *Monitor) generateCoverLetter(ctx context.Context, job *models.JobApplication, resume models.UserResume) (models.GeneratedCoverLetter, error) {
	text, err := m.writer.GenerateCoverLetter(ctx, requestFor(*job, resume))
	if err != nil {
		return models.GeneratedCoverLetter{}, fmt.Errorf("failed to generate cover letter: %w", err)
	}

	g := models.GeneratedCoverLetter{JobApplicationID: job.ID, Content: text}
	if err := m.store.CreateGeneratedCoverLetter(ctx, &g); err != nil {
		return g, err
	}

	job.CoverLetterGenerated = true
	return g, m.store.UpdateJob(ctx, job)
}

func requestFor(job models.JobApplication, resume models.UserResume) generation.Request {
	return generation.Request{
		JobDescription:         job.JobDescription,
		ResumeContent:          resume.Content,
		AdditionalInstructions: job.AdditionalInstructions,
	}
}
