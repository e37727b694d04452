package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fmuoria/resume-drive-agent/internal/agent"
	"github.com/fmuoria/resume-drive-agent/internal/config"
	"github.com/fmuoria/resume-drive-agent/internal/gdrive"
	"github.com/fmuoria/resume-drive-agent/internal/generation"
	"github.com/fmuoria/resume-drive-agent/internal/ingestion"
	"github.com/fmuoria/resume-drive-agent/internal/llm"
	"github.com/fmuoria/resume-drive-agent/internal/scraper"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

// app holds the wired components shared by the commands
type app struct {
	cfg     *config.Config
	store   *storage.Store
	files   *ingestion.FileHandler
	drive   agent.Drive
	llm     llm.Generator
	monitor *agent.Monitor
}

// newApp loads the configuration and wires storage, Google Drive and, when withLLM is set, Gemini.
// Missing Drive credentials leave the agent usable for manual jobs.
func newApp(ctx context.Context, withLLM bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyToEnv()

	a := &app{cfg: cfg, files: ingestion.NewFileHandler(cfg.UploadsDir)}

	a.store, err = storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	var writer agent.Writer
	if withLLM {
		if err := cfg.Validate(); err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		a.llm, err = llm.New(ctx, llm.Options{
			Backend:      cfg.LLMBackend,
			APIKey:       cfg.GeminiAPIKey,
			Project:      cfg.GoogleCloudProject,
			Location:     cfg.GoogleCloudLocation,
			Model:        cfg.GeminiModel,
			Temperature:  cfg.Temperature,
			RequestDelay: cfg.RequestDelay(),
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		writer = generation.NewWriter(a.llm)
	}

	if drive, err := newDrive(ctx, cfg); err != nil {
		logger.Warn("google drive disabled", zap.Error(err))
	} else {
		a.drive = drive
	}

	a.monitor = agent.New(a.store, a.drive, scraper.New(logger), writer, agent.Options{
		SyncDir: cfg.SyncDir,
		Logger:  logger,
	})
	return a, nil
}

func newDrive(ctx context.Context, cfg *config.Config) (*gdrive.Client, error) {
	if err := cfg.ValidateDrive(); err != nil {
		return nil, err
	}
	httpClient, err := gdrive.NewHTTPClient(ctx, gdrive.Credentials{
		File:              cfg.DriveCredentialsPath,
		TokenFile:         cfg.DriveTokenPath,
		UseServiceAccount: cfg.UseServiceAccount,
		Prompt:            os.Stdin,
		Out:               os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	return gdrive.New(ctx, httpClient, logger)
}

// Close releases the LLM client and the database
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
