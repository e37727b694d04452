package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/fmuoria/resume-drive-agent/internal/agent"
	"github.com/fmuoria/resume-drive-agent/internal/api"
	"github.com/fmuoria/resume-drive-agent/internal/config"
	"github.com/fmuoria/resume-drive-agent/internal/sheet"
	"github.com/fmuoria/resume-drive-agent/internal/storage"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "resume-drive-agent",
	Short: "Generate tailored resumes and cover letters from a Google Sheet of jobs",
	Long: `Resume Drive Agent watches a Google Sheet of job postings. For every new or edited
row it obtains the job description, generates a tailored resume and cover letter with
Gemini, publishes them as a Google Doc and writes the results back into the sheet.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sheet monitor",
	RunE:  runServe,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the monitored sheets until interrupted",
	RunE:  runMonitor,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one monitored sheet once",
	RunE:  runProcess,
}

var headersCmd = &cobra.Command{
	Use:   "headers [file-id]",
	Short: "Write the expected column headers into a sheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeaders,
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a sample jobs workbook",
	RunE:  runTemplate,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an Excel report of stored job applications",
	RunE:  runExport,
}

var (
	port         int
	interval     time.Duration
	processID    int64
	processForce bool
	templateOut  string
	exportOut    string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/ResumeDriveAgent/config.json)")

	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	serveCmd.Flags().DurationVar(&interval, "interval", 0, "Time between sheet polls (overrides config)")
	monitorCmd.Flags().DurationVar(&interval, "interval", 0, "Time between sheet polls (overrides config)")

	processCmd.Flags().Int64Var(&processID, "config-id", 0, "Monitored sheet to process (default: most recently updated)")
	processCmd.Flags().BoolVar(&processForce, "force", false, "Regenerate every row")

	templateCmd.Flags().StringVarP(&templateOut, "output", "o", "job_applications_template.xlsx", "Output path")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "job_applications_report.xlsx", "Output path")

	rootCmd.AddCommand(serveCmd, monitorCmd, processCmd, headersCmd, templateCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if port != 0 {
		a.cfg.Port = port
	}
	every := pollInterval(a.cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           api.NewServer(a.monitor, a.store, a.files, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting Resume Drive Agent", zap.Int("port", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.monitor.Run(ctx, every)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.drive == nil {
		return agent.ErrDriveUnavailable
	}
	return a.monitor.Run(ctx, pollInterval(a.cfg))
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	id := processID
	if id == 0 {
		cfg, err := a.store.LatestConfig(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no sheet is configured, run serve and save settings first")
		}
		if err != nil {
			return err
		}
		id = cfg.ID
	}

	a.monitor.SetProgressCallback(func(current, total int, message string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", 100*current/total, message)
	})

	res, err := a.monitor.ProcessConfig(ctx, id, processForce)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runHeaders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.monitor.SetupHeaders(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Headers written to %s\n", args[0])
	return nil
}

func runTemplate(cmd *cobra.Command, args []string) error {
	data, err := sheet.Template()
	if err != nil {
		return err
	}
	if err := os.WriteFile(templateOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", templateOut)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.monitor.ReportEntries(ctx)
	if err != nil {
		return err
	}
	if err := sheet.ExportReport(entries, exportOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d job applications to %s\n", len(entries), exportOut)
	return nil
}

func pollInterval(cfg *config.Config) time.Duration {
	if interval > 0 {
		return interval
	}
	return cfg.PollInterval()
}
