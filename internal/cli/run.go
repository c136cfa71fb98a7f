package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/terra-clan/course-importer/internal/config"
	"github.com/terra-clan/course-importer/internal/importer"
	"github.com/terra-clan/course-importer/internal/logging"
	"github.com/terra-clan/course-importer/internal/models"
	"github.com/terra-clan/course-importer/pkg/client"
)

// Run parses args, then converts the archive and either prints or uploads
// the result. The course document goes to stdout, logs to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, shouldExit, err := Parse(args, stderr)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, stderr)
	logger.Debug("configuration loaded", "config", cfg.String())

	dryRun := opts.DryRun
	if !dryRun && !cfg.HasCredentials() {
		logger.Warn("--url and --token are required for upload, running in dry-run mode")
		dryRun = true
	}

	logger.Info("parsing archive", "archive", opts.ArchivePath)
	course, err := importer.ParseArchive(opts.ArchivePath, importer.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to parse archive: %w", err)
	}
	logger.Info("parsed course",
		"course", course.Name,
		"modules", len(course.Modules),
		"tasks", course.TaskCount(),
	)

	if dryRun {
		return writeDocument(course, opts.Output, stdout, logger)
	}

	return upload(ctx, cfg, course, logger)
}

// loadConfig loads file and environment configuration and applies flags on top
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.IsSet("url") {
		cfg.API.URL = opts.URL
	}
	if opts.IsSet("token") {
		cfg.API.Token = opts.Token
	}
	if opts.IsSet("timeout") {
		cfg.API.Timeout = opts.Timeout
	}
	if opts.IsSet("max-retries") {
		cfg.API.MaxRetries = opts.MaxRetries
	}
	if opts.IsSet("log-level") {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.IsSet("log-format") {
		cfg.Logging.Format = opts.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

func writeDocument(course *models.Course, output string, stdout io.Writer, logger *slog.Logger) error {
	if output == "" {
		return importer.Encode(stdout, course, true)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := importer.Encode(f, course, true); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("course document written", "path", output)
	return nil
}

func upload(ctx context.Context, cfg *config.Config, course *models.Course, logger *slog.Logger) error {
	policy := client.DefaultRetryPolicy()
	policy.MaxRetries = cfg.API.MaxRetries
	policy.BackoffFactor = cfg.API.BackoffFactor

	uploader := client.NewUploader(cfg.API.URL, cfg.API.Token,
		client.WithTimeout(cfg.API.Timeout),
		client.WithRetryPolicy(policy),
		client.WithLogger(logger),
	)
	defer uploader.Close()

	res, err := uploader.UploadCourse(ctx, course)
	if err != nil {
		var uploadErr *client.UploadError
		if errors.As(err, &uploadErr) {
			logger.Error("upload failed", "kind", uploadErr.Kind, "status", uploadErr.StatusCode, "attempts", uploadErr.Attempts)
		}
		return err
	}

	logger.Info("import accepted",
		"status", res.StatusCode,
		"payload_mb", fmt.Sprintf("%.2f", float64(res.PayloadSize)/1024/1024),
	)
	return nil
}
