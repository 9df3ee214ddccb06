package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"catalog-builder/config"
	"catalog-builder/models"
	"catalog-builder/publish"
	"catalog-builder/services"
	"catalog-builder/storage"
	"catalog-builder/utils"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Capture screenshots, build thumbnails and render the catalog page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Generating...")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			logger := utils.NewLogger()
			logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

			return generate(ctx, cfg, logger)
		},
	}
}

func generate(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Catalog build starting ===")
	logger.Info("Config: catalog %s | concurrency %d | retries %d | timeout %v",
		cfg.CatalogPath, cfg.MaxConcurrency, cfg.MaxRetries, cfg.NavigationTimeout)

	pipeline := services.NewPipeline(cfg, logger)

	if cfg.ManifestPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.ManifestPath)
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer csvWriter.Close()
		pipeline.Manifests = append(pipeline.Manifests, csvWriter)
	}

	var pgWriter *storage.PostgresWriter
	if cfg.PostgresEnabled() {
		var err error
		pgWriter, err = storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			// the page can still be built without the database
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			pgWriter = nil
		} else {
			defer pgWriter.Close()
			pipeline.Manifests = append(pipeline.Manifests, pgWriter)
		}
	}

	if cfg.S3Enabled() {
		publisher, err := publish.NewS3Publisher(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix, logger)
		if err != nil {
			return fmt.Errorf("configure s3 publisher: %w", err)
		}
		pipeline.Publisher = publisher
	}

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	services.NewSummaryService(logger).Print(summary)

	if pgWriter != nil {
		counts, err := pgWriter.FetchCaptureCounts()
		if err != nil {
			logger.Error("Failed to read capture history: %v", err)
		} else {
			logger.Info("[storage] Capture history: %d captured | %d cached | %d failed",
				counts[models.CaptureCaptured], counts[models.CaptureCached], counts[models.CaptureFailed])
		}
	}
	return nil
}
