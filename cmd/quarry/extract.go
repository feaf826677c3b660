package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/services/browser"
	"github.com/ternarybob/quarry/internal/services/diagnostics"
	"github.com/ternarybob/quarry/internal/services/extractor"
	"github.com/ternarybob/quarry/internal/services/retrieval"
	"github.com/ternarybob/quarry/internal/storage"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <work-item-url>",
	Short: "Open a work item in the browser and extract every section",
	Long: `Opens the work item detail view in Chrome using the configured profile, extracts
history, related work, discussion, attachments and development artifacts, and
downloads attachments into the browser download directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Write the work item JSON to this file instead of stdout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	itemURL := args[0]
	runID := common.NewRunID()
	common.SetCrashContext("run_id", runID)
	common.SetCrashContext("url", itemURL)

	logger.Info().Str("run_id", runID).Str("url", itemURL).Msg("Starting extraction run")

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	session, err := browser.NewSession(ctx, config.Browser, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Open(ctx, itemURL); err != nil {
		return err
	}

	opts := []extractor.Option{}
	if config.Retrieval.Enabled {
		opts = append(opts, extractor.WithRetriever(
			retrieval.NewService(session, storageManager.DownloadStorage(), config.Retrieval, runID, logger)))
	}

	sink, err := diagnostics.NewSink(config.Diagnostics, logger)
	if err != nil {
		return err
	}
	if sink != nil {
		opts = append(opts, extractor.WithSnapshotSink(sink))
	}

	item, extractErr := extractor.NewExtractor(session, config.Extraction, logger, opts...).ExtractAll(ctx, runID)
	if item != nil {
		if err := writeItem(item, extractOutput); err != nil {
			return err
		}
		logRetrieved(ctx, storageManager.DownloadStorage(), runID)
	}

	return extractErr
}

func logRetrieved(ctx context.Context, ledger interfaces.DownloadStorage, runID string) {
	records, err := ledger.ListDownloads(ctx, runID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read download ledger")
		return
	}
	logger.Info().
		Str("run_id", runID).
		Int("files", len(records)).
		Str("download_dir", config.Browser.DownloadDir).
		Msg("Extraction run complete")
}
