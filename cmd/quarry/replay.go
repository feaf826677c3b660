package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/services/extractor"
	"github.com/ternarybob/quarry/internal/services/htmldoc"
)

var (
	replayURL    string
	replayOutput string
)

var replayCmd = &cobra.Command{
	Use:   "replay <snapshot.html>",
	Short: "Run the extractors against a saved snapshot",
	Long: `Parses a saved HTML snapshot of the detail view and runs the description, history,
related work, discussion and attachment extractors against it. Nothing is downloaded.
Tooltips and secondary windows are not part of a snapshot, so dates come back empty
and development artifacts are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayURL, "url", "https://localhost/_workitems/edit/0", "URL the snapshot was taken from")
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "", "Write the work item JSON to this file instead of stdout")
}

func runReplay(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	doc, err := htmldoc.New(replayURL, string(src), logger)
	if err != nil {
		return err
	}

	item, err := newReplayExtractor(doc, config.Extraction, logger).ExtractAll(cmd.Context(), common.NewRunID())
	if err != nil {
		return err
	}
	return writeItem(item, replayOutput)
}

// newReplayExtractor configures an extractor for a static snapshot. A snapshot never
// reveals tooltips, so one attempt without backoff is enough and unreadable dates only warn.
func newReplayExtractor(doc *htmldoc.Document, extraction common.ExtractionConfig, logger arbor.ILogger) *extractor.Extractor {
	extraction.HoverMaxAttempts = 1
	extraction.StrictDates = false

	return extractor.NewExtractor(doc, extraction, logger,
		extractor.WithSleep(func(context.Context, time.Duration) error { return nil }),
		extractor.WithoutDevelopment(),
	)
}
