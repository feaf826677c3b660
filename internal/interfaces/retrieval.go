package interfaces

import (
	"context"

	"github.com/ternarybob/quarry/internal/models"
)

// Retrieval sources recorded in the download ledger
const (
	SourceAttachments = "attachments"
	SourceDiscussion  = "discussion"
)

// Retriever triggers the download of a rewritten attachment URL
type Retriever interface {
	Retrieve(ctx context.Context, ref models.AttachmentRef, source string) error
}

// SnapshotSink receives raw HTML snapshots for debugging. Non-authoritative.
type SnapshotSink interface {
	Snapshot(name string, html string) error
}

// DownloadStorage is the per-run ledger of retrieved files
type DownloadStorage interface {
	SaveDownload(ctx context.Context, record *models.DownloadRecord) error
	HasDownload(ctx context.Context, runID string, filename string) (bool, error)
	ListDownloads(ctx context.Context, runID string) ([]models.DownloadRecord, error)
}
