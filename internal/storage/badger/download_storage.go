package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// DownloadStorage records which files each extraction run has retrieved
type DownloadStorage struct {
	db     *LedgerDB
	logger arbor.ILogger
}

// NewDownloadStorage creates a new DownloadStorage instance
func NewDownloadStorage(db *LedgerDB, logger arbor.ILogger) interfaces.DownloadStorage {
	return &DownloadStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDownload upserts a ledger record keyed by run and file name
func (s *DownloadStorage) SaveDownload(ctx context.Context, record *models.DownloadRecord) error {
	if record.RunID == "" || record.Filename == "" {
		return fmt.Errorf("download record requires run id and filename")
	}
	record.ID = models.DownloadKey(record.RunID, record.Filename)

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save download %s: %w", record.ID, err)
	}
	return nil
}

// HasDownload reports whether filename was already retrieved in run runID
func (s *DownloadStorage) HasDownload(ctx context.Context, runID string, filename string) (bool, error) {
	var record models.DownloadRecord
	err := s.db.Store().Get(models.DownloadKey(runID, filename), &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up download: %w", err)
	}
	return true, nil
}

// ListDownloads returns the records of one run in retrieval order
func (s *DownloadStorage) ListDownloads(ctx context.Context, runID string) ([]models.DownloadRecord, error) {
	var records []models.DownloadRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("RunID").Eq(runID).SortBy("RetrievedAt")); err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return records, nil
}
