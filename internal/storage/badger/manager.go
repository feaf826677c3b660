package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *LedgerDB
	downloads interfaces.DownloadStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := OpenLedger(logger, config)
	if err != nil {
		return nil, err
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return &Manager{
		db:        db,
		downloads: NewDownloadStorage(db, logger),
		logger:    logger,
	}, nil
}

// DownloadStorage returns the download ledger
func (m *Manager) DownloadStorage() interfaces.DownloadStorage {
	return m.downloads
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
