package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/quarry/internal/common"
)

// ledgerValueLogSize keeps value log files small; records are a few hundred bytes each
const ledgerValueLogSize = 16 << 20

// LedgerDB is the on-disk store behind the download ledger
type LedgerDB struct {
	store *badgerhold.Store
	path  string
}

// OpenLedger opens the ledger at config.Path. With reset_on_startup any earlier ledger is
// discarded first, and a discard that fails aborts the open: stale records would make
// the retriever skip files it never fetched in this run.
func OpenLedger(logger arbor.ILogger, config *common.BadgerConfig) (*LedgerDB, error) {
	if config.ResetOnStartup {
		if err := discardLedger(config.Path); err != nil {
			return nil, err
		}
		logger.Info().Str("path", config.Path).Msg("Previous download ledger discarded")
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger parent directory: %w", err)
	}

	store, err := badgerhold.Open(ledgerOptions(config.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open download ledger at %s: %w", config.Path, err)
	}

	logger.Debug().
		Str("path", config.Path).
		Bool("reset", config.ResetOnStartup).
		Msg("Download ledger ready")

	return &LedgerDB{store: store, path: config.Path}, nil
}

// ledgerOptions writes synchronously so records survive a crash mid-run
func ledgerOptions(path string) badgerhold.Options {
	options := badgerhold.DefaultOptions
	options.Options = badgerdb.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(ledgerValueLogSize)
	return options
}

func discardLedger(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to discard download ledger at %s: %w", path, err)
	}
	return nil
}

// Store returns the badgerhold store the ledger records live in
func (l *LedgerDB) Store() *badgerhold.Store {
	return l.store
}

// Close flushes and releases the ledger files
func (l *LedgerDB) Close() error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Close(); err != nil {
		return fmt.Errorf("failed to close download ledger at %s: %w", l.path, err)
	}
	return nil
}
