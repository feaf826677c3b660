package interfaces

// StorageManager owns the ledger database
type StorageManager interface {
	DownloadStorage() DownloadStorage
	Close() error
}
