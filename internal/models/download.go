package models

import "time"

// DownloadRecord is a ledger row for one retrieved attachment within an extraction run
type DownloadRecord struct {
	ID          string    `json:"id"` // {run_id}/{filename}
	RunID       string    `json:"run_id" badgerhold:"index"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	Source      string    `json:"source"` // "attachments" or "discussion"
	RetrievedAt time.Time `json:"retrieved_at"`
}

// DownloadKey builds the ledger key for a file within a run
func DownloadKey(runID, filename string) string {
	return runID + "/" + filename
}
