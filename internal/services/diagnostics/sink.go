package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
)

// FileSink writes snapshots into a directory, one file per name, overwriting earlier ones
type FileSink struct {
	dir    string
	logger arbor.ILogger
}

// NewFileSink creates the snapshot directory when missing
func NewFileSink(dir string, logger arbor.ILogger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Snapshot writes html to dir/name. name must be a plain file name.
func (s *FileSink) Snapshot(name string, html string) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid snapshot name %q", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(html)).Msg("Snapshot written")
	return nil
}

// NewSink returns a FileSink when diagnostics are enabled, nil otherwise
func NewSink(config common.DiagnosticsConfig, logger arbor.ILogger) (interfaces.SnapshotSink, error) {
	if !config.Enabled {
		return nil, nil
	}
	sink, err := NewFileSink(config.Dir, logger)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
