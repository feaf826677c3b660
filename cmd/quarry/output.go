package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/quarry/internal/models"
)

// writeItem writes item as indented JSON to path, or stdout when path is empty
func writeItem(item *models.WorkItem, path string) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode work item: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Work item written")
	return nil
}
