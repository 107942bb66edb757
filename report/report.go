// Package report persists a run summary as JSON.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/wavgrab/models"
	"github.com/ysmood/gson"
)

// Write stores sum as indented JSON at path, creating parent directories.
// The report lists every per-item outcome, which the printed summary omits.
func Write(path string, sum *models.Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create directory: %w", err)
		}
	}
	body := gson.New(sum).JSON("", "  ") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
